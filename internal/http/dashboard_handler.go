package httpapi

import (
	"net/http"
	"time"

	"deskwell/internal/aggregator"
	"deskwell/internal/dispatcher"
	"deskwell/internal/repository"

	"go.uber.org/zap"
)

// DashboardHandler serves the presentation client: the aggregate snapshot,
// the active alert list and operator-issued commands.
type DashboardHandler struct {
	agg      *aggregator.Aggregator
	dispatch *dispatcher.Dispatcher
	sessions repository.SessionsRepo
	alerts   repository.AlertsRepo
	logger   *zap.Logger
}

func NewDashboardHandler(
	agg *aggregator.Aggregator,
	dispatch *dispatcher.Dispatcher,
	sessions repository.SessionsRepo,
	alerts repository.AlertsRepo,
	logger *zap.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		agg:      agg,
		dispatch: dispatch,
		sessions: sessions,
		alerts:   alerts,
		logger:   logger,
	}
}

// Snapshot returns the aggregate dashboard view. Always 200; missing data
// degrades to defaults inside the aggregator.
func (h *DashboardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.agg.Snapshot(r.Context(), time.Now().UTC())
	writeJSON(w, http.StatusOK, Ok(snap))
}

// Alerts returns the current session's active alerts, priority-ordered.
// Without an active session the list is empty.
func (h *DashboardHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.GetCurrentSession(r.Context())
	if err != nil {
		h.logger.Error("failed to resolve session", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("store unavailable, retry later"))
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, Ok([]struct{}{}))
		return
	}

	alerts, err := h.alerts.ListActiveAlerts(r.Context(), session.ID, 0)
	if err != nil {
		h.logger.Error("failed to list active alerts", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("store unavailable, retry later"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(alerts))
}

type dashboardCommandRequest struct {
	DeviceID  string `json:"device_id"`
	Action    string `json:"action"`
	Parameter string `json:"parameter"`
}

// Command enqueues an operator-issued command, bypassing the
// edge-trigger check.
func (h *DashboardHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req dashboardCommandRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	if req.DeviceID == "" || req.Action == "" {
		writeJSON(w, http.StatusBadRequest, Fail("device_id and action are required"))
		return
	}

	cmd, err := h.dispatch.EnqueueDirect(r.Context(), req.DeviceID, req.Action, req.Parameter)
	if err != nil {
		h.logger.Error("failed to enqueue operator command", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("store unavailable, retry later"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(cmd))
}

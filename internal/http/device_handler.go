package httpapi

import (
	"errors"
	"net/http"
	"time"

	"deskwell/internal/coordinator"
	"deskwell/internal/dispatcher"
	"deskwell/internal/models"

	"go.uber.org/zap"
)

// DeviceHandler serves the device-facing polling protocol: registration,
// telemetry ingestion, command polling and execution reports.
type DeviceHandler struct {
	coord    *coordinator.Coordinator
	dispatch *dispatcher.Dispatcher
	logger   *zap.Logger
}

func NewDeviceHandler(coord *coordinator.Coordinator, dispatch *dispatcher.Dispatcher, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{coord: coord, dispatch: dispatch, logger: logger}
}

// writeCoordinatorError maps coordinator errors to HTTP statuses:
// validation -> 400, no active session -> 409, store trouble -> 503.
func (h *DeviceHandler) writeCoordinatorError(w http.ResponseWriter, err error) {
	var verr *coordinator.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, Fail(verr.Error()))
		return
	}
	if errors.Is(err, coordinator.ErrNoActiveSession) {
		writeJSON(w, http.StatusConflict, Fail("no active session"))
		return
	}
	var serr *coordinator.StoreUnavailableError
	if errors.As(err, &serr) {
		h.logger.Error("store unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("store unavailable, retry later"))
		return
	}
	h.logger.Error("ingestion failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
}

type registerRequest struct {
	DeviceID             string   `json:"device_id"`
	Kind                 string   `json:"kind"`
	SensorCapabilities   []string `json:"sensor_capabilities"`
	ActuatorCapabilities []string `json:"actuator_capabilities"`
}

func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	device := &models.Device{
		DeviceID:             req.DeviceID,
		Kind:                 req.Kind,
		SensorCapabilities:   req.SensorCapabilities,
		ActuatorCapabilities: req.ActuatorCapabilities,
	}
	if err := h.coord.RegisterDevice(r.Context(), device); err != nil {
		h.writeCoordinatorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(device))
}

type readingRequest struct {
	DeviceID   string    `json:"device_id"`
	SensorKind string    `json:"sensor_kind"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Timestamp  time.Time `json:"timestamp"`
}

func (h *DeviceHandler) Reading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	outcome, err := h.coord.IngestReading(r.Context(), coordinator.ReadingInput{
		DeviceID:   req.DeviceID,
		SensorKind: models.SensorKind(req.SensorKind),
		Value:      req.Value,
		Unit:       req.Unit,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		h.writeCoordinatorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(outcome))
}

type fatigueRequest struct {
	DeviceID    string    `json:"device_id"`
	FatigueKind string    `json:"fatigue_kind"`
	Level       string    `json:"level"`
	Timestamp   time.Time `json:"timestamp"`
}

func (h *DeviceHandler) Fatigue(w http.ResponseWriter, r *http.Request) {
	var req fatigueRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	outcome, err := h.coord.IngestFatigue(r.Context(), coordinator.FatigueInput{
		DeviceID:    req.DeviceID,
		FatigueKind: models.FatigueKind(req.FatigueKind),
		Level:       models.FatigueLevel(req.Level),
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		h.writeCoordinatorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(outcome))
}

// Commands returns a device's pending commands oldest first. Devices poll
// this; an unknown device gets an empty list.
func (h *DeviceHandler) Commands(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("device_id is required"))
		return
	}

	commands, err := h.dispatch.ListPending(r.Context(), deviceID)
	if err != nil {
		h.logger.Error("failed to list pending commands", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("store unavailable, retry later"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(commands))
}

type resolutionRequest struct {
	CommandID  string    `json:"command_id"`
	DeviceID   string    `json:"device_id"`
	Outcome    string    `json:"outcome"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// CommandResolution applies a device's execution report. Outcome is
// "confirmed" or "failed". Reports against unknown or already-terminal
// commands succeed as no-ops so firmware can retry blindly.
func (h *DeviceHandler) CommandResolution(w http.ResponseWriter, r *http.Request) {
	var req resolutionRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	if req.CommandID == "" || req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("command_id and device_id are required"))
		return
	}
	if req.Outcome != string(models.CommandConfirmed) && req.Outcome != string(models.CommandFailed) {
		writeJSON(w, http.StatusBadRequest, Fail("outcome must be confirmed or failed"))
		return
	}
	if req.ResolvedAt.IsZero() {
		req.ResolvedAt = time.Now().UTC()
	}

	success := req.Outcome == string(models.CommandConfirmed)
	if err := h.dispatch.Resolve(r.Context(), req.CommandID, req.DeviceID, success, req.ResolvedAt); err != nil {
		h.logger.Error("failed to resolve command", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("store unavailable, retry later"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(struct{}{}))
}

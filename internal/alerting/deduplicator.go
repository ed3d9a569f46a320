// Package alerting suppresses repeat alerts within a trailing window.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deskwell/internal/locking"
	"deskwell/internal/models"
	"deskwell/internal/repository"

	"go.uber.org/zap"
)

// Deduplicator guards alert creation: at most one non-dismissed alert per
// (session, kind) within the window. The check-then-insert pair is
// serialized per (session, kind) key; all alert writes funnel through the
// single coordinator process.
type Deduplicator struct {
	alerts repository.AlertsRepo
	locks  *locking.KeyedMutex
	window time.Duration
	logger *zap.Logger
}

func NewDeduplicator(alerts repository.AlertsRepo, window time.Duration, logger *zap.Logger) *Deduplicator {
	return &Deduplicator{
		alerts: alerts,
		locks:  locking.NewKeyedMutex(),
		window: window,
		logger: logger,
	}
}

// CreateIfFresh persists the alert unless an equivalent one already fired
// within the window. Returns true when the alert was created.
func (d *Deduplicator) CreateIfFresh(ctx context.Context, alert *models.Alert) (bool, error) {
	key := alert.SessionID + ":" + alert.AlertKind
	unlock := d.locks.Lock(key)
	defer unlock()

	since := alert.Timestamp.Add(-d.window)
	recent, err := d.alerts.HasRecentAlert(ctx, alert.SessionID, alert.AlertKind, since)
	if err != nil {
		return false, fmt.Errorf("failed to check recent alerts: %w", err)
	}
	if recent {
		d.logger.Debug("alert suppressed by dedup window",
			zap.String("session_id", alert.SessionID),
			zap.String("alert_kind", alert.AlertKind))
		return false, nil
	}

	if err := d.alerts.CreateAlert(ctx, alert); err != nil {
		if errors.Is(err, repository.ErrDuplicateAlert) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

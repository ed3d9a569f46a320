package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deskwell/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrDuplicateAlert reports that a concurrent insert for the same
// (session, kind) won the race; the caller treats it as suppressed.
var ErrDuplicateAlert = errors.New("duplicate alert")

// AlertsRepo persists alerts and serves the deduplication and dashboard
// queries. The coordinator only creates alerts; viewed/dismissed flags are
// mutated by the presentation client.
type AlertsRepo interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	// HasRecentAlert reports whether a non-dismissed alert of the given
	// kind exists for the session with timestamp after the given instant.
	HasRecentAlert(ctx context.Context, sessionID, alertKind string, since time.Time) (bool, error)
	// ListActiveAlerts returns non-viewed, non-dismissed alerts ordered by
	// priority (high, medium, low) then timestamp descending.
	ListActiveAlerts(ctx context.Context, sessionID string, limit int) ([]*models.Alert, error)
}

type PostgresAlertsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresAlertsRepo(db *sql.DB, logger *zap.Logger) *PostgresAlertsRepo {
	return &PostgresAlertsRepo{db: db, logger: logger}
}

func (r *PostgresAlertsRepo) CreateAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (alert_id, session_id, alert_kind, priority, message, ts, viewed, dismissed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.SessionID,
		alert.AlertKind,
		alert.Priority,
		alert.Message,
		alert.Timestamp,
		alert.Viewed,
		alert.Dismissed,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateAlert
		}
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

func (r *PostgresAlertsRepo) HasRecentAlert(ctx context.Context, sessionID, alertKind string, since time.Time) (bool, error) {
	query := `
		SELECT alert_id
		FROM alerts
		WHERE session_id = $1
		  AND alert_kind = $2
		  AND ts > $3
		  AND dismissed = FALSE
		ORDER BY ts DESC
		LIMIT 1
	`

	var id string
	err := r.db.QueryRowContext(ctx, query, sessionID, alertKind, since).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to query recent alert: %w", err)
	}

	return true, nil
}

func (r *PostgresAlertsRepo) ListActiveAlerts(ctx context.Context, sessionID string, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT alert_id, session_id, alert_kind, priority, message, ts, viewed, dismissed
		FROM alerts
		WHERE session_id = $1
		  AND viewed = FALSE
		  AND dismissed = FALSE
		ORDER BY
			CASE priority
				WHEN 'high' THEN 1
				WHEN 'medium' THEN 2
				WHEN 'low' THEN 3
			END,
			ts DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		var a models.Alert
		err := rows.Scan(
			&a.ID,
			&a.SessionID,
			&a.AlertKind,
			&a.Priority,
			&a.Message,
			&a.Timestamp,
			&a.Viewed,
			&a.Dismissed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"deskwell/internal/models"

	"go.uber.org/zap"
)

// FatigueRepo persists fatigue observations (append-only) and serves the
// latest level per kind within a trailing window.
type FatigueRepo interface {
	InsertObservation(ctx context.Context, obs *models.FatigueObservation) error
	// LatestLevels returns the newest level per fatigue kind observed
	// since the given instant. Kinds with no observation are absent.
	LatestLevels(ctx context.Context, sessionID string, since time.Time) (map[models.FatigueKind]models.FatigueLevel, error)
}

type PostgresFatigueRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresFatigueRepo(db *sql.DB, logger *zap.Logger) *PostgresFatigueRepo {
	return &PostgresFatigueRepo{db: db, logger: logger}
}

func (r *PostgresFatigueRepo) InsertObservation(ctx context.Context, obs *models.FatigueObservation) error {
	query := `
		INSERT INTO fatigue_observations (session_id, device_id, fatigue_kind, level, ts)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		obs.SessionID,
		obs.DeviceID,
		obs.FatigueKind,
		obs.Level,
		obs.Timestamp,
	).Scan(&obs.ID)
	if err != nil {
		return fmt.Errorf("failed to insert fatigue observation: %w", err)
	}

	return nil
}

func (r *PostgresFatigueRepo) LatestLevels(ctx context.Context, sessionID string, since time.Time) (map[models.FatigueKind]models.FatigueLevel, error) {
	query := `
		SELECT fatigue_kind, level
		FROM fatigue_observations
		WHERE session_id = $1 AND ts > $2
		ORDER BY ts DESC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query fatigue observations: %w", err)
	}
	defer rows.Close()

	// First row per kind from the descending-timestamp order wins.
	levels := make(map[models.FatigueKind]models.FatigueLevel)
	for rows.Next() {
		var kind models.FatigueKind
		var level models.FatigueLevel
		if err := rows.Scan(&kind, &level); err != nil {
			return nil, fmt.Errorf("failed to scan fatigue observation: %w", err)
		}
		if _, seen := levels[kind]; !seen {
			levels[kind] = level
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fatigue observations: %w", err)
	}

	return levels, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"deskwell/internal/models"

	"go.uber.org/zap"
)

// SessionsRepo reads the current work session. Session lifecycle is owned
// by the bookkeeping service; this coordinator never writes sessions.
type SessionsRepo interface {
	// GetCurrentSession returns the active session, or nil when none exists.
	GetCurrentSession(ctx context.Context) (*models.Session, error)
}

type PostgresSessionsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresSessionsRepo(db *sql.DB, logger *zap.Logger) *PostgresSessionsRepo {
	return &PostgresSessionsRepo{db: db, logger: logger}
}

func (r *PostgresSessionsRepo) GetCurrentSession(ctx context.Context) (*models.Session, error) {
	query := `
		SELECT session_id, start_time, elapsed_minutes, pauses_taken, state
		FROM sessions
		WHERE state = 'active'
		ORDER BY start_time DESC
		LIMIT 1
	`

	var s models.Session
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.ID,
		&s.StartTime,
		&s.ElapsedMinutes,
		&s.PausesTaken,
		&s.State,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query current session: %w", err)
	}

	return &s, nil
}

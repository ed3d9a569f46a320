package repository

import (
	"context"
	"database/sql"
	"fmt"

	"deskwell/internal/models"

	"go.uber.org/zap"
)

// ReadingsRepo persists sensor readings (append-only) and serves the
// latest reading per kind for the aggregate view.
type ReadingsRepo interface {
	InsertReading(ctx context.Context, reading *models.SensorReading) error
	// LatestReading returns the newest reading of one kind, nil when the
	// session has none.
	LatestReading(ctx context.Context, sessionID string, kind models.SensorKind) (*models.SensorReading, error)
	// LatestReadings returns the newest reading per sensor kind.
	LatestReadings(ctx context.Context, sessionID string) (map[models.SensorKind]*models.SensorReading, error)
}

type PostgresReadingsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresReadingsRepo(db *sql.DB, logger *zap.Logger) *PostgresReadingsRepo {
	return &PostgresReadingsRepo{db: db, logger: logger}
}

func (r *PostgresReadingsRepo) InsertReading(ctx context.Context, reading *models.SensorReading) error {
	query := `
		INSERT INTO sensor_readings (session_id, device_id, sensor_kind, value, unit, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		reading.SessionID,
		reading.DeviceID,
		reading.SensorKind,
		reading.Value,
		reading.Unit,
		reading.Timestamp,
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert sensor reading: %w", err)
	}

	return nil
}

func (r *PostgresReadingsRepo) LatestReading(ctx context.Context, sessionID string, kind models.SensorKind) (*models.SensorReading, error) {
	query := `
		SELECT id, session_id, device_id, sensor_kind, value, unit, ts
		FROM sensor_readings
		WHERE session_id = $1 AND sensor_kind = $2
		ORDER BY ts DESC
		LIMIT 1
	`

	var reading models.SensorReading
	err := r.db.QueryRowContext(ctx, query, sessionID, kind).Scan(
		&reading.ID,
		&reading.SessionID,
		&reading.DeviceID,
		&reading.SensorKind,
		&reading.Value,
		&reading.Unit,
		&reading.Timestamp,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest reading: %w", err)
	}

	return &reading, nil
}

func (r *PostgresReadingsRepo) LatestReadings(ctx context.Context, sessionID string) (map[models.SensorKind]*models.SensorReading, error) {
	query := `
		SELECT id, session_id, device_id, sensor_kind, value, unit, ts
		FROM sensor_readings
		WHERE session_id = $1
		ORDER BY ts DESC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest readings: %w", err)
	}
	defer rows.Close()

	// First row per kind from the descending-timestamp order wins.
	latest := make(map[models.SensorKind]*models.SensorReading)
	for rows.Next() {
		var reading models.SensorReading
		err := rows.Scan(
			&reading.ID,
			&reading.SessionID,
			&reading.DeviceID,
			&reading.SensorKind,
			&reading.Value,
			&reading.Unit,
			&reading.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		if _, seen := latest[reading.SensorKind]; !seen {
			rd := reading
			latest[reading.SensorKind] = &rd
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensor readings: %w", err)
	}

	return latest, nil
}

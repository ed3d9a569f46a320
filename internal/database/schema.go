package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Table DDL for local development bootstrap. Production deployments manage
// the schema with migrations; EnsureSchema only runs when DB_BOOTSTRAP=true.
const (
	sessionsTableSQL = `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id      UUID PRIMARY KEY,
			start_time      TIMESTAMPTZ NOT NULL DEFAULT now(),
			elapsed_minutes INT NOT NULL DEFAULT 0,
			pauses_taken    INT NOT NULL DEFAULT 0,
			state           TEXT NOT NULL DEFAULT 'active'
		)`

	devicesTableSQL = `
		CREATE TABLE IF NOT EXISTS devices (
			device_id             TEXT PRIMARY KEY,
			kind                  TEXT NOT NULL,
			sensor_capabilities   JSONB NOT NULL DEFAULT '[]',
			actuator_capabilities JSONB NOT NULL DEFAULT '[]',
			last_seen             TIMESTAMPTZ NOT NULL DEFAULT now(),
			registration_state    TEXT NOT NULL DEFAULT 'active'
		)`

	sensorReadingsTableSQL = `
		CREATE TABLE IF NOT EXISTS sensor_readings (
			id          BIGSERIAL PRIMARY KEY,
			session_id  UUID NOT NULL,
			device_id   TEXT NOT NULL,
			sensor_kind TEXT NOT NULL,
			value       DOUBLE PRECISION NOT NULL,
			unit        TEXT NOT NULL DEFAULT '',
			ts          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	sensorReadingsIndexSQL = `
		CREATE INDEX IF NOT EXISTS idx_sensor_readings_latest
		ON sensor_readings (session_id, sensor_kind, ts DESC)`

	fatigueObservationsTableSQL = `
		CREATE TABLE IF NOT EXISTS fatigue_observations (
			id           BIGSERIAL PRIMARY KEY,
			session_id   UUID NOT NULL,
			device_id    TEXT NOT NULL,
			fatigue_kind TEXT NOT NULL,
			level        TEXT NOT NULL,
			ts           TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	alertsTableSQL = `
		CREATE TABLE IF NOT EXISTS alerts (
			alert_id   UUID PRIMARY KEY,
			session_id UUID NOT NULL,
			alert_kind TEXT NOT NULL,
			priority   TEXT NOT NULL,
			message    TEXT NOT NULL,
			ts         TIMESTAMPTZ NOT NULL DEFAULT now(),
			viewed     BOOLEAN NOT NULL DEFAULT FALSE,
			dismissed  BOOLEAN NOT NULL DEFAULT FALSE
		)`

	alertsIndexSQL = `
		CREATE INDEX IF NOT EXISTS idx_alerts_dedup
		ON alerts (session_id, alert_kind, ts DESC)`

	commandsTableSQL = `
		CREATE TABLE IF NOT EXISTS commands (
			command_id  UUID PRIMARY KEY,
			device_id   TEXT NOT NULL,
			actuator    TEXT NOT NULL,
			action      TEXT NOT NULL,
			parameter   TEXT NOT NULL DEFAULT '',
			state       TEXT NOT NULL DEFAULT 'pending',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			resolved_at TIMESTAMPTZ
		)`

	commandsIndexSQL = `
		CREATE INDEX IF NOT EXISTS idx_commands_pending
		ON commands (device_id, state, created_at)`
)

// EnsureSchema creates the coordinator tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		sessionsTableSQL,
		devicesTableSQL,
		sensorReadingsTableSQL,
		sensorReadingsIndexSQL,
		fatigueObservationsTableSQL,
		alertsTableSQL,
		alertsIndexSQL,
		commandsTableSQL,
		commandsIndexSQL,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"deskwell/internal/models"

	"go.uber.org/zap"
)

// DevicesRepo persists the edge-device registry.
type DevicesRepo interface {
	// UpsertDevice registers a device or refreshes an existing
	// registration, updating capabilities and last_seen.
	UpsertDevice(ctx context.Context, device *models.Device) error
	// TouchDevice refreshes last_seen. Returns false for devices that were
	// never registered; callers treat that as a no-op.
	TouchDevice(ctx context.Context, deviceID string, seenAt time.Time) (bool, error)
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]*models.Device, error)
}

type PostgresDevicesRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresDevicesRepo(db *sql.DB, logger *zap.Logger) *PostgresDevicesRepo {
	return &PostgresDevicesRepo{db: db, logger: logger}
}

func (r *PostgresDevicesRepo) UpsertDevice(ctx context.Context, device *models.Device) error {
	sensors, err := json.Marshal(device.SensorCapabilities)
	if err != nil {
		return fmt.Errorf("failed to marshal sensor capabilities: %w", err)
	}
	actuators, err := json.Marshal(device.ActuatorCapabilities)
	if err != nil {
		return fmt.Errorf("failed to marshal actuator capabilities: %w", err)
	}

	query := `
		INSERT INTO devices (device_id, kind, sensor_capabilities, actuator_capabilities, last_seen, registration_state)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id)
		DO UPDATE SET kind = EXCLUDED.kind,
		              sensor_capabilities = EXCLUDED.sensor_capabilities,
		              actuator_capabilities = EXCLUDED.actuator_capabilities,
		              last_seen = EXCLUDED.last_seen,
		              registration_state = EXCLUDED.registration_state
	`

	_, err = r.db.ExecContext(ctx, query,
		device.DeviceID,
		device.Kind,
		sensors,
		actuators,
		device.LastSeen,
		device.RegistrationState,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}

	return nil
}

func (r *PostgresDevicesRepo) TouchDevice(ctx context.Context, deviceID string, seenAt time.Time) (bool, error) {
	query := `UPDATE devices SET last_seen = $1 WHERE device_id = $2`

	result, err := r.db.ExecContext(ctx, query, seenAt, deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to touch device: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *PostgresDevicesRepo) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	query := `
		SELECT device_id, kind, sensor_capabilities, actuator_capabilities, last_seen, registration_state
		FROM devices
		WHERE device_id = $1
	`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	return device, nil
}

func (r *PostgresDevicesRepo) ListDevices(ctx context.Context) ([]*models.Device, error) {
	query := `
		SELECT device_id, kind, sensor_capabilities, actuator_capabilities, last_seen, registration_state
		FROM devices
		ORDER BY device_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []*models.Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

func scanDevice(s rowScanner) (*models.Device, error) {
	var device models.Device
	var sensors, actuators []byte
	err := s.Scan(
		&device.DeviceID,
		&device.Kind,
		&sensors,
		&actuators,
		&device.LastSeen,
		&device.RegistrationState,
	)
	if err != nil {
		return nil, err
	}

	if len(sensors) > 0 {
		if err := json.Unmarshal(sensors, &device.SensorCapabilities); err != nil {
			device.SensorCapabilities = nil
		}
	}
	if len(actuators) > 0 {
		if err := json.Unmarshal(actuators, &device.ActuatorCapabilities); err != nil {
			device.ActuatorCapabilities = nil
		}
	}

	return &device, nil
}

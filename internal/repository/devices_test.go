package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"deskwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupDevicesRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresDevicesRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewPostgresDevicesRepo(db, zap.NewNop())
	return db, mock, repo
}

func TestUpsertDevice(t *testing.T) {
	db, mock, repo := setupDevicesRepo(t)
	defer db.Close()

	device := &models.Device{
		DeviceID:             "esp32-desk-01",
		Kind:                 "ambient",
		SensorCapabilities:   []string{"co2", "noise", "temperature"},
		ActuatorCapabilities: []string{"ventilation", "status_led"},
		LastSeen:             time.Now(),
		RegistrationState:    models.DeviceActive,
	}

	mock.ExpectExec(`INSERT INTO devices`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertDevice(context.Background(), device))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchDevice(t *testing.T) {
	db, mock, repo := setupDevicesRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE devices`).
		WithArgs(now, "esp32-desk-01").
		WillReturnResult(sqlmock.NewResult(0, 1))

	found, err := repo.TouchDevice(context.Background(), "esp32-desk-01", now)
	require.NoError(t, err)
	assert.True(t, found)

	// Unregistered devices match no rows.
	mock.ExpectExec(`UPDATE devices`).
		WithArgs(now, "ghost-device").
		WillReturnResult(sqlmock.NewResult(0, 0))

	found, err = repo.TouchDevice(context.Background(), "ghost-device", now)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDevice(t *testing.T) {
	db, mock, repo := setupDevicesRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT device_id`).
		WithArgs("esp32-desk-01").
		WillReturnRows(sqlmock.NewRows([]string{
			"device_id", "kind", "sensor_capabilities", "actuator_capabilities", "last_seen", "registration_state",
		}).AddRow(
			"esp32-desk-01", "ambient", []byte(`["co2"]`), []byte(`["ventilation"]`), now, "active",
		))

	device, err := repo.GetDevice(context.Background(), "esp32-desk-01")
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Equal(t, []string{"co2"}, device.SensorCapabilities)
	assert.Equal(t, []string{"ventilation"}, device.ActuatorCapabilities)

	mock.ExpectQuery(`SELECT device_id`).
		WithArgs("ghost-device").
		WillReturnError(sql.ErrNoRows)

	device, err = repo.GetDevice(context.Background(), "ghost-device")
	require.NoError(t, err)
	assert.Nil(t, device)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDevices(t *testing.T) {
	db, mock, repo := setupDevicesRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT device_id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"device_id", "kind", "sensor_capabilities", "actuator_capabilities", "last_seen", "registration_state",
		}).AddRow(
			"esp32-desk-01", "ambient", []byte(`[]`), []byte(`[]`), now, "active",
		).AddRow(
			"fatigue-cam-01", "camera", []byte(`[]`), []byte(`[]`), now.Add(-2*time.Minute), "active",
		))

	devices, err := repo.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "esp32-desk-01", devices[0].DeviceID)

	require.NoError(t, mock.ExpectationsWereMet())
}

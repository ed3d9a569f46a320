package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"deskwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCommandsRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresCommandsRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewPostgresCommandsRepo(db, zap.NewNop())
	return db, mock, repo
}

func TestCreateCommand(t *testing.T) {
	db, mock, repo := setupCommandsRepo(t)
	defer db.Close()

	cmd := &models.Command{
		ID:        uuid.New().String(),
		DeviceID:  "esp32-desk-01",
		Actuator:  models.ActuatorVentilation,
		Action:    models.ActionVentilationOn,
		Parameter: "",
		State:     models.CommandPending,
		CreatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO commands`).
		WithArgs(cmd.ID, cmd.DeviceID, cmd.Actuator, cmd.Action, cmd.Parameter, cmd.State, cmd.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateCommand(context.Background(), cmd))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingCommands_OldestFirst(t *testing.T) {
	db, mock, repo := setupCommandsRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"command_id", "device_id", "actuator", "action", "parameter", "state", "created_at", "resolved_at",
	}).AddRow(
		"cmd-1", "esp32-desk-01", models.ActuatorVentilation, models.ActionVentilationOn, "", "pending", now.Add(-time.Minute), nil,
	).AddRow(
		"cmd-2", "esp32-desk-01", models.ActuatorStatusLED, models.ActionSetStatusLED, "alert", "pending", now, nil,
	)

	mock.ExpectQuery(`SELECT command_id`).
		WithArgs("esp32-desk-01").
		WillReturnRows(rows)

	commands, err := repo.ListPendingCommands(context.Background(), "esp32-desk-01")
	require.NoError(t, err)
	require.Len(t, commands, 2)
	assert.Equal(t, "cmd-1", commands[0].ID)
	assert.Equal(t, "cmd-2", commands[1].ID)
	assert.Nil(t, commands[0].ResolvedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestNonFailedCommand(t *testing.T) {
	db, mock, repo := setupCommandsRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT command_id`).
		WithArgs("esp32-desk-01", models.ActuatorVentilation).
		WillReturnRows(sqlmock.NewRows([]string{
			"command_id", "device_id", "actuator", "action", "parameter", "state", "created_at", "resolved_at",
		}).AddRow(
			"cmd-9", "esp32-desk-01", models.ActuatorVentilation, models.ActionVentilationOn, "", "confirmed", now.Add(-time.Hour), now,
		))

	cmd, err := repo.LatestNonFailedCommand(context.Background(), "esp32-desk-01", models.ActuatorVentilation)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, models.ActionVentilationOn, cmd.Action)
	assert.Equal(t, models.CommandConfirmed, cmd.State)
	require.NotNil(t, cmd.ResolvedAt)

	mock.ExpectQuery(`SELECT command_id`).
		WithArgs("esp32-desk-02", models.ActuatorVentilation).
		WillReturnError(sql.ErrNoRows)

	cmd, err = repo.LatestNonFailedCommand(context.Background(), "esp32-desk-02", models.ActuatorVentilation)
	require.NoError(t, err)
	assert.Nil(t, cmd)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveCommand_PendingTransitions(t *testing.T) {
	db, mock, repo := setupCommandsRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE commands`).
		WithArgs(models.CommandConfirmed, now, "cmd-1", "esp32-desk-01").
		WillReturnResult(sqlmock.NewResult(0, 1))

	resolved, err := repo.ResolveCommand(context.Background(), "cmd-1", "esp32-desk-01", models.CommandConfirmed, now)
	require.NoError(t, err)
	assert.True(t, resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveCommand_TerminalIsNoOp(t *testing.T) {
	db, mock, repo := setupCommandsRepo(t)
	defer db.Close()

	// The state='pending' guard matches no rows for a terminal command.
	now := time.Now()
	mock.ExpectExec(`UPDATE commands`).
		WithArgs(models.CommandFailed, now, "cmd-1", "esp32-desk-01").
		WillReturnResult(sqlmock.NewResult(0, 0))

	resolved, err := repo.ResolveCommand(context.Background(), "cmd-1", "esp32-desk-01", models.CommandFailed, now)
	require.NoError(t, err)
	assert.False(t, resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

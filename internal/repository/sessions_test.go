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

func TestGetCurrentSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresSessionsRepo(db, zap.NewNop())

	sessionID := uuid.New().String()
	start := time.Now().Add(-90 * time.Minute)

	mock.ExpectQuery(`SELECT session_id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"session_id", "start_time", "elapsed_minutes", "pauses_taken", "state",
		}).AddRow(sessionID, start, 90, 2, "active"))

	session, err := repo.GetCurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, sessionID, session.ID)
	assert.Equal(t, 90, session.ElapsedMinutes)
	assert.Equal(t, 2, session.PausesTaken)
	assert.Equal(t, models.SessionActive, session.State)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCurrentSession_NoneActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresSessionsRepo(db, zap.NewNop())

	mock.ExpectQuery(`SELECT session_id`).
		WillReturnError(sql.ErrNoRows)

	session, err := repo.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)

	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"deskwell/internal/models"

	"go.uber.org/zap"
)

// CommandsRepo persists device-bound commands and drives their lifecycle.
type CommandsRepo interface {
	CreateCommand(ctx context.Context, cmd *models.Command) error
	// ListPendingCommands returns a device's pending commands oldest first,
	// the order the device executes them in.
	ListPendingCommands(ctx context.Context, deviceID string) ([]*models.Command, error)
	// LatestNonFailedCommand returns the newest pending or confirmed
	// command for a (device, actuator) pair, nil when there is none. It is
	// the dispatcher's record of the last known actuator intent.
	LatestNonFailedCommand(ctx context.Context, deviceID, actuator string) (*models.Command, error)
	// ResolveCommand moves a pending command to a terminal state. Returns
	// false when no pending command matched (already terminal or unknown),
	// which callers treat as a no-op.
	ResolveCommand(ctx context.Context, commandID, deviceID string, state models.CommandState, resolvedAt time.Time) (bool, error)
}

type PostgresCommandsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresCommandsRepo(db *sql.DB, logger *zap.Logger) *PostgresCommandsRepo {
	return &PostgresCommandsRepo{db: db, logger: logger}
}

func (r *PostgresCommandsRepo) CreateCommand(ctx context.Context, cmd *models.Command) error {
	query := `
		INSERT INTO commands (command_id, device_id, actuator, action, parameter, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		cmd.ID,
		cmd.DeviceID,
		cmd.Actuator,
		cmd.Action,
		cmd.Parameter,
		cmd.State,
		cmd.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create command: %w", err)
	}

	return nil
}

func (r *PostgresCommandsRepo) ListPendingCommands(ctx context.Context, deviceID string) ([]*models.Command, error) {
	query := `
		SELECT command_id, device_id, actuator, action, parameter, state, created_at, resolved_at
		FROM commands
		WHERE device_id = $1 AND state = 'pending'
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending commands: %w", err)
	}
	defer rows.Close()

	commands := []*models.Command{}
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commands: %w", err)
	}

	return commands, nil
}

func (r *PostgresCommandsRepo) LatestNonFailedCommand(ctx context.Context, deviceID, actuator string) (*models.Command, error) {
	query := `
		SELECT command_id, device_id, actuator, action, parameter, state, created_at, resolved_at
		FROM commands
		WHERE device_id = $1 AND actuator = $2 AND state != 'failed'
		ORDER BY created_at DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, deviceID, actuator)
	cmd, err := scanCommandRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest command: %w", err)
	}

	return cmd, nil
}

// ResolveCommand transitions pending -> confirmed/failed. The state guard
// in the WHERE clause makes re-resolution of a terminal command a no-op,
// so command state transitions stay monotone.
func (r *PostgresCommandsRepo) ResolveCommand(ctx context.Context, commandID, deviceID string, state models.CommandState, resolvedAt time.Time) (bool, error) {
	query := `
		UPDATE commands
		SET state = $1, resolved_at = $2
		WHERE command_id = $3 AND device_id = $4 AND state = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, state, resolvedAt, commandID, deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve command: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommand(s rowScanner) (*models.Command, error) {
	cmd, err := scanCommandRow(s)
	if err != nil {
		return nil, fmt.Errorf("failed to scan command: %w", err)
	}
	return cmd, nil
}

func scanCommandRow(s rowScanner) (*models.Command, error) {
	var cmd models.Command
	var resolvedAt sql.NullTime
	err := s.Scan(
		&cmd.ID,
		&cmd.DeviceID,
		&cmd.Actuator,
		&cmd.Action,
		&cmd.Parameter,
		&cmd.State,
		&cmd.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		cmd.ResolvedAt = &resolvedAt.Time
	}
	return &cmd, nil
}

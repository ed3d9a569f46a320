// Package dispatcher turns actuator intents into device-bound commands
// and drives their lifecycle against the polling protocol.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"deskwell/internal/locking"
	"deskwell/internal/models"
	"deskwell/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher enqueues commands edge-triggered: a new command is created
// only when the desired action differs from the last known intent for the
// (device, actuator) pair. Prior commands are never retroactively altered;
// a changed intent supersedes by enqueueing, not by rewriting history.
type Dispatcher struct {
	commands repository.CommandsRepo
	locks    *locking.KeyedMutex
	logger   *zap.Logger
}

func NewDispatcher(commands repository.CommandsRepo, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		commands: commands,
		locks:    locking.NewKeyedMutex(),
		logger:   logger,
	}
}

// Dispatch enqueues a pending command for the device unless the latest
// non-failed command for the same actuator already carries the desired
// action and parameter. Returns the created command, or nil when the
// intent was already in flight or applied.
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID, actuator, action, parameter string) (*models.Command, error) {
	unlock := d.locks.Lock(deviceID + ":" + actuator)
	defer unlock()

	latest, err := d.commands.LatestNonFailedCommand(ctx, deviceID, actuator)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest command: %w", err)
	}
	if latest != nil && latest.Action == action && latest.Parameter == parameter {
		// Same intent already pending or confirmed; nothing to enqueue.
		return nil, nil
	}

	cmd := &models.Command{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Actuator:  actuator,
		Action:    action,
		Parameter: parameter,
		State:     models.CommandPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.commands.CreateCommand(ctx, cmd); err != nil {
		return nil, err
	}

	d.logger.Info("command enqueued",
		zap.String("command_id", cmd.ID),
		zap.String("device_id", deviceID),
		zap.String("actuator", actuator),
		zap.String("action", action))

	return cmd, nil
}

// EnqueueDirect enqueues a command unconditionally, bypassing the
// edge-trigger check. Used for operator-issued commands.
func (d *Dispatcher) EnqueueDirect(ctx context.Context, deviceID, action, parameter string) (*models.Command, error) {
	cmd := &models.Command{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Actuator:  models.ActuatorForAction(action),
		Action:    action,
		Parameter: parameter,
		State:     models.CommandPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.commands.CreateCommand(ctx, cmd); err != nil {
		return nil, err
	}

	d.logger.Info("operator command enqueued",
		zap.String("command_id", cmd.ID),
		zap.String("device_id", deviceID),
		zap.String("action", action))

	return cmd, nil
}

// LastIntent returns the latest non-failed command for a (device,
// actuator) pair, nil when there is none.
func (d *Dispatcher) LastIntent(ctx context.Context, deviceID, actuator string) (*models.Command, error) {
	return d.commands.LatestNonFailedCommand(ctx, deviceID, actuator)
}

// ListPending returns the device's pending commands oldest first. Unknown
// devices get an empty list, not an error; the polling protocol treats
// "nothing to do" and "nobody knows you" the same way.
func (d *Dispatcher) ListPending(ctx context.Context, deviceID string) ([]*models.Command, error) {
	return d.commands.ListPendingCommands(ctx, deviceID)
}

// Resolve applies a device's execution report. Confirmations and failures
// of unknown or already-terminal commands are no-ops, so devices can
// retry reports safely.
func (d *Dispatcher) Resolve(ctx context.Context, commandID, deviceID string, success bool, resolvedAt time.Time) error {
	state := models.CommandConfirmed
	if !success {
		state = models.CommandFailed
	}

	applied, err := d.commands.ResolveCommand(ctx, commandID, deviceID, state, resolvedAt)
	if err != nil {
		return err
	}
	if !applied {
		d.logger.Debug("command resolution ignored",
			zap.String("command_id", commandID),
			zap.String("device_id", deviceID))
		return nil
	}

	d.logger.Info("command resolved",
		zap.String("command_id", commandID),
		zap.String("device_id", deviceID),
		zap.String("state", string(state)))

	return nil
}

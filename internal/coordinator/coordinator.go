// Package coordinator orchestrates the telemetry-to-actuation path:
// persist, evaluate, alert, dispatch. It owns no thresholds and no SQL;
// it sequences the evaluator, repositories, deduplicator and dispatcher.
package coordinator

import (
	"context"
	"errors"
	"time"

	"deskwell/internal/alerting"
	"deskwell/internal/dispatcher"
	"deskwell/internal/evaluator"
	"deskwell/internal/models"
	"deskwell/internal/notifier"
	"deskwell/internal/repository"
	"deskwell/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default values assumed for the counterpart sensor when the status light
// is derived and no reading of that kind exists yet.
const (
	defaultCO2Value   = 450.0
	defaultNoiseValue = 45.0
)

// alertPublisher is the alert fan-out beyond PostgreSQL. Best-effort.
type alertPublisher interface {
	Publish(ctx context.Context, alert any) (string, error)
}

// ReadingInput is one sensor measurement as reported by a device.
type ReadingInput struct {
	DeviceID   string
	SensorKind models.SensorKind
	Value      float64
	Unit       string
	Timestamp  time.Time
}

// FatigueInput is one fatigue detector observation.
type FatigueInput struct {
	DeviceID    string
	FatigueKind models.FatigueKind
	Level       models.FatigueLevel
	Timestamp   time.Time
}

// IngestOutcome summarizes what one ingestion caused.
type IngestOutcome struct {
	SessionID        string             `json:"session_id"`
	Severity         evaluator.Severity `json:"severity"`
	AlertCreated     bool               `json:"alert_created"`
	CommandsEnqueued int                `json:"commands_enqueued"`
}

// Coordinator wires the ingestion path end to end.
type Coordinator struct {
	sessions repository.SessionsRepo
	readings repository.ReadingsRepo
	fatigue  repository.FatigueRepo
	devices  repository.DevicesRepo
	dedup    *alerting.Deduplicator
	dispatch *dispatcher.Dispatcher
	cache    *store.RealtimeCache
	stream   alertPublisher
	notify   notifier.Notifier
	logger   *zap.Logger

	storeTimeout time.Duration
}

type Options struct {
	Sessions repository.SessionsRepo
	Readings repository.ReadingsRepo
	Fatigue  repository.FatigueRepo
	Devices  repository.DevicesRepo
	Dedup    *alerting.Deduplicator
	Dispatch *dispatcher.Dispatcher
	Cache    *store.RealtimeCache
	Stream   alertPublisher
	Notify   notifier.Notifier
	Logger   *zap.Logger

	StoreTimeout time.Duration
}

func New(opts Options) *Coordinator {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	return &Coordinator{
		sessions:     opts.Sessions,
		readings:     opts.Readings,
		fatigue:      opts.Fatigue,
		devices:      opts.Devices,
		dedup:        opts.Dedup,
		dispatch:     opts.Dispatch,
		cache:        opts.Cache,
		stream:       opts.Stream,
		notify:       opts.Notify,
		logger:       opts.Logger,
		storeTimeout: opts.StoreTimeout,
	}
}

// IngestReading runs the full pipeline for one measurement: resolve the
// active session, persist, evaluate thresholds, raise a deduplicated
// alert, and enqueue actuator commands on state transitions. The reading
// is durable before any alert or command is derived from it.
func (c *Coordinator) IngestReading(ctx context.Context, input ReadingInput) (*IngestOutcome, error) {
	if input.DeviceID == "" {
		return nil, newValidationError("device_id", "must not be empty")
	}
	if !models.ValidSensorKind(input.SensorKind) {
		return nil, newValidationError("sensor_kind", "unsupported kind")
	}
	if input.Timestamp.IsZero() {
		input.Timestamp = time.Now().UTC()
	}

	session, err := c.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	reading := &models.SensorReading{
		SessionID:  session.ID,
		DeviceID:   input.DeviceID,
		SensorKind: input.SensorKind,
		Value:      input.Value,
		Unit:       input.Unit,
		Timestamp:  input.Timestamp,
	}

	opCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	err = c.readings.InsertReading(opCtx, reading)
	cancel()
	if err != nil {
		return nil, &StoreUnavailableError{Op: "insert reading", Err: err}
	}

	c.touchDevice(ctx, input.DeviceID, input.Timestamp)
	if err := c.cache.PutReading(ctx, reading); err != nil {
		c.logger.Warn("failed to cache reading", zap.Error(err))
	}

	outcome := &IngestOutcome{SessionID: session.ID}
	assessment := evaluator.AssessReading(input.SensorKind, input.Value)
	outcome.Severity = assessment.Severity

	if assessment.AlertKind != "" {
		outcome.AlertCreated = c.raiseAlert(ctx, session.ID, assessment)
	}

	outcome.CommandsEnqueued = c.actuate(ctx, session.ID, reading)

	return outcome, nil
}

// IngestFatigue persists one fatigue observation and raises an alert when
// the level is high. Fatigue drives no actuators.
func (c *Coordinator) IngestFatigue(ctx context.Context, input FatigueInput) (*IngestOutcome, error) {
	if input.DeviceID == "" {
		return nil, newValidationError("device_id", "must not be empty")
	}
	if !models.ValidFatigueKind(input.FatigueKind) {
		return nil, newValidationError("fatigue_kind", "unsupported kind")
	}
	if !models.ValidFatigueLevel(input.Level) {
		return nil, newValidationError("level", "unsupported level")
	}
	if input.Timestamp.IsZero() {
		input.Timestamp = time.Now().UTC()
	}

	session, err := c.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	obs := &models.FatigueObservation{
		SessionID:   session.ID,
		DeviceID:    input.DeviceID,
		FatigueKind: input.FatigueKind,
		Level:       input.Level,
		Timestamp:   input.Timestamp,
	}

	opCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	err = c.fatigue.InsertObservation(opCtx, obs)
	cancel()
	if err != nil {
		return nil, &StoreUnavailableError{Op: "insert fatigue observation", Err: err}
	}

	c.touchDevice(ctx, input.DeviceID, input.Timestamp)
	if err := c.cache.PutFatigue(ctx, obs); err != nil {
		c.logger.Warn("failed to cache fatigue observation", zap.Error(err))
	}

	outcome := &IngestOutcome{SessionID: session.ID}
	assessment := evaluator.AssessFatigue(input.FatigueKind, input.Level)
	outcome.Severity = assessment.Severity

	if assessment.AlertKind != "" {
		outcome.AlertCreated = c.raiseAlert(ctx, session.ID, assessment)
	}

	return outcome, nil
}

// RegisterDevice registers a device or refreshes an existing registration.
func (c *Coordinator) RegisterDevice(ctx context.Context, device *models.Device) error {
	if device.DeviceID == "" {
		return newValidationError("device_id", "must not be empty")
	}
	if device.LastSeen.IsZero() {
		device.LastSeen = time.Now().UTC()
	}
	if device.RegistrationState == "" {
		device.RegistrationState = models.DeviceActive
	}

	opCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	if err := c.devices.UpsertDevice(opCtx, device); err != nil {
		return &StoreUnavailableError{Op: "upsert device", Err: err}
	}

	c.logger.Info("device registered",
		zap.String("device_id", device.DeviceID),
		zap.String("kind", device.Kind))

	return nil
}

func (c *Coordinator) currentSession(ctx context.Context) (*models.Session, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	session, err := c.sessions.GetCurrentSession(opCtx)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "resolve session", Err: err}
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}
	return session, nil
}

func (c *Coordinator) touchDevice(ctx context.Context, deviceID string, seenAt time.Time) {
	found, err := c.devices.TouchDevice(ctx, deviceID, seenAt)
	if err != nil {
		c.logger.Warn("failed to touch device", zap.String("device_id", deviceID), zap.Error(err))
		return
	}
	if !found {
		c.logger.Debug("reading from unregistered device", zap.String("device_id", deviceID))
	}
}

// raiseAlert creates the alert through the dedup guard and fans it out.
// Fan-out failures never unwind the ingestion; the alert row is durable.
func (c *Coordinator) raiseAlert(ctx context.Context, sessionID string, assessment evaluator.Assessment) bool {
	alert := &models.Alert{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		AlertKind: assessment.AlertKind,
		Priority:  assessment.AlertPriority,
		Message:   assessment.AlertMessage,
		Timestamp: time.Now().UTC(),
	}

	created, err := c.dedup.CreateIfFresh(ctx, alert)
	if err != nil {
		c.logger.Error("failed to create alert",
			zap.String("alert_kind", alert.AlertKind),
			zap.Error(err))
		return false
	}
	if !created {
		return false
	}

	if c.stream != nil {
		if _, err := c.stream.Publish(ctx, alert); err != nil {
			c.logger.Warn("failed to publish alert to stream", zap.Error(err))
		}
	}
	if c.notify != nil {
		if err := c.notify.NotifyAlert(ctx, alert); err != nil {
			c.logger.Warn("failed to notify alert", zap.Error(err))
		}
	}

	return true
}

// actuate derives actuator intents from the new reading and enqueues
// commands edge-triggered. CO2 drives ventilation with hysteresis; CO2
// and noise jointly drive the status light.
func (c *Coordinator) actuate(ctx context.Context, sessionID string, reading *models.SensorReading) int {
	enqueued := 0

	switch reading.SensorKind {
	case models.SensorCO2:
		if c.dispatchVentilation(ctx, reading.DeviceID, reading.Value) {
			enqueued++
		}
		noise := c.counterpartValue(ctx, sessionID, models.SensorNoise, defaultNoiseValue)
		if c.dispatchStatusLED(ctx, reading.DeviceID, reading.Value, noise) {
			enqueued++
		}
	case models.SensorNoise:
		co2 := c.counterpartValue(ctx, sessionID, models.SensorCO2, defaultCO2Value)
		if c.dispatchStatusLED(ctx, reading.DeviceID, co2, reading.Value) {
			enqueued++
		}
	}

	return enqueued
}

func (c *Coordinator) dispatchVentilation(ctx context.Context, deviceID string, co2 float64) bool {
	previous := false
	last, err := c.dispatch.LastIntent(ctx, deviceID, models.ActuatorVentilation)
	if err != nil {
		c.logger.Warn("failed to read ventilation intent", zap.Error(err))
		return false
	}
	if last != nil {
		previous = last.Action == models.ActionVentilationOn
	}

	action := models.ActionVentilationOff
	if evaluator.VentilationIntent(co2, previous) {
		action = models.ActionVentilationOn
	}

	cmd, err := c.dispatch.Dispatch(ctx, deviceID, models.ActuatorVentilation, action, "")
	if err != nil {
		c.logger.Error("failed to dispatch ventilation command", zap.Error(err))
		return false
	}
	return cmd != nil
}

func (c *Coordinator) dispatchStatusLED(ctx context.Context, deviceID string, co2, noise float64) bool {
	led := evaluator.StatusLED(co2, noise)
	cmd, err := c.dispatch.Dispatch(ctx, deviceID, models.ActuatorStatusLED, models.ActionSetStatusLED, string(led))
	if err != nil {
		c.logger.Error("failed to dispatch status led command", zap.Error(err))
		return false
	}
	return cmd != nil
}

// counterpartValue fetches the latest reading of the other kind, cache
// first, PostgreSQL second, falling back to the nominal default.
func (c *Coordinator) counterpartValue(ctx context.Context, sessionID string, kind models.SensorKind, fallback float64) float64 {
	cached, err := c.cache.GetReading(ctx, sessionID, kind)
	if err == nil {
		return cached.Value
	}
	if !errors.Is(err, store.ErrMiss) {
		c.logger.Debug("cache lookup failed", zap.String("sensor_kind", string(kind)), zap.Error(err))
	}

	reading, err := c.readings.LatestReading(ctx, sessionID, kind)
	if err != nil {
		c.logger.Warn("failed to load latest reading", zap.String("sensor_kind", string(kind)), zap.Error(err))
		return fallback
	}
	if reading == nil {
		return fallback
	}
	return reading.Value
}

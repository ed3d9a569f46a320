// Package aggregator assembles the dashboard snapshot: session, latest
// environment per kind, fatigue levels, active alerts and device liveness
// in one read.
package aggregator

import (
	"context"
	"errors"
	"time"

	"deskwell/internal/evaluator"
	"deskwell/internal/liveness"
	"deskwell/internal/models"
	"deskwell/internal/repository"
	"deskwell/internal/store"

	"go.uber.org/zap"
)

// Nominal values shown when a session has no reading of a kind yet.
const (
	DefaultCO2         = 450.0
	DefaultNoise       = 45.0
	DefaultTemperature = 23.0
)

const activeAlertLimit = 5

// SessionSummary describes the current work session, zero-valued with
// Active false when none exists.
type SessionSummary struct {
	Active         bool      `json:"active"`
	SessionID      string    `json:"session_id,omitempty"`
	StartTime      time.Time `json:"start_time"`
	ElapsedMinutes int       `json:"elapsed_minutes"`
	PausesTaken    int       `json:"pauses_taken"`
}

// Measurement is one environment dimension with its severity band.
type Measurement struct {
	Value    float64            `json:"value"`
	Unit     string             `json:"unit"`
	Severity evaluator.Severity `json:"severity"`
}

// EnvironmentSummary is the latest value per sensor kind, defaults where
// no reading exists.
type EnvironmentSummary struct {
	CO2         Measurement `json:"co2"`
	Noise       Measurement `json:"noise"`
	Temperature Measurement `json:"temperature"`
}

// FatigueSummary is the latest level per fatigue kind within the trailing
// window, "low" where nothing was observed.
type FatigueSummary struct {
	Visual    models.FatigueLevel `json:"visual"`
	Postural  models.FatigueLevel `json:"postural"`
	Cognitive models.FatigueLevel `json:"cognitive"`
}

// ActuatorSummary is the actuator intent re-derived statelessly from the
// latest readings. It reflects what the environment calls for, not what
// commands are in flight.
type ActuatorSummary struct {
	VentilationOn bool               `json:"ventilation_on"`
	StatusLED     evaluator.LEDState `json:"status_led"`
}

// DeviceStatus is one registry entry with derived liveness.
type DeviceStatus struct {
	DeviceID  string    `json:"device_id"`
	Kind      string    `json:"kind"`
	Connected bool      `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// Snapshot is the full dashboard payload. Degraded flags that at least
// one section fell back to defaults because a lookup failed.
type Snapshot struct {
	Session     SessionSummary     `json:"session"`
	Environment EnvironmentSummary `json:"environment"`
	Fatigue     FatigueSummary     `json:"fatigue"`
	Actuators   ActuatorSummary    `json:"actuators"`
	Alerts      []*models.Alert    `json:"alerts"`
	Devices     []DeviceStatus     `json:"devices"`
	Degraded    bool               `json:"degraded"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Aggregator builds snapshots. Every lookup degrades to a default on
// failure; a snapshot is always produced.
type Aggregator struct {
	sessions repository.SessionsRepo
	readings repository.ReadingsRepo
	fatigue  repository.FatigueRepo
	alerts   repository.AlertsRepo
	devices  repository.DevicesRepo
	cache    *store.RealtimeCache
	liveness *liveness.Tracker
	logger   *zap.Logger

	fatigueWindow time.Duration
}

type Options struct {
	Sessions repository.SessionsRepo
	Readings repository.ReadingsRepo
	Fatigue  repository.FatigueRepo
	Alerts   repository.AlertsRepo
	Devices  repository.DevicesRepo
	Cache    *store.RealtimeCache
	Liveness *liveness.Tracker
	Logger   *zap.Logger

	FatigueWindow time.Duration
}

func New(opts Options) *Aggregator {
	if opts.FatigueWindow <= 0 {
		opts.FatigueWindow = 5 * time.Minute
	}
	return &Aggregator{
		sessions:      opts.Sessions,
		readings:      opts.Readings,
		fatigue:       opts.Fatigue,
		alerts:        opts.Alerts,
		devices:       opts.Devices,
		cache:         opts.Cache,
		liveness:      opts.Liveness,
		logger:        opts.Logger,
		fatigueWindow: opts.FatigueWindow,
	}
}

// Snapshot assembles the dashboard view at now. It never returns an
// error: partial failures degrade the affected section to defaults and
// set the Degraded flag.
func (a *Aggregator) Snapshot(ctx context.Context, now time.Time) *Snapshot {
	snap := &Snapshot{
		Environment: defaultEnvironment(),
		Fatigue:     defaultFatigue(),
		Alerts:      []*models.Alert{},
		Devices:     []DeviceStatus{},
		GeneratedAt: now,
	}

	snap.Devices = a.deviceStatuses(ctx, now, snap)

	session, err := a.sessions.GetCurrentSession(ctx)
	if err != nil {
		a.logger.Warn("snapshot: failed to resolve session", zap.Error(err))
		snap.Degraded = true
		snap.Actuators = deriveActuators(snap.Environment)
		return snap
	}
	if session == nil {
		snap.Actuators = deriveActuators(snap.Environment)
		return snap
	}

	snap.Session = SessionSummary{
		Active:         true,
		SessionID:      session.ID,
		StartTime:      session.StartTime,
		ElapsedMinutes: session.ElapsedMinutes,
		PausesTaken:    session.PausesTaken,
	}

	snap.Environment = a.environment(ctx, session.ID, snap)
	snap.Fatigue = a.fatigueLevels(ctx, session.ID, now, snap)
	snap.Alerts = a.activeAlerts(ctx, session.ID, snap)
	snap.Actuators = deriveActuators(snap.Environment)

	return snap
}

// deriveActuators recomputes actuator intent from the environment values
// alone. Command state is deliberately ignored: the dashboard shows what
// conditions call for, the command log shows what was dispatched.
func deriveActuators(env EnvironmentSummary) ActuatorSummary {
	return ActuatorSummary{
		VentilationOn: evaluator.VentilationIntent(env.CO2.Value, false),
		StatusLED:     evaluator.StatusLED(env.CO2.Value, env.Noise.Value),
	}
}

func defaultEnvironment() EnvironmentSummary {
	return EnvironmentSummary{
		CO2:         measurement(models.SensorCO2, DefaultCO2, "ppm"),
		Noise:       measurement(models.SensorNoise, DefaultNoise, "dB"),
		Temperature: measurement(models.SensorTemperature, DefaultTemperature, "C"),
	}
}

func defaultFatigue() FatigueSummary {
	return FatigueSummary{
		Visual:    models.FatigueLow,
		Postural:  models.FatigueLow,
		Cognitive: models.FatigueLow,
	}
}

func measurement(kind models.SensorKind, value float64, unit string) Measurement {
	return Measurement{
		Value:    value,
		Unit:     unit,
		Severity: evaluator.AssessReading(kind, value).Severity,
	}
}

func (a *Aggregator) environment(ctx context.Context, sessionID string, snap *Snapshot) EnvironmentSummary {
	env := defaultEnvironment()

	if r := a.latestReading(ctx, sessionID, models.SensorCO2, snap); r != nil {
		env.CO2 = measurement(models.SensorCO2, r.Value, r.Unit)
	}
	if r := a.latestReading(ctx, sessionID, models.SensorNoise, snap); r != nil {
		env.Noise = measurement(models.SensorNoise, r.Value, r.Unit)
	}
	if r := a.latestReading(ctx, sessionID, models.SensorTemperature, snap); r != nil {
		env.Temperature = measurement(models.SensorTemperature, r.Value, r.Unit)
	}

	return env
}

// latestReading reads cache first and falls back to PostgreSQL. Returns
// nil when the session has no reading of the kind.
func (a *Aggregator) latestReading(ctx context.Context, sessionID string, kind models.SensorKind, snap *Snapshot) *models.SensorReading {
	cached, err := a.cache.GetReading(ctx, sessionID, kind)
	if err == nil {
		return cached
	}
	if !errors.Is(err, store.ErrMiss) {
		a.logger.Debug("snapshot: cache lookup failed",
			zap.String("sensor_kind", string(kind)), zap.Error(err))
	}

	reading, err := a.readings.LatestReading(ctx, sessionID, kind)
	if err != nil {
		a.logger.Warn("snapshot: failed to load latest reading",
			zap.String("sensor_kind", string(kind)), zap.Error(err))
		snap.Degraded = true
		return nil
	}
	return reading
}

func (a *Aggregator) fatigueLevels(ctx context.Context, sessionID string, now time.Time, snap *Snapshot) FatigueSummary {
	summary := defaultFatigue()

	levels, err := a.fatigue.LatestLevels(ctx, sessionID, now.Add(-a.fatigueWindow))
	if err != nil {
		a.logger.Warn("snapshot: failed to load fatigue levels", zap.Error(err))
		snap.Degraded = true
		return summary
	}

	if level, ok := levels[models.FatigueVisual]; ok {
		summary.Visual = level
	}
	if level, ok := levels[models.FatiguePostural]; ok {
		summary.Postural = level
	}
	if level, ok := levels[models.FatigueCognitive]; ok {
		summary.Cognitive = level
	}

	return summary
}

func (a *Aggregator) activeAlerts(ctx context.Context, sessionID string, snap *Snapshot) []*models.Alert {
	alerts, err := a.alerts.ListActiveAlerts(ctx, sessionID, activeAlertLimit)
	if err != nil {
		a.logger.Warn("snapshot: failed to load active alerts", zap.Error(err))
		snap.Degraded = true
		return []*models.Alert{}
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	return alerts
}

func (a *Aggregator) deviceStatuses(ctx context.Context, now time.Time, snap *Snapshot) []DeviceStatus {
	devices, err := a.devices.ListDevices(ctx)
	if err != nil {
		a.logger.Warn("snapshot: failed to list devices", zap.Error(err))
		snap.Degraded = true
		return []DeviceStatus{}
	}

	statuses := make([]DeviceStatus, 0, len(devices))
	for _, d := range devices {
		statuses = append(statuses, DeviceStatus{
			DeviceID:  d.DeviceID,
			Kind:      d.Kind,
			Connected: a.liveness.DeviceConnected(d, now),
			LastSeen:  d.LastSeen,
		})
	}
	return statuses
}

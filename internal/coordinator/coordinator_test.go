package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"deskwell/internal/alerting"
	"deskwell/internal/dispatcher"
	"deskwell/internal/evaluator"
	"deskwell/internal/models"
	"deskwell/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------- fakes ----------

type fakeSessionsRepo struct {
	session *models.Session
	err     error
}

func (f *fakeSessionsRepo) GetCurrentSession(_ context.Context) (*models.Session, error) {
	return f.session, f.err
}

type fakeReadingsRepo struct {
	inserted  []*models.SensorReading
	insertErr error
	latest    map[models.SensorKind]*models.SensorReading
}

func (f *fakeReadingsRepo) InsertReading(_ context.Context, reading *models.SensorReading) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	reading.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, reading)
	return nil
}

func (f *fakeReadingsRepo) LatestReading(_ context.Context, _ string, kind models.SensorKind) (*models.SensorReading, error) {
	return f.latest[kind], nil
}

func (f *fakeReadingsRepo) LatestReadings(_ context.Context, _ string) (map[models.SensorKind]*models.SensorReading, error) {
	return f.latest, nil
}

type fakeFatigueRepo struct {
	inserted []*models.FatigueObservation
}

func (f *fakeFatigueRepo) InsertObservation(_ context.Context, obs *models.FatigueObservation) error {
	obs.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, obs)
	return nil
}

func (f *fakeFatigueRepo) LatestLevels(_ context.Context, _ string, _ time.Time) (map[models.FatigueKind]models.FatigueLevel, error) {
	return nil, nil
}

type fakeDevicesRepo struct {
	upserted []*models.Device
	touched  []string
	known    bool
}

func (f *fakeDevicesRepo) UpsertDevice(_ context.Context, device *models.Device) error {
	f.upserted = append(f.upserted, device)
	return nil
}

func (f *fakeDevicesRepo) TouchDevice(_ context.Context, deviceID string, _ time.Time) (bool, error) {
	f.touched = append(f.touched, deviceID)
	return f.known, nil
}

func (f *fakeDevicesRepo) GetDevice(_ context.Context, _ string) (*models.Device, error) {
	return nil, nil
}

func (f *fakeDevicesRepo) ListDevices(_ context.Context) ([]*models.Device, error) {
	return nil, nil
}

type fakeAlertsRepo struct {
	created []*models.Alert
	recent  bool
}

func (f *fakeAlertsRepo) CreateAlert(_ context.Context, alert *models.Alert) error {
	f.created = append(f.created, alert)
	return nil
}

func (f *fakeAlertsRepo) HasRecentAlert(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return f.recent, nil
}

func (f *fakeAlertsRepo) ListActiveAlerts(_ context.Context, _ string, _ int) ([]*models.Alert, error) {
	return nil, nil
}

type fakeCommandsRepo struct {
	created []*models.Command
	latest  map[string]*models.Command // keyed by actuator
}

func (f *fakeCommandsRepo) CreateCommand(_ context.Context, cmd *models.Command) error {
	f.created = append(f.created, cmd)
	return nil
}

func (f *fakeCommandsRepo) ListPendingCommands(_ context.Context, _ string) ([]*models.Command, error) {
	return nil, nil
}

func (f *fakeCommandsRepo) LatestNonFailedCommand(_ context.Context, _, actuator string) (*models.Command, error) {
	return f.latest[actuator], nil
}

func (f *fakeCommandsRepo) ResolveCommand(_ context.Context, _, _ string, _ models.CommandState, _ time.Time) (bool, error) {
	return true, nil
}

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: make(map[string]string)} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type fakeStream struct {
	published []any
}

func (f *fakeStream) Publish(_ context.Context, alert any) (string, error) {
	f.published = append(f.published, alert)
	return "1-0", nil
}

type fakeNotifier struct {
	notified []*models.Alert
}

func (f *fakeNotifier) NotifyAlert(_ context.Context, alert *models.Alert) error {
	f.notified = append(f.notified, alert)
	return nil
}

// ---------- harness ----------

type harness struct {
	coord    *Coordinator
	sessions *fakeSessionsRepo
	readings *fakeReadingsRepo
	fatigue  *fakeFatigueRepo
	devices  *fakeDevicesRepo
	alerts   *fakeAlertsRepo
	commands *fakeCommandsRepo
	stream   *fakeStream
	notify   *fakeNotifier
}

func newHarness() *harness {
	logger := zap.NewNop()
	h := &harness{
		sessions: &fakeSessionsRepo{session: &models.Session{
			ID:    uuid.New().String(),
			State: models.SessionActive,
		}},
		readings: &fakeReadingsRepo{latest: map[models.SensorKind]*models.SensorReading{}},
		fatigue:  &fakeFatigueRepo{},
		devices:  &fakeDevicesRepo{known: true},
		alerts:   &fakeAlertsRepo{},
		commands: &fakeCommandsRepo{latest: map[string]*models.Command{}},
		stream:   &fakeStream{},
		notify:   &fakeNotifier{},
	}
	h.coord = New(Options{
		Sessions:     h.sessions,
		Readings:     h.readings,
		Fatigue:      h.fatigue,
		Devices:      h.devices,
		Dedup:        alerting.NewDeduplicator(h.alerts, 2*time.Minute, logger),
		Dispatch:     dispatcher.NewDispatcher(h.commands, logger),
		Cache:        store.NewRealtimeCache(newMemKV(), "test:", time.Minute),
		Stream:       h.stream,
		Notify:       h.notify,
		Logger:       logger,
		StoreTimeout: time.Second,
	})
	return h
}

func co2Input(value float64) ReadingInput {
	return ReadingInput{
		DeviceID:   "esp32-desk-01",
		SensorKind: models.SensorCO2,
		Value:      value,
		Unit:       "ppm",
		Timestamp:  time.Now(),
	}
}

// ---------- tests ----------

func TestIngestReading_PersistsAndCaches(t *testing.T) {
	h := newHarness()

	outcome, err := h.coord.IngestReading(context.Background(), co2Input(600))
	require.NoError(t, err)
	assert.Equal(t, evaluator.SeverityOptimal, outcome.Severity)
	assert.False(t, outcome.AlertCreated)
	require.Len(t, h.readings.inserted, 1)
	assert.Equal(t, h.sessions.session.ID, h.readings.inserted[0].SessionID)
	assert.Contains(t, h.devices.touched, "esp32-desk-01")
}

func TestIngestReading_RejectsUnknownKind(t *testing.T) {
	h := newHarness()

	_, err := h.coord.IngestReading(context.Background(), ReadingInput{
		DeviceID:   "esp32-desk-01",
		SensorKind: "humidity",
		Value:      40,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sensor_kind", verr.Field)
	assert.Empty(t, h.readings.inserted)
}

func TestIngestReading_NoActiveSession(t *testing.T) {
	h := newHarness()
	h.sessions.session = nil

	_, err := h.coord.IngestReading(context.Background(), co2Input(600))
	require.ErrorIs(t, err, ErrNoActiveSession)
	assert.Empty(t, h.readings.inserted)
}

func TestIngestReading_StoreFailureSurfaces(t *testing.T) {
	h := newHarness()
	h.readings.insertErr = errors.New("connection refused")

	_, err := h.coord.IngestReading(context.Background(), co2Input(600))
	var serr *StoreUnavailableError
	require.ErrorAs(t, err, &serr)
	assert.Empty(t, h.alerts.created)
	assert.Empty(t, h.commands.created)
}

func TestIngestReading_CriticalCO2RaisesAlertAndFansOut(t *testing.T) {
	h := newHarness()

	outcome, err := h.coord.IngestReading(context.Background(), co2Input(1600))
	require.NoError(t, err)
	assert.Equal(t, evaluator.SeverityCritical, outcome.Severity)
	assert.True(t, outcome.AlertCreated)

	require.Len(t, h.alerts.created, 1)
	assert.Equal(t, models.AlertCO2Critical, h.alerts.created[0].AlertKind)
	assert.Equal(t, models.PriorityHigh, h.alerts.created[0].Priority)
	assert.Len(t, h.stream.published, 1)
	assert.Len(t, h.notify.notified, 1)
}

func TestIngestReading_DuplicateAlertSuppressed(t *testing.T) {
	h := newHarness()
	h.alerts.recent = true

	outcome, err := h.coord.IngestReading(context.Background(), co2Input(1600))
	require.NoError(t, err)
	assert.False(t, outcome.AlertCreated)
	assert.Empty(t, h.alerts.created)
	assert.Empty(t, h.stream.published)
}

func TestIngestReading_HighCO2EnqueuesVentilationAndLED(t *testing.T) {
	h := newHarness()

	outcome, err := h.coord.IngestReading(context.Background(), co2Input(1300))
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.CommandsEnqueued)

	actions := map[string]string{}
	for _, cmd := range h.commands.created {
		actions[cmd.Actuator] = cmd.Action
		assert.Equal(t, models.CommandPending, cmd.State)
	}
	assert.Equal(t, models.ActionVentilationOn, actions[models.ActuatorVentilation])
	assert.Equal(t, models.ActionSetStatusLED, actions[models.ActuatorStatusLED])
}

func TestIngestReading_DeadbandRetainsPreviousIntent(t *testing.T) {
	h := newHarness()
	h.commands.latest[models.ActuatorVentilation] = &models.Command{
		Action: models.ActionVentilationOn,
		State:  models.CommandConfirmed,
	}

	// 1100 ppm sits inside the deadband; the prior ON intent stands, so no
	// new ventilation command is enqueued.
	_, err := h.coord.IngestReading(context.Background(), co2Input(1100))
	require.NoError(t, err)
	for _, cmd := range h.commands.created {
		assert.NotEqual(t, models.ActuatorVentilation, cmd.Actuator)
	}
}

func TestIngestReading_CO2DropEnqueuesVentilationOff(t *testing.T) {
	h := newHarness()
	h.commands.latest[models.ActuatorVentilation] = &models.Command{
		Action: models.ActionVentilationOn,
		State:  models.CommandConfirmed,
	}

	_, err := h.coord.IngestReading(context.Background(), co2Input(900))
	require.NoError(t, err)

	var ventAction string
	for _, cmd := range h.commands.created {
		if cmd.Actuator == models.ActuatorVentilation {
			ventAction = cmd.Action
		}
	}
	assert.Equal(t, models.ActionVentilationOff, ventAction)
}

func TestIngestReading_UnchangedLEDNotReissued(t *testing.T) {
	h := newHarness()
	h.commands.latest[models.ActuatorVentilation] = &models.Command{
		Action: models.ActionVentilationOff,
		State:  models.CommandConfirmed,
	}
	h.commands.latest[models.ActuatorStatusLED] = &models.Command{
		Action:    models.ActionSetStatusLED,
		Parameter: "ok",
		State:     models.CommandConfirmed,
	}

	// 600 ppm with default noise maps to "ok", same as the last intent.
	outcome, err := h.coord.IngestReading(context.Background(), co2Input(600))
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.CommandsEnqueued)
}

func TestIngestReading_NoiseDrivesLEDWithLatestCO2(t *testing.T) {
	h := newHarness()
	h.readings.latest[models.SensorCO2] = &models.SensorReading{
		SensorKind: models.SensorCO2,
		Value:      1300,
	}

	_, err := h.coord.IngestReading(context.Background(), ReadingInput{
		DeviceID:   "esp32-desk-01",
		SensorKind: models.SensorNoise,
		Value:      40,
		Unit:       "dB",
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)

	var ledParam string
	for _, cmd := range h.commands.created {
		if cmd.Actuator == models.ActuatorStatusLED {
			ledParam = cmd.Parameter
		}
	}
	assert.Equal(t, string(evaluator.LEDAlert), ledParam)
}

func TestIngestFatigue_HighLevelRaisesAlert(t *testing.T) {
	h := newHarness()

	outcome, err := h.coord.IngestFatigue(context.Background(), FatigueInput{
		DeviceID:    "fatigue-cam-01",
		FatigueKind: models.FatigueVisual,
		Level:       models.FatigueHigh,
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, outcome.AlertCreated)
	require.Len(t, h.fatigue.inserted, 1)
	require.Len(t, h.alerts.created, 1)
	assert.Equal(t, models.AlertVisualFatigue, h.alerts.created[0].AlertKind)
	// Fatigue never drives actuators.
	assert.Empty(t, h.commands.created)
}

func TestIngestFatigue_ModerateLevelNoAlert(t *testing.T) {
	h := newHarness()

	outcome, err := h.coord.IngestFatigue(context.Background(), FatigueInput{
		DeviceID:    "fatigue-cam-01",
		FatigueKind: models.FatiguePostural,
		Level:       models.FatigueModerate,
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, outcome.AlertCreated)
	require.Len(t, h.fatigue.inserted, 1)
	assert.Empty(t, h.alerts.created)
}

func TestIngestFatigue_RejectsBadLevel(t *testing.T) {
	h := newHarness()

	_, err := h.coord.IngestFatigue(context.Background(), FatigueInput{
		DeviceID:    "fatigue-cam-01",
		FatigueKind: models.FatigueVisual,
		Level:       "exhausted",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "level", verr.Field)
}

func TestRegisterDevice(t *testing.T) {
	h := newHarness()

	device := &models.Device{
		DeviceID:           "esp32-desk-01",
		Kind:               "ambient",
		SensorCapabilities: []string{"co2"},
	}
	require.NoError(t, h.coord.RegisterDevice(context.Background(), device))
	require.Len(t, h.devices.upserted, 1)
	assert.Equal(t, models.DeviceActive, device.RegistrationState)
	assert.False(t, device.LastSeen.IsZero())
}

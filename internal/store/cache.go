package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"deskwell/internal/models"
)

// RealtimeCache keeps the latest reading and fatigue level per kind so the
// aggregate view can serve them without hitting PostgreSQL on every poll.
type RealtimeCache struct {
	kv     KV
	prefix string
	ttl    time.Duration
}

func NewRealtimeCache(kv KV, prefix string, ttl time.Duration) *RealtimeCache {
	return &RealtimeCache{kv: kv, prefix: prefix, ttl: ttl}
}

func (c *RealtimeCache) readingKey(sessionID string, kind models.SensorKind) string {
	return fmt.Sprintf("%s%s:reading:%s", c.prefix, sessionID, kind)
}

func (c *RealtimeCache) fatigueKey(sessionID string, kind models.FatigueKind) string {
	return fmt.Sprintf("%s%s:fatigue:%s", c.prefix, sessionID, kind)
}

// PutReading caches the latest reading for its sensor kind.
func (c *RealtimeCache) PutReading(ctx context.Context, reading *models.SensorReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	return c.kv.Set(ctx, c.readingKey(reading.SessionID, reading.SensorKind), string(payload), c.ttl)
}

// GetReading returns the cached latest reading for a kind, or ErrMiss.
func (c *RealtimeCache) GetReading(ctx context.Context, sessionID string, kind models.SensorKind) (*models.SensorReading, error) {
	raw, err := c.kv.Get(ctx, c.readingKey(sessionID, kind))
	if err != nil {
		return nil, err
	}
	var reading models.SensorReading
	if err := json.Unmarshal([]byte(raw), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached reading: %w", err)
	}
	return &reading, nil
}

// PutFatigue caches the latest fatigue observation for its kind.
func (c *RealtimeCache) PutFatigue(ctx context.Context, obs *models.FatigueObservation) error {
	payload, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("failed to marshal fatigue observation: %w", err)
	}
	return c.kv.Set(ctx, c.fatigueKey(obs.SessionID, obs.FatigueKind), string(payload), c.ttl)
}

// GetFatigue returns the cached latest fatigue observation, or ErrMiss.
func (c *RealtimeCache) GetFatigue(ctx context.Context, sessionID string, kind models.FatigueKind) (*models.FatigueObservation, error) {
	raw, err := c.kv.Get(ctx, c.fatigueKey(sessionID, kind))
	if err != nil {
		return nil, err
	}
	var obs models.FatigueObservation
	if err := json.Unmarshal([]byte(raw), &obs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached fatigue observation: %w", err)
	}
	return &obs, nil
}

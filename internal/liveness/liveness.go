// Package liveness classifies devices as connected or disconnected from
// their last-seen timestamps. Purely derived; no state of its own.
package liveness

import (
	"time"

	"deskwell/internal/models"
)

// DefaultThreshold balances false "disconnected" flips against staleness
// tolerance for a polling cadence of several seconds.
const DefaultThreshold = 60 * time.Second

type Tracker struct {
	threshold time.Duration
}

func NewTracker(threshold time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{threshold: threshold}
}

// Connected reports whether a device with the given last-seen timestamp
// counts as connected at the given instant.
func (t *Tracker) Connected(lastSeen, now time.Time) bool {
	return now.Sub(lastSeen) < t.threshold
}

// DeviceConnected is a convenience wrapper over Connected.
func (t *Tracker) DeviceConnected(d *models.Device, now time.Time) bool {
	return t.Connected(d.LastSeen, now)
}

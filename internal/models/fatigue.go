package models

import "time"

// FatigueKind identifies which fatigue proxy an observation describes.
type FatigueKind string

const (
	FatigueVisual    FatigueKind = "visual"
	FatiguePostural  FatigueKind = "postural"
	FatigueCognitive FatigueKind = "cognitive"
)

// FatigueLevel is the detector's classification for one observation.
type FatigueLevel string

const (
	FatigueLow      FatigueLevel = "low"
	FatigueModerate FatigueLevel = "moderate"
	FatigueHigh     FatigueLevel = "high"
)

// ValidFatigueKind reports whether k is a supported fatigue kind.
func ValidFatigueKind(k FatigueKind) bool {
	switch k {
	case FatigueVisual, FatiguePostural, FatigueCognitive:
		return true
	}
	return false
}

// ValidFatigueLevel reports whether l is a supported fatigue level.
func ValidFatigueLevel(l FatigueLevel) bool {
	switch l {
	case FatigueLow, FatigueModerate, FatigueHigh:
		return true
	}
	return false
}

// FatigueObservation is one detector output. Immutable, append-only.
type FatigueObservation struct {
	ID          int64        `json:"id"`
	SessionID   string       `json:"session_id"`
	DeviceID    string       `json:"device_id"`
	FatigueKind FatigueKind  `json:"fatigue_kind"`
	Level       FatigueLevel `json:"level"`
	Timestamp   time.Time    `json:"timestamp"`
}

package models

import "time"

// SensorKind identifies the physical quantity a reading measures.
type SensorKind string

const (
	SensorCO2         SensorKind = "co2"
	SensorNoise       SensorKind = "noise"
	SensorTemperature SensorKind = "temperature"
)

// ValidSensorKind reports whether k is one of the supported sensor kinds.
func ValidSensorKind(k SensorKind) bool {
	switch k {
	case SensorCO2, SensorNoise, SensorTemperature:
		return true
	}
	return false
}

// SensorReading is a single measurement reported by an edge device.
// Readings are immutable once written and append-only per session.
type SensorReading struct {
	ID         int64      `json:"id"`
	SessionID  string     `json:"session_id"`
	DeviceID   string     `json:"device_id"`
	SensorKind SensorKind `json:"sensor_kind"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit"`
	Timestamp  time.Time  `json:"timestamp"`
}

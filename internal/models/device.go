package models

import "time"

// Device is a registered polling edge unit. Upserted on (re)registration,
// last_seen refreshed on every inbound interaction.
type Device struct {
	DeviceID             string    `json:"device_id"`
	Kind                 string    `json:"kind"`
	SensorCapabilities   []string  `json:"sensor_capabilities"`
	ActuatorCapabilities []string  `json:"actuator_capabilities"`
	LastSeen             time.Time `json:"last_seen"`
	RegistrationState    string    `json:"registration_state"`
}

// Device registration states.
const (
	DeviceActive   = "active"
	DeviceInactive = "inactive"
)

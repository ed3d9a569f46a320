package models

import "time"

// CommandState is the lifecycle state of a device-bound command.
// Transitions are monotone: pending -> confirmed | failed, never out of a
// terminal state.
type CommandState string

const (
	CommandPending   CommandState = "pending"
	CommandConfirmed CommandState = "confirmed"
	CommandFailed    CommandState = "failed"
)

// Terminal reports whether s is a terminal command state.
func (s CommandState) Terminal() bool {
	return s == CommandConfirmed || s == CommandFailed
}

// Actuators addressable on an edge device.
const (
	ActuatorVentilation = "ventilation"
	ActuatorStatusLED   = "status_led"
)

// Actions understood by the edge firmware.
const (
	ActionVentilationOn  = "ventilation_on"
	ActionVentilationOff = "ventilation_off"
	ActionSetStatusLED   = "set_status_led"
)

// ActuatorForAction maps an action to the actuator it targets. Unknown
// actions (operator free-form commands) map to their own dispatch lane.
func ActuatorForAction(action string) string {
	switch action {
	case ActionVentilationOn, ActionVentilationOff:
		return ActuatorVentilation
	case ActionSetStatusLED:
		return ActuatorStatusLED
	}
	return action
}

// Command is one unit of actuator intent bound for a polling device.
type Command struct {
	ID         string       `json:"id"`
	DeviceID   string       `json:"device_id"`
	Actuator   string       `json:"actuator"`
	Action     string       `json:"action"`
	Parameter  string       `json:"parameter"`
	State      CommandState `json:"state"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
}

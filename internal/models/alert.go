package models

import "time"

// AlertPriority orders alerts on the dashboard: high < medium < low.
type AlertPriority string

const (
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
	PriorityLow    AlertPriority = "low"
)

// PriorityRank maps a priority to its sort rank (lower sorts first).
func PriorityRank(p AlertPriority) int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// Alert kinds produced by the threshold evaluator.
const (
	AlertCO2Critical           = "co2_critical"
	AlertCO2Elevated           = "co2_elevated"
	AlertNoiseHigh             = "noise_high"
	AlertTemperatureDiscomfort = "temperature_discomfort"
	AlertVisualFatigue         = "visual_fatigue"
	AlertPosturalFatigue       = "postural_fatigue"
	AlertCognitiveFatigue      = "cognitive_fatigue"
)

// Alert is created by the coordinator and mutated only by the presentation
// client afterwards (viewed / dismissed flags).
type Alert struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	AlertKind string        `json:"alert_kind"`
	Priority  AlertPriority `json:"priority"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Viewed    bool          `json:"viewed"`
	Dismissed bool          `json:"dismissed"`
}

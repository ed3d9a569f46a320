package evaluator

import (
	"fmt"

	"deskwell/internal/models"
)

// Severity is the band a sensor value falls into.
type Severity string

const (
	// CO2 bands (ppm).
	SeverityOptimal        Severity = "optimal"
	SeverityAcceptable     Severity = "acceptable"
	SeverityCriticalRising Severity = "critical_rising"
	SeverityCritical       Severity = "critical"

	// Noise bands (dB).
	SeverityCalm     Severity = "calm"
	SeverityModerate Severity = "moderate"
	SeverityLoud     Severity = "loud"

	// Temperature bands (degrees C).
	SeverityComfortable Severity = "comfortable"
	SeverityDiscomfort  Severity = "discomfort"

	SeverityUnknown Severity = "unknown"
)

// CO2 thresholds. The ventilation actuator uses two distinct thresholds
// per direction: ON above CO2VentilationOn, OFF below CO2VentilationOff,
// previous intent retained inside the deadband between them.
const (
	CO2Optimal        = 800.0
	CO2Acceptable     = 1000.0
	CO2Critical       = 1500.0
	CO2VentilationOff = 1000.0
	CO2VentilationOn  = 1200.0
)

// Noise thresholds (dB).
const (
	NoiseCalm  = 50.0
	NoiseLoud  = 65.0
	NoiseAlert = 70.0
)

// Temperature comfort range (degrees C).
const (
	TemperatureComfortMin = 18.0
	TemperatureComfortMax = 27.0
)

// LEDState is the desired status-light color class.
type LEDState string

const (
	LEDOk      LEDState = "ok"
	LEDCaution LEDState = "caution"
	LEDAlert   LEDState = "alert"
)

// Assessment is the evaluator's verdict for one value: the severity band
// plus the alert it warrants, if any (AlertKind empty means none).
type Assessment struct {
	Severity      Severity
	AlertKind     string
	AlertPriority models.AlertPriority
	AlertMessage  string
}

// AssessReading maps a sensor value to its severity band and alert verdict.
// Pure and stateless.
func AssessReading(kind models.SensorKind, value float64) Assessment {
	switch kind {
	case models.SensorCO2:
		return assessCO2(value)
	case models.SensorNoise:
		return assessNoise(value)
	case models.SensorTemperature:
		return assessTemperature(value)
	}
	return Assessment{Severity: SeverityUnknown}
}

func assessCO2(value float64) Assessment {
	switch {
	case value < CO2Optimal:
		return Assessment{Severity: SeverityOptimal}
	case value < CO2Acceptable:
		return Assessment{Severity: SeverityAcceptable}
	case value < CO2Critical:
		return Assessment{
			Severity:      SeverityCriticalRising,
			AlertKind:     models.AlertCO2Elevated,
			AlertPriority: models.PriorityMedium,
			AlertMessage:  fmt.Sprintf("CO2 elevated: %.0f ppm. Consider ventilating.", value),
		}
	default:
		return Assessment{
			Severity:      SeverityCritical,
			AlertKind:     models.AlertCO2Critical,
			AlertPriority: models.PriorityHigh,
			AlertMessage:  fmt.Sprintf("CO2 critical: %.0f ppm. Ventilation required.", value),
		}
	}
}

func assessNoise(value float64) Assessment {
	switch {
	case value < NoiseCalm:
		return Assessment{Severity: SeverityCalm}
	case value < NoiseLoud:
		return Assessment{Severity: SeverityModerate}
	default:
		return Assessment{
			Severity:      SeverityLoud,
			AlertKind:     models.AlertNoiseHigh,
			AlertPriority: models.PriorityMedium,
			AlertMessage:  fmt.Sprintf("Noise level high: %.0f dB.", value),
		}
	}
}

func assessTemperature(value float64) Assessment {
	if value >= TemperatureComfortMin && value <= TemperatureComfortMax {
		return Assessment{Severity: SeverityComfortable}
	}
	return Assessment{
		Severity:      SeverityDiscomfort,
		AlertKind:     models.AlertTemperatureDiscomfort,
		AlertPriority: models.PriorityLow,
		AlertMessage:  fmt.Sprintf("Temperature outside comfort range: %.1f C.", value),
	}
}

// VentilationIntent computes the desired ventilation state from a CO2 value
// with hysteresis. The previous intent is supplied by the caller; inside
// the [CO2VentilationOff, CO2VentilationOn] deadband it is retained.
func VentilationIntent(co2 float64, previous bool) bool {
	switch {
	case co2 > CO2VentilationOn:
		return true
	case co2 < CO2VentilationOff:
		return false
	default:
		return previous
	}
}

// StatusLED derives the status-light intent from the latest CO2 and noise
// values jointly.
func StatusLED(co2, noise float64) LEDState {
	switch {
	case co2 >= CO2VentilationOn || noise >= NoiseAlert:
		return LEDAlert
	case co2 >= CO2Optimal || noise >= NoiseCalm:
		return LEDCaution
	default:
		return LEDOk
	}
}

// AssessFatigue maps a fatigue observation to an alert verdict. Only high
// levels are alert-worthy.
func AssessFatigue(kind models.FatigueKind, level models.FatigueLevel) Assessment {
	if level != models.FatigueHigh {
		return Assessment{Severity: Severity(level)}
	}

	var alertKind string
	switch kind {
	case models.FatigueVisual:
		alertKind = models.AlertVisualFatigue
	case models.FatiguePostural:
		alertKind = models.AlertPosturalFatigue
	case models.FatigueCognitive:
		alertKind = models.AlertCognitiveFatigue
	default:
		return Assessment{Severity: SeverityUnknown}
	}

	return Assessment{
		Severity:      Severity(level),
		AlertKind:     alertKind,
		AlertPriority: models.PriorityMedium,
		AlertMessage:  fmt.Sprintf("High %s fatigue detected. Take a break.", kind),
	}
}

// Package units provides shared constants and conversions for speed units.
// The simulation core works exclusively in SI (metres, seconds); configuration
// inputs and report outputs use km/h, so conversions live here.
package units

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// KmhToMps converts a speed from km/h to m/s.
func KmhToMps(kmh float64) float64 {
	return kmh / 3.6
}

// MpsToKmh converts a speed from m/s to km/h.
func MpsToKmh(mps float64) float64 {
	return mps * 3.6
}

// ConvertSpeed converts a speed from meters per second to the target units.
// The simulation state stores speeds in m/s (meters per second).
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.23694 // m/s to mph
	case KMPH, KPH:
		return speedMPS * 3.6 // m/s to km/h
	case MPS:
		return speedMPS // no conversion needed
	default:
		return speedMPS // default to m/s if unknown unit
	}
}

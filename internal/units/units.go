// Package units provides the unit constants and conversions used at the edges
// of the planner. Everything inside the planner is SI: metres, seconds, m/s
// and radians. Values arriving from the simulator (mph, degrees) are converted
// here and nowhere else.
package units

import "math"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

const mpsPerMPH = 0.44704

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

// ConvertSpeed converts a speed from meters per second to the target units.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS / mpsPerMPH
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// MPHToMPS converts miles per hour to metres per second.
func MPHToMPS(mph float64) float64 { return mph * mpsPerMPH }

// MPSToMPH converts metres per second to miles per hour.
func MPSToMPH(mps float64) float64 { return mps / mpsPerMPH }

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

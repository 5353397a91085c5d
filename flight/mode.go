// Package flight classifies the current flight mode (ground, plane,
// wingsuit, freefall, canopy) from horizontal and vertical speed.
package flight

import "math"

const (
	ModeUnknown  = 0
	ModeGround   = 1
	ModePlane    = 2
	ModeWingsuit = 3
	ModeFreefall = 4
	ModeCanopy   = 5
)

var modeString = []string{
	"", "Ground", "Plane", "Wingsuit", "Freefall", "Canopy",
}

// EvaluateSpeeds classifies a (groundSpeed, climb) point. The decision
// boundaries are piecewise-linear cuts in speed space, hand-tuned
// against logged jumps.
func EvaluateSpeeds(groundSpeed, climb float64) int {
	switch {
	case -0.3*groundSpeed+7 < climb && 33 < groundSpeed:
		return ModePlane
	case climb < -13 && climb < -groundSpeed-10 && groundSpeed < 19:
		return ModeFreefall
	case climb < groundSpeed-32 && climb < -0.3*groundSpeed+5.5:
		return ModeWingsuit
	case climb < -17:
		return ModeWingsuit
	case -18 < climb && climb < -1.1 && groundSpeed-31 < climb &&
		climb < groundSpeed-4 && 1.1 < groundSpeed && groundSpeed < 23.5 &&
		climb < -groundSpeed+20:
		return ModeCanopy
	case groundSpeed+math.Abs(climb-1) < 5:
		return ModeGround
	case -1 < climb && climb < 2 && !(groundSpeed > 10):
		return ModeGround
	default:
		return ModeUnknown
	}
}

// GetMode classifies a fix, with a ground override for slow movement.
func GetMode(groundSpeed, climb float64) int {
	mode := EvaluateSpeeds(groundSpeed, climb)
	if groundSpeed+math.Abs(climb-1) < 5 {
		return ModeGround
	}
	if -1 < climb && climb < 2 && !(groundSpeed > 10) {
		return ModeGround
	}
	return mode
}

// IsFlight reports whether the mode represents airborne flight.
func IsFlight(mode int) bool {
	return mode == ModePlane || mode == ModeWingsuit || mode == ModeFreefall || mode == ModeCanopy
}

// ModeString returns a human readable mode name.
func ModeString(mode int) string {
	if mode < 0 || mode >= len(modeString) {
		return ""
	}
	return modeString[mode]
}

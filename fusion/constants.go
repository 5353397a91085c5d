package fusion

// Engine constants mirrored from the reference wingsuit estimator tuning.

const (
	// G is gravitational acceleration used by the aerodynamic model (m/s²).
	G = 9.81

	// StateDim is the full state vector size:
	// [0..2] position, [3..5] velocity, [6..8] acceleration,
	// [9] kl, [10] kd, [11] roll,
	// [12..14] wind velocity, [15] wind kl, [16] wind kd, [17] wind roll.
	StateDim = 18
	// MeaDim is the measurement vector size (position + velocity).
	MeaDim = 6

	// MaxStep bounds each physics integration sub-step (seconds).
	MaxStep = 0.1
	// AccelLimit clamps each predicted acceleration component (3 g).
	AccelLimit = G * 3.0

	// MinAirspeed below which the forward model reports zero acceleration.
	MinAirspeed = 0.1
	// MinParamSpeed below which the inverse model keeps prior parameters.
	MinParamSpeed = 1.0

	// Initial covariance diagonals.
	SigmaPVA0  = 1000.0 // position/velocity/acceleration (weak prior)
	SigmaAero0 = 0.1    // kl, kd
	SigmaRoll0 = 0.005
	SigmaWind0 = 100.0 // wind velocity (no prior knowledge)

	// Process noise diagonals (scaled by dt on predict).
	QPos      = 0.04
	QVel      = 0.4226
	QAccel    = 68.5
	QAero     = 0.01
	QRoll     = 0.001
	QWind     = 0.1
	QWindAero = 0.01
	QWindRoll = 0.001

	// Measurement noise diagonals (GPS position / velocity).
	RPos = 1.2
	RVel = 2.25

	// DefaultTempOffsetC is the temperature offset from the standard
	// atmosphere used for density-driven wind estimation (°C).
	DefaultTempOffsetC = 10.0

	// DefaultRefreshRateHz drives the predictDelta Kalman-step decay.
	DefaultRefreshRateHz = 20.0

	// Wind gradient descent tuning.
	WindLearningRateInit = 0.05
	WindLearningRateMax  = 0.2
	WindMaxIterations    = 50
	WindConvergence      = 1e-6
	WindGradientEpsilon  = 1e-4
	WindResidualWeight   = 100.0
	// WindSpeedWeight keeps a weak preference for small winds. Anything
	// much heavier than this lets the optimizer trade real wind away for
	// a marginally better polar fit and synthetic winds above ~2 m/s stop
	// being recoverable.
	WindSpeedWeight = 0.005

	// Ternary search over angle of attack.
	AoaSearchRangeDeg = 2.0
	AoaToleranceDeg   = 0.01

	// Wind smoothing filter noise.
	WindProcessNoise     = 0.1
	WindMeasurementNoise = 1.0
)

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

func signum(x float64) float64 {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

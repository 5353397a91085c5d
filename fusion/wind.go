package fusion

import "math"

// WindEstimator estimates 3D wind velocity by matching measured
// acceleration against the wingsuit aerodynamic model. A small linear
// smoothing filter (identity dynamics, direct observation) damps the
// per-fix optimizer output.
type WindEstimator struct {
	state            [3]float64 // wind velocity (east, up, north)
	covariance       [][]float64
	processNoise     [][]float64
	measurementNoise [][]float64
	polar            *WingsuitPolar
}

// WindEstimationResult is the output of one full estimation cycle.
type WindEstimationResult struct {
	WindVelocity  Vector3
	AngleOfAttack float64
	Coefficients  Coefficient
	Residual      float64
	Roll          float64
}

// AerodynamicModelResult is the best polar fit for one wind hypothesis.
type AerodynamicModelResult struct {
	BestCoeff     Coefficient
	ExpectedAccel Vector3
	Aoa           float64
	Roll          float64
}

// WindOptimizationResult is the raw gradient-descent output before the
// smoothing filter is applied.
type WindOptimizationResult struct {
	WindVelocity Vector3
	BestCoeff    Coefficient
	MinResidual  float64
	BestAoa      float64
	BestRoll     float64
}

type objectiveResult struct {
	cost      float64
	bestCoeff Coefficient
	residual  float64
	aoa       float64
	roll      float64
}

// NewWindEstimator creates an estimator with zero initial wind and
// identity covariance, tuned with the default process and measurement
// noise. The polar defaults to the Aura 5.
func NewWindEstimator(polar *WingsuitPolar) *WindEstimator {
	if polar == nil {
		polar = AuraFivePolar
	}
	w := &WindEstimator{
		covariance:       Identity(3),
		processNoise:     Identity(3),
		measurementNoise: Identity(3),
		polar:            polar,
	}
	for i := 0; i < 3; i++ {
		w.processNoise[i][i] = WindProcessNoise
		w.measurementNoise[i][i] = WindMeasurementNoise
	}
	return w
}

// WindVelocity returns the current smoothed wind estimate (ENU).
func (w *WindEstimator) WindVelocity() Vector3 {
	return Vector3{X: w.state[0], Y: w.state[1], Z: w.state[2]}
}

// SetProcessNoise overrides the diagonal of the process noise matrix.
func (w *WindEstimator) SetProcessNoise(noise float64) {
	for i := 0; i < 3; i++ {
		w.processNoise[i][i] = noise
	}
}

// SetMeasurementNoise overrides the diagonal of the measurement noise matrix.
func (w *WindEstimator) SetMeasurementNoise(noise float64) {
	for i := 0; i < 3; i++ {
		w.measurementNoise[i][i] = noise
	}
}

// Reset clears the wind state and covariance back to initial values.
func (w *WindEstimator) Reset() {
	w.state = [3]float64{}
	w.covariance = Identity(3)
}

// predict advances the filter: wind evolves slowly, so only the
// covariance grows by the process noise.
func (w *WindEstimator) predict() {
	w.covariance = MatAdd(w.covariance, w.processNoise)
}

// update folds a measured wind velocity into the smoothed state. H is
// identity (direct observation), so the usual Kalman equations collapse
// to a 3x3 gain solve.
func (w *WindEstimator) update(measured Vector3) error {
	measurement := [3]float64{measured.X, measured.Y, measured.Z}

	s := MatAdd(w.covariance, w.measurementNoise)
	sInv, err := Inverse(s)
	if err != nil {
		return err
	}
	gain := MatMul(w.covariance, sInv)

	var innovation [3]float64
	for i := 0; i < 3; i++ {
		innovation[i] = measurement[i] - w.state[i]
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			w.state[i] += gain[i][j] * innovation[j]
		}
	}

	iKH := MatSub(Identity(3), gain)
	w.covariance = MatMul(iKH, w.covariance)
	return nil
}

// UpdateWindEstimation runs one full cycle: predict, optimize wind
// against the aerodynamic model, then fold the optimum into the
// smoothing filter as a measurement. Velocity, acceleration, and roll
// come from the main filter; rho is the air density at the current
// altitude.
func (w *WindEstimator) UpdateWindEstimation(velocity, acceleration Vector3, currentRoll, rho float64) (WindEstimationResult, error) {
	w.predict()

	optimal := w.OptimizeWindVelocity(velocity, acceleration, currentRoll, rho)

	if err := w.update(optimal.WindVelocity); err != nil {
		return WindEstimationResult{}, err
	}

	return WindEstimationResult{
		WindVelocity:  w.WindVelocity(),
		AngleOfAttack: optimal.BestAoa,
		Coefficients:  optimal.BestCoeff,
		Residual:      optimal.MinResidual,
		Roll:          optimal.BestRoll,
	}, nil
}

// OptimizeWindVelocity finds the wind vector minimizing the composite
// cost (weighted model residual plus a weak wind speed penalty). The
// search is seeded by running the airspeed solver at every discrete
// polar point and keeping the cheapest implied wind, then polished by
// adaptive gradient descent with central-difference gradients. The
// learning rate grows 10% per improving step up to a cap and halves
// with rollback on a failed step.
func (w *WindEstimator) OptimizeWindVelocity(velocity, measuredAccel Vector3, currentRoll, rho float64) WindOptimizationResult {
	bestWind := w.WindVelocity()
	bestResult := w.evaluateObjective(bestWind, velocity, measuredAccel, currentRoll, rho)

	// The cost surface is nearly degenerate: many (wind, aoa) pairs
	// reproduce the measured acceleration almost exactly, and descent
	// from the previous estimate settles on whichever fit is nearest.
	// A direct solve per polar point enumerates the exact fits so the
	// descent starts on the right branch.
	k := w.polar.WingLoadingFactor(rho)
	for _, pt := range w.polar.Points {
		target := WSEParams{Kl: pt.Cl * k / G, Kd: pt.Cd * k / G, Roll: currentRoll}
		solved := HorizontalAirspeedFromKlKd(velocity, measuredAccel, target)
		candidate := solved.Airspeed.Minus(velocity)
		if !candidate.IsFinite() {
			continue
		}
		result := w.evaluateObjective(candidate, velocity, measuredAccel, currentRoll, rho)
		if result.cost < bestResult.cost {
			bestResult = result
			bestWind = candidate
		}
	}

	currentWind := bestWind
	learningRate := WindLearningRateInit

	for iteration := 0; iteration < WindMaxIterations; iteration++ {
		gradient := w.numericalGradient(currentWind, velocity, measuredAccel, currentRoll, rho)

		newWind := Vector3{
			X: currentWind.X - learningRate*gradient.X,
			Y: currentWind.Y - learningRate*gradient.Y,
			Z: currentWind.Z - learningRate*gradient.Z,
		}
		newResult := w.evaluateObjective(newWind, velocity, measuredAccel, currentRoll, rho)

		if newResult.cost < bestResult.cost {
			bestResult = newResult
			bestWind = newWind
			currentWind = newWind
			learningRate = math.Min(learningRate*1.1, WindLearningRateMax)
		} else {
			learningRate *= 0.5
			currentWind = bestWind
			if learningRate < WindConvergence {
				break
			}
		}

		if gradient.Magnitude() < WindConvergence {
			break
		}
	}

	return WindOptimizationResult{
		WindVelocity: bestWind,
		BestCoeff:    bestResult.bestCoeff,
		MinResidual:  bestResult.residual,
		BestAoa:      bestResult.aoa,
		BestRoll:     bestResult.roll,
	}
}

// MatchAerodynamicModel finds the angle of attack whose polar
// coefficients best reproduce the measured acceleration at the given
// airspeed: a coarse scan over the discrete polar points followed by a
// ternary search within ±2° of the best point, to 0.01° precision.
// Roll is held at the caller's current estimate throughout: re-deriving
// it per candidate lets bank absorb most of a wind-induced residual and
// flattens the wind optimizer's cost surface.
func (w *WindEstimator) MatchAerodynamicModel(measuredAccel, velocity Vector3, roll, rho float64) AerodynamicModelResult {
	k := w.polar.WingLoadingFactor(rho)

	objective := func(aoa float64) float64 {
		coeffs := w.polar.Interpolate(aoa)
		kl := coeffs.Cl * k / G
		kd := coeffs.Cd * k / G
		predicted := WingsuitAcceleration(velocity, WSEParams{Kl: kl, Kd: kd, Roll: roll})
		return measuredAccel.Minus(predicted).Magnitude()
	}

	// Phase 1: coarse scan over the discrete polar points.
	minResidual := math.Inf(1)
	bestDiscreteAoa := w.polar.MaxAoa()
	for _, pt := range w.polar.Points {
		residual := objective(pt.Aoa)
		if residual < minResidual {
			minResidual = residual
			bestDiscreteAoa = pt.Aoa
		}
	}

	// Phase 2: ternary search around the best discrete point.
	left := math.Max(bestDiscreteAoa-AoaSearchRangeDeg, w.polar.MinAoa())
	right := math.Min(bestDiscreteAoa+AoaSearchRangeDeg, w.polar.MaxAoa())
	for right-left > AoaToleranceDeg {
		mid1 := left + (right-left)/3.0
		mid2 := right - (right-left)/3.0
		if objective(mid1) > objective(mid2) {
			left = mid1
		} else {
			right = mid2
		}
	}

	bestAoa := (left + right) / 2.0
	bestCoeff := w.polar.Interpolate(bestAoa)
	kl := bestCoeff.Cl * k / G
	kd := bestCoeff.Cd * k / G
	bestAccel := WingsuitAcceleration(velocity, WSEParams{Kl: kl, Kd: kd, Roll: roll})
	// Refined roll at the chosen point is reported for downstream
	// consumers but never fed back into the residual.
	bestRoll := WingsuitParameters(velocity, measuredAccel, WSEParams{Kl: kl, Kd: kd, Roll: roll}).Roll

	return AerodynamicModelResult{
		BestCoeff:     bestCoeff,
		ExpectedAccel: bestAccel,
		Aoa:           bestAoa,
		Roll:          bestRoll,
	}
}

func (w *WindEstimator) evaluateObjective(wind, velocity, measuredAccel Vector3, currentRoll, rho float64) objectiveResult {
	airspeed := velocity.Plus(wind)

	bestFit := w.MatchAerodynamicModel(measuredAccel, airspeed, currentRoll, rho)

	residual := measuredAccel.Minus(bestFit.ExpectedAccel).Magnitude()
	windSpeed := wind.Magnitude()
	cost := WindResidualWeight*residual*residual + WindSpeedWeight*windSpeed*windSpeed

	return objectiveResult{
		cost:      cost,
		bestCoeff: bestFit.BestCoeff,
		residual:  residual,
		aoa:       bestFit.Aoa,
		roll:      bestFit.Roll,
	}
}

func (w *WindEstimator) numericalGradient(wind, velocity, measuredAccel Vector3, currentRoll, rho float64) Vector3 {
	eps := WindGradientEpsilon
	eval := func(v Vector3) float64 {
		return w.evaluateObjective(v, velocity, measuredAccel, currentRoll, rho).cost
	}
	return Vector3{
		X: (eval(Vector3{wind.X + eps, wind.Y, wind.Z}) - eval(Vector3{wind.X - eps, wind.Y, wind.Z})) / (2 * eps),
		Y: (eval(Vector3{wind.X, wind.Y + eps, wind.Z}) - eval(Vector3{wind.X, wind.Y - eps, wind.Z})) / (2 * eps),
		Z: (eval(Vector3{wind.X, wind.Y, wind.Z + eps}) - eval(Vector3{wind.X, wind.Y, wind.Z - eps})) / (2 * eps),
	}
}

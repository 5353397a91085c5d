package fusion

import "math"

// WSEParams holds the wingsuit aerodynamic state: gravity-normalized
// lift and drag coefficients and bank angle in radians.
type WSEParams struct {
	Kl   float64
	Kd   float64
	Roll float64
}

// LD is the glide ratio implied by the coefficients.
func (p WSEParams) LD() float64 {
	if p.Kd == 0 {
		return math.NaN()
	}
	return p.Kl / p.Kd
}

// SustainedSpeeds returns the steady-state (horizontal, vertical) speeds
// for these coefficients in still air.
func (p WSEParams) SustainedSpeeds() (horizontal, vertical float64) {
	denom := math.Pow(p.Kl*p.Kl+p.Kd*p.Kd, 0.75)
	return p.Kl / denom, p.Kd / denom
}

// WingsuitAcceleration computes the aerodynamic acceleration produced by
// an airspeed vector and a set of wingsuit parameters. Input and output
// are ENU (x=east, y=up, z=north); the lift/drag math runs in NDE
// internally. Near-zero airspeed or groundspeed yields zero acceleration.
func WingsuitAcceleration(velocity Vector3, params WSEParams) Vector3 {
	vN := velocity.Z
	vE := velocity.X
	vD := -velocity.Y
	kl := params.Kl
	kd := params.Kd

	v := velocity.Magnitude()
	if v < MinAirspeed {
		return Vector3{}
	}
	groundSpeed := math.Sqrt(vN*vN + vE*vE)
	if groundSpeed < MinAirspeed {
		return Vector3{}
	}

	cosRoll := math.Cos(params.Roll)
	sinRoll := math.Sin(params.Roll)

	aN := G * (kl*v/groundSpeed*(vN*vD*cosRoll-vE*v*sinRoll) - kd*vN*v)
	aD := G * (1 - kl*v*groundSpeed*cosRoll - kd*vD*v)
	aE := G * (kl*v/groundSpeed*(vE*vD*cosRoll+vN*v*sinRoll) - kd*vE*v)

	return Vector3{X: aE, Y: -aD, Z: aN}
}

// WingsuitParameters recovers kl, kd, and roll from an observed airspeed
// and acceleration pair. Drag is the projection of the gravity-corrected
// acceleration onto the velocity and lift is the rejection. Below 1 m/s
// the problem is ill-conditioned and the prior parameters are returned
// unchanged. Non-finite coefficient estimates also keep the prior kl/kd,
// but a valid roll estimate is kept either way.
func WingsuitParameters(velocity, accel Vector3, prior WSEParams) WSEParams {
	vN := velocity.Z
	vE := velocity.X
	vD := -velocity.Y
	accelN := accel.Z
	accelE := accel.X
	accelD := -accel.Y
	accelDminusG := accelD - G

	vel := math.Sqrt(vN*vN + vE*vE + vD*vD)
	if vel < MinParamSpeed {
		return prior
	}

	proj := (accelN*vN + accelE*vE + accelDminusG*vD) / vel
	dragN := proj * vN / vel
	dragE := proj * vE / vel
	dragD := proj * vD / vel
	// Drag opposes motion, so its sign comes from the velocity projection.
	dragSign := -signum(dragN*vN + dragE*vE + dragD*vD)
	accelDrag := dragSign * math.Sqrt(dragN*dragN+dragE*dragE+dragD*dragD)

	liftN := accelN - dragN
	liftE := accelE - dragE
	liftD := accelDminusG - dragD
	accelLift := math.Sqrt(liftN*liftN + liftE*liftE + liftD*liftD)

	kl := accelLift / G / vel / vel
	kd := accelDrag / G / vel / vel
	roll := prior.Roll

	groundSpeed := math.Sqrt(vN*vN + vE*vE)
	if groundSpeed > MinParamSpeed {
		rollArg := (1 - accelD/G - kd*vel*vD) / (kl * groundSpeed * vel)
		rollMagnitude := math.Acos(rollArg)
		rollSign := signum(liftN*-vE + liftE*vN)
		if candidate := rollSign * rollMagnitude; !math.IsNaN(candidate) && !math.IsInf(candidate, 0) {
			roll = candidate
		}
	}

	if math.IsInf(kl, 0) || math.IsInf(kd, 0) || math.IsNaN(kl) || math.IsNaN(kd) {
		return WSEParams{Kl: prior.Kl, Kd: prior.Kd, Roll: roll}
	}
	return WSEParams{Kl: kl, Kd: kd, Roll: roll}
}

// AirspeedResult is the output of HorizontalAirspeedFromKlKd: the solved
// airspeed vector (ENU) and the parameters with the recovered roll.
type AirspeedResult struct {
	Airspeed Vector3
	Params   WSEParams
}

// HorizontalAirspeedFromKlKd inverts the acceleration model: given a
// ground velocity, a measured acceleration, and target kl/kd, it finds
// the airspeed vector that would produce that acceleration, assuming
// zero vertical wind. Both roll signs are tried via a 2x2 linear solve;
// the solution matching the prior roll sign wins, otherwise the one with
// the smallest implied wind.
func HorizontalAirspeedFromKlKd(velocity, accel Vector3, params WSEParams) AirspeedResult {
	targetKl := params.Kl
	targetKd := params.Kd
	fallbackRoll := params.Roll

	if math.Abs(targetKl) < 1e-12 || math.Abs(targetKd) < 1e-12 {
		return AirspeedResult{Airspeed: Vector3{}, Params: WSEParams{Kl: targetKl, Kd: targetKd, Roll: fallbackRoll}}
	}

	vD := -velocity.Y
	accelN := accel.Z
	accelE := accel.X
	accelD := -accel.Y
	accelDminusG := accelD - G

	accelMinusG := Vector3{X: accelE, Y: accelDminusG, Z: accelN}
	totalAccelMag := accelMinusG.Magnitude()
	if totalAccelMag < 0.1 {
		return AirspeedResult{Airspeed: velocity, Params: WSEParams{Kl: targetKl, Kd: targetKd, Roll: fallbackRoll}}
	}

	// |drag|² + |lift|² = |accel-g|² gives the airspeed magnitude.
	klkdMag := math.Sqrt(targetKl*targetKl + targetKd*targetKd)
	if klkdMag < 1e-6 {
		return AirspeedResult{Airspeed: velocity, Params: WSEParams{Kl: targetKl, Kd: targetKd, Roll: fallbackRoll}}
	}
	airspeedMag := math.Sqrt(totalAccelMag / (G * klkdMag))

	horizontalAirspeed := math.Sqrt(airspeedMag*airspeedMag - vD*vD)
	if math.IsNaN(horizontalAirspeed) || horizontalAirspeed < 1.0 {
		return AirspeedResult{Airspeed: velocity, Params: WSEParams{Kl: targetKl, Kd: targetKd, Roll: fallbackRoll}}
	}

	// Out-of-range geometry (|rollArg| > 1, or NaN) would make Acos
	// poison every downstream value; keep the prior roll instead.
	rollArg := (1 - accelD/G - targetKd*airspeedMag*vD) / (targetKl * horizontalAirspeed * airspeedMag)
	rollMagnitude := math.Abs(fallbackRoll)
	if arg := math.Abs(rollArg); arg <= 1 {
		rollMagnitude = math.Acos(arg)
	}

	fallbackRollSign := signum(fallbackRoll)
	var matchingSolution, minWindSolution *Vector3
	var matchingRoll, minWindRoll float64
	minWindMagnitude := math.MaxFloat64

	for rollSign := -1.0; rollSign <= 1.0; rollSign += 2.0 {
		testRoll := rollSign * rollMagnitude
		cosRoll := math.Cos(testRoll)
		sinRoll := math.Sin(testRoll)

		klTerm := targetKl * airspeedMag / horizontalAirspeed
		kdTerm := targetKd * airspeedMag

		a11 := klTerm*vD*cosRoll - kdTerm
		a12 := -klTerm * airspeedMag * sinRoll
		a21 := klTerm * airspeedMag * sinRoll
		a22 := klTerm*vD*cosRoll - kdTerm
		b1 := accelN / G
		b2 := accelE / G

		det := a11*a22 - a12*a21
		if math.Abs(det) < 1e-12 {
			continue
		}
		testVN := (b1*a22 - b2*a12) / det
		testVE := (a11*b2 - a21*b1) / det

		testAirspeed := Vector3{X: testVE, Y: -vD, Z: testVN}
		testWind := testAirspeed.Minus(velocity)
		windMagnitude := testWind.Magnitude()

		if signum(testRoll) == fallbackRollSign && matchingSolution == nil {
			s := testAirspeed
			matchingSolution = &s
			matchingRoll = testRoll
		}
		if windMagnitude < minWindMagnitude {
			minWindMagnitude = windMagnitude
			s := testAirspeed
			minWindSolution = &s
			minWindRoll = testRoll
		}
	}

	var airspeed Vector3
	var bestRoll float64
	switch {
	case matchingSolution != nil:
		airspeed = *matchingSolution
		bestRoll = matchingRoll
	case minWindSolution != nil:
		airspeed = *minWindSolution
		bestRoll = minWindRoll
	default:
		airspeed = velocity.Normalize().Mul(airspeedMag)
		bestRoll = fallbackRoll
	}

	return AirspeedResult{Airspeed: airspeed, Params: WSEParams{Kl: targetKl, Kd: targetKd, Roll: bestRoll}}
}

package wind

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CircleFitResult is a least-squares circle fit of velocity samples.
// The circle center is the negated wind vector and the radius is the
// aircraft's airspeed.
type CircleFitResult struct {
	CenterE    float64
	CenterN    float64
	Radius     float64
	RSquared   float64
	PointCount int
}

// WindE is the east wind component.
func (r CircleFitResult) WindE() float64 { return -r.CenterE }

// WindN is the north wind component.
func (r CircleFitResult) WindN() float64 { return -r.CenterN }

// WindMagnitude is the horizontal wind speed.
func (r CircleFitResult) WindMagnitude() float64 {
	return math.Hypot(r.WindE(), r.WindN())
}

// WindDirection is the direction the wind blows toward, in degrees from
// north.
func (r CircleFitResult) WindDirection() float64 {
	return math.Atan2(r.WindE(), r.WindN()) * 180 / math.Pi
}

// FitCircleToVelocities fits a circle to the GPS velocity components of
// the samples. Fewer than three points yields a zero result.
func FitCircleToVelocities(points []DataPoint) CircleFitResult {
	if len(points) < 3 {
		return CircleFitResult{}
	}
	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.VE
		y[i] = p.VN
	}
	return fitCircle(x, y)
}

// FitCircleToSustainedVelocities fits a circle to the sustained velocity
// components, skipping samples with near-zero sustained speed.
func FitCircleToSustainedVelocities(points []DataPoint) CircleFitResult {
	var x, y []float64
	for _, p := range points {
		if p.SustainedGroundSpeed() > 0.1 {
			x = append(x, p.SustainedVE)
			y = append(y, p.SustainedVN)
		}
	}
	if len(x) < 3 {
		return CircleFitResult{PointCount: len(x)}
	}
	return fitCircle(x, y)
}

// fitCircle solves the algebraic circle fit as a linear least squares
// problem: x² + y² = 2a·x + 2b·y + c, with center (a, b) and radius
// sqrt(c + a² + b²). Degenerate geometry (collinear points) yields a
// zero result.
func fitCircle(x, y []float64) CircleFitResult {
	n := len(x)

	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 2*x[i])
		a.Set(i, 1, 2*y[i])
		a.Set(i, 2, 1)
		b.SetVec(i, x[i]*x[i]+y[i]*y[i])
	}

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, b); err != nil {
		return CircleFitResult{PointCount: n}
	}

	centerE := sol.AtVec(0)
	centerN := sol.AtVec(1)
	radiusSq := sol.AtVec(2) + centerE*centerE + centerN*centerN
	if radiusSq <= 0 || math.IsNaN(radiusSq) {
		return CircleFitResult{PointCount: n}
	}
	radius := math.Sqrt(radiusSq)

	return CircleFitResult{
		CenterE:    centerE,
		CenterN:    centerN,
		Radius:     radius,
		RSquared:   rSquared(x, y, centerE, centerN, radius),
		PointCount: n,
	}
}

// rSquared measures goodness of fit: residual spread of sample radii
// around the fitted airspeed, against a null model of zero wind at the
// origin.
func rSquared(x, y []float64, centerE, centerN, radius float64) float64 {
	var rss, tss float64
	for i := range x {
		dx := x[i] - centerE
		dy := y[i] - centerN
		residual := math.Hypot(dx, dy) - radius
		rss += residual * residual
		tss += x[i]*x[i] + y[i]*y[i]
	}
	if tss < 1e-10 {
		return 1.0
	}
	return math.Max(0, 1.0-rss/tss)
}

package wind

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// circlePoints generates velocity samples on a circle: airspeed around
// the compass, offset by wind.
func circlePoints(windE, windN, airspeed float64, n int) []DataPoint {
	pts := make([]DataPoint, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = DataPoint{
			Millis:      int64(i * 1000),
			Altitude:    2000,
			VE:          airspeed*math.Sin(theta) - windE,
			VN:          airspeed*math.Cos(theta) - windN,
			SustainedVE: airspeed * math.Sin(theta),
			SustainedVN: airspeed * math.Cos(theta),
		}
	}
	return pts
}

func TestFitCircleRecoversWind(t *testing.T) {
	// Aircraft flying a full turn at 30 m/s in a (5, -3) wind: ground
	// velocities lie on a circle centered at minus the wind.
	pts := circlePoints(5, -3, 30, 24)
	fit := FitCircleToVelocities(pts)

	require.Equal(t, 24, fit.PointCount)
	assert.InDelta(t, 5, fit.WindE(), 0.01)
	assert.InDelta(t, -3, fit.WindN(), 0.01)
	assert.InDelta(t, 30, fit.Radius, 0.01)
	assert.Greater(t, fit.RSquared, 0.99)
}

func TestFitCircleTooFewPoints(t *testing.T) {
	fit := FitCircleToVelocities(circlePoints(5, -3, 30, 2))
	assert.Equal(t, CircleFitResult{}, fit)
}

func TestFitCircleWindMagnitudeDirection(t *testing.T) {
	pts := circlePoints(3, 4, 25, 36)
	fit := FitCircleToVelocities(pts)
	assert.InDelta(t, 5, fit.WindMagnitude(), 0.01)
	assert.InDelta(t, math.Atan2(3, 4)*180/math.Pi, fit.WindDirection(), 0.1)
}

func TestFitCircleSustained(t *testing.T) {
	// Sustained velocities in the generator are wind-free, so the
	// sustained fit should center at the origin.
	pts := circlePoints(5, -3, 30, 24)
	fit := FitCircleToSustainedVelocities(pts)
	assert.InDelta(t, 0, fit.WindE(), 0.01)
	assert.InDelta(t, 0, fit.WindN(), 0.01)
	assert.InDelta(t, 30, fit.Radius, 0.01)
}

func TestFitCircleSustainedSkipsZeroSamples(t *testing.T) {
	pts := circlePoints(0, 0, 20, 10)
	// Zero out most sustained velocities; fewer than 3 valid remain.
	for i := 2; i < len(pts); i++ {
		pts[i].SustainedVE = 0
		pts[i].SustainedVN = 0
	}
	fit := FitCircleToSustainedVelocities(pts)
	assert.Equal(t, 2, fit.PointCount)
	assert.Zero(t, fit.Radius)
}

func TestDataPointHelpers(t *testing.T) {
	p := DataPoint{VE: 3, VN: 4, SustainedVE: 6, SustainedVN: 8}
	assert.InDelta(t, 5, p.GroundSpeed(), 1e-12)
	assert.InDelta(t, 10, p.SustainedGroundSpeed(), 1e-12)
	assert.InDelta(t, math.Atan2(3, 4)*180/math.Pi, p.Heading(), 1e-12)
}

package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticFlight builds a consistent (velocity, acceleration) pair: the
// acceleration a wingsuit at the given polar angle of attack would
// produce flying through trueWind.
func syntheticFlight(t *testing.T, aoa float64, groundVel, trueWind Vector3, rho float64) (Vector3, WSEParams) {
	t.Helper()
	k := AuraFivePolar.WingLoadingFactor(rho)
	coeffs := AuraFivePolar.Interpolate(aoa)
	params := WSEParams{
		Kl:   coeffs.Cl * k / G,
		Kd:   coeffs.Cd * k / G,
		Roll: 0,
	}
	airspeed := groundVel.Plus(trueWind)
	accel := WingsuitAcceleration(airspeed, params)
	require.True(t, accel.IsFinite())
	return accel, params
}

func TestMatchAerodynamicModelFindsAoa(t *testing.T) {
	rho := Density(2000, DefaultTempOffsetC)
	trueAoa := 12.0
	velocity := Vector3{X: 5, Y: -15, Z: 32}
	accel, _ := syntheticFlight(t, trueAoa, velocity, Vector3{}, rho)

	est := NewWindEstimator(nil)
	result := est.MatchAerodynamicModel(accel, velocity, 0, rho)

	assert.InDelta(t, trueAoa, result.Aoa, 0.1)
	residual := accel.Minus(result.ExpectedAccel).Magnitude()
	assert.Less(t, residual, 0.01)
}

func TestOptimizeWindRecoversSyntheticWind(t *testing.T) {
	rho := Density(2000, DefaultTempOffsetC)
	groundVel := Vector3{X: 5, Y: -15, Z: 32}

	cases := []struct {
		name     string
		trueWind Vector3
	}{
		{"light quartering", Vector3{X: 2, Y: 0, Z: 1}},
		{"westerly with lift", Vector3{X: -3, Y: 0, Z: 2}},
		{"strong easterly", Vector3{X: 5, Y: 0, Z: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accel, _ := syntheticFlight(t, 12.0, groundVel, tc.trueWind, rho)

			est := NewWindEstimator(nil)
			result := est.OptimizeWindVelocity(groundVel, accel, 0, rho)

			assert.InDelta(t, tc.trueWind.X, result.WindVelocity.X, 0.5)
			assert.InDelta(t, tc.trueWind.Y, result.WindVelocity.Y, 0.5)
			assert.InDelta(t, tc.trueWind.Z, result.WindVelocity.Z, 0.5)
			assert.Less(t, result.MinResidual, 0.05)
		})
	}
}

func TestOptimizeWindOtherAnglesOfAttack(t *testing.T) {
	rho := Density(2000, DefaultTempOffsetC)
	trueWind := Vector3{X: 2, Y: 0, Z: 1}
	groundVel := Vector3{X: 5, Y: -15, Z: 32}

	for _, aoa := range []float64{8.0, 18.0} {
		accel, _ := syntheticFlight(t, aoa, groundVel, trueWind, rho)

		est := NewWindEstimator(nil)
		result := est.OptimizeWindVelocity(groundVel, accel, 0, rho)

		assert.InDelta(t, trueWind.X, result.WindVelocity.X, 0.5, "aoa %v", aoa)
		assert.InDelta(t, trueWind.Z, result.WindVelocity.Z, 0.5, "aoa %v", aoa)
	}
}

func TestOptimizeWindStillAirStaysNearZero(t *testing.T) {
	rho := Density(1500, DefaultTempOffsetC)
	groundVel := Vector3{X: 0, Y: -14, Z: 34}
	accel, _ := syntheticFlight(t, 12.0, groundVel, Vector3{}, rho)

	est := NewWindEstimator(nil)
	result := est.OptimizeWindVelocity(groundVel, accel, 0, rho)

	assert.Less(t, result.WindVelocity.Magnitude(), 0.5)
}

func TestUpdateWindEstimationSmoothing(t *testing.T) {
	rho := Density(2000, DefaultTempOffsetC)
	trueWind := Vector3{X: 3, Y: 0, Z: 0}
	groundVel := Vector3{X: 5, Y: -15, Z: 32}
	accel, _ := syntheticFlight(t, 12.0, groundVel, trueWind, rho)

	est := NewWindEstimator(nil)

	// First cycle: the smoothing filter pulls the estimate only part of
	// the way toward the optimizer output.
	first, err := est.UpdateWindEstimation(groundVel, accel, 0, rho)
	require.NoError(t, err)
	require.True(t, first.WindVelocity.IsFinite())

	// Repeated consistent observations converge toward the true wind.
	var last WindEstimationResult
	for i := 0; i < 10; i++ {
		last, err = est.UpdateWindEstimation(groundVel, accel, 0, rho)
		require.NoError(t, err)
	}
	assert.InDelta(t, trueWind.X, last.WindVelocity.X, 1.0)
	assert.Greater(t, last.WindVelocity.X, first.WindVelocity.X)
}

func TestWindEstimatorReset(t *testing.T) {
	est := NewWindEstimator(nil)
	est.state = [3]float64{4, 1, -2}
	est.Reset()
	assert.Equal(t, Vector3{}, est.WindVelocity())
}

func TestWindEstimatorNoiseSetters(t *testing.T) {
	est := NewWindEstimator(nil)
	est.SetProcessNoise(0.5)
	est.SetMeasurementNoise(2.0)
	assert.Equal(t, 0.5, est.processNoise[0][0])
	assert.Equal(t, 2.0, est.measurementNoise[2][2])
}

package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateClampHigh(t *testing.T) {
	first := AuraFivePolar.Points[0]
	c := AuraFivePolar.Interpolate(120)
	assert.Equal(t, first.Cl, c.Cl)
	assert.Equal(t, first.Cd, c.Cd)
}

func TestInterpolateClampLow(t *testing.T) {
	last := AuraFivePolar.Points[len(AuraFivePolar.Points)-1]
	c := AuraFivePolar.Interpolate(-5)
	assert.Equal(t, last.Cl, c.Cl)
	assert.Equal(t, last.Cd, c.Cd)
}

func TestInterpolateMidpoint(t *testing.T) {
	polar := &WingsuitPolar{
		Points: []PolarPoint{
			{Aoa: 30, Cl: 1.0, Cd: 0.6},
			{Aoa: 20, Cl: 0.8, Cd: 0.4},
			{Aoa: 10, Cl: 0.4, Cd: 0.2},
		},
		S: 2.0,
		M: 77.5,
	}
	c := polar.Interpolate(25)
	assert.InDelta(t, 0.9, c.Cl, 1e-12)
	assert.InDelta(t, 0.5, c.Cd, 1e-12)

	c = polar.Interpolate(12.5)
	assert.InDelta(t, 0.5, c.Cl, 1e-12)
	assert.InDelta(t, 0.25, c.Cd, 1e-12)
}

func TestInterpolateAtSamples(t *testing.T) {
	for _, aoa := range []float64{90, 45, 28, 10, 0} {
		expected := AuraFivePolar.Interpolate(aoa)
		for _, pt := range AuraFivePolar.Points {
			if pt.Aoa == aoa {
				assert.InDelta(t, pt.Cl, expected.Cl, 1e-12, "cl at %v", aoa)
				assert.InDelta(t, pt.Cd, expected.Cd, 1e-12, "cd at %v", aoa)
			}
		}
	}
}

func TestAuraFiveTable(t *testing.T) {
	require.Len(t, AuraFivePolar.Points, 54)
	assert.Equal(t, 90.0, AuraFivePolar.MaxAoa())
	assert.Equal(t, 0.0, AuraFivePolar.MinAoa())
	assert.Equal(t, 2.0, AuraFivePolar.S)
	assert.Equal(t, 77.5, AuraFivePolar.M)

	// strictly decreasing AoA
	for i := 1; i < len(AuraFivePolar.Points); i++ {
		assert.Less(t, AuraFivePolar.Points[i].Aoa, AuraFivePolar.Points[i-1].Aoa)
	}
}

func TestWingLoadingFactor(t *testing.T) {
	k := AuraFivePolar.WingLoadingFactor(1.225)
	assert.InDelta(t, 0.5*1.225*2.0/77.5, k, 1e-12)
}

func TestKlKdToAoaClamped(t *testing.T) {
	// Tiny coefficients map below zero AoA and clamp to 0.
	aoa := KlKdToAoa(1e-6, 1e-6, 1000, AuraFivePolar)
	assert.Equal(t, 0.0, aoa)

	// Huge coefficients clamp to the 35° ceiling.
	aoa = KlKdToAoa(0.5, 0.5, 1000, AuraFivePolar)
	assert.Equal(t, 35.0, aoa)
}

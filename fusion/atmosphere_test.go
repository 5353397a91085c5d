package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeaLevelDensity(t *testing.T) {
	assert.InDelta(t, Rho0, Density(0, 0), 0.001)
}

func TestDensityDecreasesWithAltitude(t *testing.T) {
	prev := Density(0, 0)
	for _, alt := range []float64{500, 1000, 2000, 4000, 8000} {
		rho := Density(alt, 0)
		assert.Less(t, rho, prev, "density at %vm", alt)
		prev = rho
	}
}

func TestDensityTempOffset(t *testing.T) {
	// Warmer air is thinner at the same pressure.
	assert.Less(t, Density(1000, 10), Density(1000, 0))
}

func TestAltitudeToPressure(t *testing.T) {
	assert.InDelta(t, pressure0, AltitudeToPressure(0), 1e-6)
	// ~5000m is roughly half an atmosphere
	assert.InDelta(t, 54000, AltitudeToPressure(5000), 1000)
}

func TestStandardTemperature(t *testing.T) {
	assert.InDelta(t, temp0, StandardTemperature(0), 1e-9)
	assert.InDelta(t, temp0-6.5, StandardTemperature(1000), 1e-9)
}

func TestDensityFromPressureTemp(t *testing.T) {
	rho := DensityFromPressureTemp(pressure0, temp0)
	assert.InDelta(t, Rho0, rho, 0.001)
}

func TestHumidAirIsLessDense(t *testing.T) {
	dry := DensityWithHumidity(pressure0, 293.15, 0)
	humid := DensityWithHumidity(pressure0, 293.15, 1.0)
	assert.Less(t, humid, dry)
}

func TestSaturationVaporPressure(t *testing.T) {
	// Magnus formula at 20°C is about 2.3 kPa.
	svp := SaturationVaporPressure(293.15)
	assert.InDelta(t, 2330, svp, 50)
}

func TestISADensityFunc(t *testing.T) {
	f := ISADensity(10)
	assert.InDelta(t, Density(1500, 10), f(1500), 1e-12)
}

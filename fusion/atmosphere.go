package fusion

import "math"

// International Standard Atmosphere model. Pure functions of altitude;
// sensor-backed pressure/temperature values simply replace the computed
// inputs via DensityFromPressureTemp / DensityWithHumidity.

const (
	isaGravity  = 9.80665  // m/s²
	gasConstant = 8.31447  // J/mol/K
	pressure0   = 101325.0 // Pa at sea level
	temp0       = 288.15   // K at sea level (15°C)
	lapseRate   = 0.0065   // K/m
	mmAir       = 0.0289644 // kg/mol dry air
	mmWater     = 0.018016  // kg/mol water vapor

	// Rho0 is ISA air density at sea level (kg/m³).
	Rho0 = 1.225
)

// baroExp is the barometric formula exponent g·M/(R·L).
var baroExp = isaGravity * mmAir / (gasConstant * lapseRate)

// DensityFunc maps altitude (m) to air density (kg/m³). The estimator
// consumes one of these rather than an atmosphere model directly.
type DensityFunc func(altitude float64) float64

// ISADensity returns a DensityFunc for the standard atmosphere with a
// fixed temperature offset (K above standard).
func ISADensity(tempOffset float64) DensityFunc {
	return func(altitude float64) float64 {
		return Density(altitude, tempOffset)
	}
}

// AltitudeToPressure computes barometric pressure (Pa) at altitude (m).
func AltitudeToPressure(altitude float64) float64 {
	return pressure0 * math.Pow(1.0-lapseRate*altitude/temp0, baroExp)
}

// StandardTemperature computes ISA temperature (K) at altitude (m).
func StandardTemperature(altitude float64) float64 {
	return temp0 - lapseRate*altitude
}

// Density computes dry-air density (kg/m³) at altitude with a
// temperature offset from standard (K).
func Density(altitude, tempOffset float64) float64 {
	pressure := AltitudeToPressure(altitude)
	temperature := StandardTemperature(altitude) + tempOffset
	return DensityFromPressureTemp(pressure, temperature)
}

// DensityFromPressureTemp computes dry-air density via the ideal gas law.
func DensityFromPressureTemp(pressure, temperature float64) float64 {
	return pressure / (gasConstant / mmAir) / temperature
}

// SaturationVaporPressure computes saturation vapor pressure (Pa) at
// temperature (K) using the Magnus formula.
func SaturationVaporPressure(temperature float64) float64 {
	tempC := temperature - 273.15
	return 610.78 * math.Exp(17.2694*tempC/(tempC+238.3))
}

// DensityWithHumidity computes moist-air density (kg/m³) by partitioning
// total pressure into dry-air and vapor partial pressures.
// relativeHumidity is in [0, 1].
func DensityWithHumidity(pressure, temperature, relativeHumidity float64) float64 {
	rh := clamp(relativeHumidity, 0.0, 1.0)
	vaporPressure := rh * SaturationVaporPressure(temperature)
	dryPressure := pressure - vaporPressure
	dryDensity := dryPressure / (gasConstant / mmAir) / temperature
	vaporDensity := vaporPressure / (gasConstant / mmWater) / temperature
	return dryDensity + vaporDensity
}

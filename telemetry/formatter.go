package telemetry

import (
	"fmt"
	"math"
	"time"

	"wse-engine-go/fusion"
)

// FormatFusedState formats one fused result as a telemetry line:
//
//	fused,<time>,<lat>,<lng>,<alt>,<vE>,<vUp>,<vN>,<kl>,<kd>,<roll°>,<windE>,<windUp>,<windN>,<aoa°>,<ld>,<mode>
//
// Timestamps are UTC with millisecond precision.
func FormatFusedState(r fusion.FusionResult) []byte {
	t := time.UnixMilli(r.TimestampMs).UTC()
	ld := r.LD
	if math.IsNaN(ld) || math.IsInf(ld, 0) {
		ld = 0
	}
	line := fmt.Sprintf("fused,%s,%.7f,%.7f,%.1f,%.2f,%.2f,%.2f,%.6f,%.6f,%.1f,%.2f,%.2f,%.2f,%.1f,%.2f,%d\r\n",
		t.Format("20060102150405.000"),
		r.Lat, r.Lng, r.Alt,
		r.Velocity.X, r.Velocity.Y, r.Velocity.Z,
		r.Kl, r.Kd, r.Roll*180/math.Pi,
		r.Wind.X, r.Wind.Y, r.Wind.Z,
		r.Aoa, ld, r.FlightMode,
	)
	return []byte(line)
}

// FormatWind formats a wind-only line for consumers that track wind
// layers, not full state.
func FormatWind(timestampMs int64, altitude float64, wind fusion.Vector3) []byte {
	t := time.UnixMilli(timestampMs).UTC()
	line := fmt.Sprintf("wind,%s,%.1f,%.2f,%.2f,%.2f\r\n",
		t.Format("20060102150405.000"), altitude, wind.X, wind.Y, wind.Z)
	return []byte(line)
}

// FlagsForResult selects the content mask bits present in a result.
func FlagsForResult(r fusion.FusionResult) uint32 {
	flags := FlagPosition | FlagVelocity
	if r.Kl != 0 || r.Kd != 0 {
		flags |= FlagAero
	}
	if r.Wind != (fusion.Vector3{}) {
		flags |= FlagWind
	}
	if r.FlightMode != 0 {
		flags |= FlagMode
	}
	return flags
}

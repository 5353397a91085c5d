// Package wind aggregates GPS velocity samples into altitude-ordered
// wind layers and estimates per-layer wind by circle-fitting the
// horizontal velocity distribution: a turning aircraft at constant
// airspeed traces a circle in velocity space whose center is the wind.
package wind

import (
	"math"

	"wse-engine-go/fusion"
)

// DataPoint is one wind estimation sample: GPS velocity plus the
// sustained velocity implied by the filter's aero coefficients.
type DataPoint struct {
	Millis      int64
	Altitude    float64
	VE          float64
	VN          float64
	VD          float64
	SustainedVE float64
	SustainedVN float64
	SustainedVD float64
}

// GroundSpeed is the horizontal GPS speed.
func (p DataPoint) GroundSpeed() float64 {
	return math.Hypot(p.VE, p.VN)
}

// SustainedGroundSpeed is the horizontal sustained speed.
func (p DataPoint) SustainedGroundSpeed() float64 {
	return math.Hypot(p.SustainedVE, p.SustainedVN)
}

// Heading is the GPS track in degrees from north.
func (p DataPoint) Heading() float64 {
	return math.Atan2(p.VE, p.VN) * 180 / math.Pi
}

// PointFromResult converts a fused result into a layer sample carrying
// both the GPS velocity and the sustained-speed velocity derived from
// the aerodynamic coefficients. The sustained velocity points along the
// horizontal track; near-zero groundspeed leaves it zero.
func PointFromResult(r fusion.FusionResult) DataPoint {
	p := DataPoint{
		Millis:   r.TimestampMs,
		Altitude: r.Alt,
		VE:       r.Velocity.X,
		VN:       r.Velocity.Z,
		VD:       -r.Velocity.Y,
	}
	gs := r.Velocity.GroundSpeed()
	if gs > 0.1 {
		params := fusion.WSEParams{Kl: r.Kl, Kd: r.Kd, Roll: r.Roll}
		horizontal, vertical := params.SustainedSpeeds()
		p.SustainedVE = horizontal * r.Velocity.X / gs
		p.SustainedVN = horizontal * r.Velocity.Z / gs
		p.SustainedVD = vertical
	}
	return p
}

package fusion

import (
	"errors"
	"fmt"
	"log"
)

// FusionResult is the published output of one pipeline step.
type FusionResult struct {
	TimestampMs  int64
	Lat          float64
	Lng          float64
	Alt          float64
	Position     Vector3 // ENU meters from session origin
	Velocity     Vector3
	Acceleration Vector3
	Kl           float64
	Kd           float64
	Roll         float64
	Wind         Vector3
	WindKl       float64
	WindKd       float64
	WindRoll     float64
	Aoa          float64 // degrees, from the wind-model match
	OwnAoa       float64 // degrees, from the filter's own coefficients
	LD           float64
	FlightMode   int
}

// FlightModer classifies the current flight mode from speeds; the
// pipeline forwards each fix to it and uses the grounded signal to clamp
// integration.
type FlightModer interface {
	Observe(groundSpeed, climb float64)
	Mode() int
	Grounded() bool
}

// ErrSessionFailed is returned by Process after a fatal numeric error
// has poisoned the session. The pipeline refuses further fixes; the
// caller should start a new session.
var ErrSessionFailed = errors.New("fusion session failed")

// ErrInvalidFix is returned for a fix with non-finite or out-of-range
// fields. The fix is dropped; the session continues.
var ErrInvalidFix = errors.New("invalid fix")

// ErrStaleFix is returned for a fix older than the last accepted one.
// The fix is dropped; the session continues.
var ErrStaleFix = errors.New("fix timestamp regressed")

func validateFix(f *PositionFix) error {
	vals := []float64{f.Lat, f.Lng, f.Alt, f.VN, f.VE, f.Climb}
	if !allFinite(vals) {
		return fmt.Errorf("%w: non-finite field at %d ms", ErrInvalidFix, f.Millis)
	}
	if f.Lat < -90 || f.Lat > 90 || f.Lng < -180 || f.Lng > 180 {
		return fmt.Errorf("%w: position %.4f,%.4f out of range", ErrInvalidFix, f.Lat, f.Lng)
	}
	return nil
}

// FusionPipeline owns one flight session: a KalmanFilter, a flight-mode
// classifier, and subscriber callbacks. A singular innovation matrix is
// fatal to the session per the degradation policy; everything softer is
// absorbed inside the filter.
type FusionPipeline struct {
	kf       *KalmanFilter
	flight   FlightModer
	failed   bool
	numFixes int
	onResult []func(FusionResult)
}

// NewFusionPipeline wires a filter with the given config and an optional
// flight-mode classifier (nil disables the grounded clamp).
func NewFusionPipeline(cfg Config, flight FlightModer) *FusionPipeline {
	if flight != nil {
		cfg.Grounded = flight.Grounded
	}
	return &FusionPipeline{
		kf:     NewKalmanFilter(cfg),
		flight: flight,
	}
}

// Subscribe registers a callback invoked with every published result.
// Not safe to call concurrently with Process.
func (p *FusionPipeline) Subscribe(fn func(FusionResult)) {
	p.onResult = append(p.onResult, fn)
}

// Filter exposes the underlying filter for PredictDelta/GetState reads.
func (p *FusionPipeline) Filter() *KalmanFilter {
	return p.kf
}

// Failed reports whether the session has been poisoned by a fatal error.
func (p *FusionPipeline) Failed() bool {
	return p.failed
}

// Process ingests one fix and publishes the fused state. Malformed or
// out-of-order fixes are dropped with a typed error and do not reach
// the filter.
func (p *FusionPipeline) Process(fix *PositionFix) (FusionResult, error) {
	if p.failed {
		return FusionResult{}, ErrSessionFailed
	}
	if err := validateFix(fix); err != nil {
		return FusionResult{}, err
	}
	if last := p.kf.LastUpdate(); last != nil && fix.Millis < last.Millis {
		return FusionResult{}, fmt.Errorf("%w: %d ms behind filter at %d ms", ErrStaleFix, fix.Millis, last.Millis)
	}

	if p.flight != nil {
		p.flight.Observe(fix.GroundSpeed(), fix.Climb)
	}

	if err := p.kf.Update(fix); err != nil {
		if errors.Is(err, ErrSingularMatrix) {
			// Degenerate covariance construction, not sensor noise.
			// Continuing would corrupt the state, so end the session.
			log.Printf("fusion: fatal singular matrix at t=%d: %v", fix.Millis, err)
			p.failed = true
			return FusionResult{}, fmt.Errorf("%w: %v", ErrSessionFailed, err)
		}
		return FusionResult{}, err
	}
	p.numFixes++

	state := p.kf.GetState()
	result := FusionResult{
		TimestampMs:  fix.Millis,
		Lat:          fix.Lat,
		Lng:          fix.Lng,
		Alt:          fix.Alt,
		Position:     state.Position,
		Velocity:     state.Velocity,
		Acceleration: state.Acceleration,
		Kl:           state.Kl,
		Kd:           state.Kd,
		Roll:         state.Roll,
		Wind:         state.Wind,
		WindKl:       state.WindKl,
		WindKd:       state.WindKd,
		WindRoll:     state.WindRoll,
		Aoa:          state.WindAoa,
		OwnAoa:       state.OwnAoa,
		LD:           state.LD(),
	}
	if p.flight != nil {
		result.FlightMode = p.flight.Mode()
	}

	for _, fn := range p.onResult {
		fn(result)
	}
	return result, nil
}

// NumFixes reports how many fixes have been fused this session.
func (p *FusionPipeline) NumFixes() int {
	return p.numFixes
}

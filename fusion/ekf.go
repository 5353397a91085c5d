package fusion

import (
	"fmt"
	"math"
	"sync/atomic"
)

// PositionFix is one GPS measurement: geodetic position plus velocity
// decomposed into east/north groundspeed and climb rate.
type PositionFix struct {
	Millis int64 // GPS timestamp (ms since epoch)
	Lat    float64
	Lng    float64
	Alt    float64 // GPS altitude (m)
	VN     float64 // northward velocity (m/s)
	VE     float64 // eastward velocity (m/s)
	Climb  float64 // vertical velocity, positive up (m/s)
}

// GroundSpeed is the horizontal speed of the fix.
func (f *PositionFix) GroundSpeed() float64 {
	return math.Hypot(f.VN, f.VE)
}

// Config tunes a KalmanFilter. The zero value is not usable; call
// DefaultConfig and override fields as needed.
type Config struct {
	Polar       *WingsuitPolar
	TempOffsetC float64 // temperature offset for the density model (°C)
	// Density maps altitude to air density. Nil selects the standard
	// atmosphere at TempOffsetC; sensor-backed callers substitute their
	// own (e.g. from DensityFromPressureTemp).
	Density     DensityFunc
	RefreshRate float64 // expected fix rate (Hz), drives predictDelta smoothing
	// Grounded reports whether the vehicle is on the ground; grounded
	// sub-steps force zero acceleration. Nil means never grounded.
	Grounded      func() bool
	GroundMode    bool // honor Grounded during integration
	StepSmoothing bool // blend out the Kalman step in PredictDelta
}

// DefaultConfig returns the 20 Hz tuning with the Aura 5 polar.
func DefaultConfig() Config {
	return Config{
		Polar:         AuraFivePolar,
		TempOffsetC:   DefaultTempOffsetC,
		RefreshRate:   DefaultRefreshRateHz,
		GroundMode:    false,
		StepSmoothing: true,
	}
}

// KFState is an immutable snapshot of the filter output.
type KFState struct {
	Position     Vector3
	Velocity     Vector3
	Acceleration Vector3
	AMeasured    Vector3 // finite-difference accel of raw GPS velocity
	AWSE         Vector3 // model accel at the measured velocity
	Kl           float64
	Kd           float64
	Roll         float64
	Wind         Vector3
	WindKl       float64
	WindKd       float64
	WindRoll     float64
	WindAoa      float64
	// OwnAoa is the angle of attack implied by the filter's own kl/kd
	// through the empirical polar fit, independent of the wind match.
	OwnAoa float64
}

// LD is the glide ratio of the snapshot.
func (s KFState) LD() float64 {
	if s.Kd == 0 {
		return math.NaN()
	}
	return s.Kl / s.Kd
}

type predictCache struct {
	state       *committedState // snapshot the delta was computed from
	queryMillis int64
	delta       Vector3
}

// committedState is the reader-visible snapshot published after each
// Update. Readers never touch the live filter fields.
type committedState struct {
	x          [StateDim]float64
	origin     *PositionFix
	lastGps    *PositionFix
	aMeasured  Vector3
	aWSE       Vector3
	kalmanStep Vector3
	windAoa    float64
}

// KalmanFilter is an 18-state extended Kalman filter over ENU
// position/velocity/acceleration, the airframe's own lift/drag/roll,
// the 3D wind vector, and the wind-adjusted lift/drag/roll.
//
// State layout:
//
//	[0..2]   position (east, up, north)
//	[3..5]   velocity
//	[6..8]   acceleration
//	[9]      kl
//	[10]     kd
//	[11]     roll (radians)
//	[12..14] wind velocity (east, up, north)
//	[15]     wind-adjusted kl
//	[16]     wind-adjusted kd
//	[17]     wind-adjusted roll
//
// Measurements are 6-dimensional [position, velocity]. The measurement
// update corrects only indices 0..11; the wind block evolves solely
// through the parameter refresh, which runs the wind estimator against
// the aerodynamic model each fix.
//
// Single-writer, multi-reader: one goroutine delivers fixes via Update;
// PredictDelta, GetState, LastUpdate, and Origin may run concurrently
// from any number of readers, which observe the snapshot published by
// the last completed Update.
type KalmanFilter struct {
	x [StateDim]float64

	p [][]float64 // 18x18 covariance
	q [][]float64 // 18x18 process noise (per second)
	r [][]float64 // 6x6 measurement noise

	cfg  Config
	wind *WindEstimator

	origin  *PositionFix
	lastGps *PositionFix

	aMeasured  Vector3
	aWSE       Vector3
	kalmanStep Vector3
	windAoa    float64

	committed atomic.Pointer[committedState]
	cache     atomic.Pointer[predictCache]
}

// NewKalmanFilter creates an initialized filter.
func NewKalmanFilter(cfg Config) *KalmanFilter {
	if cfg.Polar == nil {
		cfg.Polar = AuraFivePolar
	}
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = DefaultRefreshRateHz
	}
	if cfg.Density == nil {
		cfg.Density = ISADensity(cfg.TempOffsetC)
	}
	kf := &KalmanFilter{
		cfg:  cfg,
		wind: NewWindEstimator(cfg.Polar),
	}
	kf.Initialize()
	return kf
}

// Initialize resets the filter to its pre-first-fix state: zero
// position/velocity/acceleration and wind, small positive aero
// coefficient seeds, and a weak prior covariance.
func (kf *KalmanFilter) Initialize() {
	kf.x = [StateDim]float64{}
	kf.x[9] = 0.01  // kl
	kf.x[10] = 0.01 // kd
	kf.x[15] = 0.01 // wind kl
	kf.x[16] = 0.01 // wind kd

	kf.p = Identity(StateDim)
	for i := 0; i < 9; i++ {
		kf.p[i][i] = SigmaPVA0
	}
	kf.p[9][9] = SigmaAero0
	kf.p[10][10] = SigmaAero0
	kf.p[11][11] = SigmaRoll0
	for i := 12; i < 15; i++ {
		kf.p[i][i] = SigmaWind0
	}
	kf.p[15][15] = SigmaAero0
	kf.p[16][16] = SigmaAero0
	kf.p[17][17] = SigmaRoll0

	kf.q = Identity(StateDim)
	for i := 0; i < 3; i++ {
		kf.q[i][i] = QPos
		kf.q[i+3][i+3] = QVel
		kf.q[i+6][i+6] = QAccel
		kf.q[i+12][i+12] = QWind
	}
	kf.q[9][9] = QAero
	kf.q[10][10] = QAero
	kf.q[11][11] = QRoll
	kf.q[15][15] = QWindAero
	kf.q[16][16] = QWindAero
	kf.q[17][17] = QWindRoll

	kf.r = Identity(MeaDim)
	for i := 0; i < 3; i++ {
		kf.r[i][i] = RPos
		kf.r[i+3][i+3] = RVel
	}

	kf.origin = nil
	kf.lastGps = nil
	kf.aMeasured = Vector3{}
	kf.aWSE = Vector3{}
	kf.kalmanStep = Vector3{}
	kf.windAoa = 0
	kf.wind.Reset()
	kf.commit()
}

// commit publishes the reader snapshot and invalidates the prediction
// cache. Called by the writer after every state change.
func (kf *KalmanFilter) commit() {
	kf.committed.Store(&committedState{
		x:          kf.x,
		origin:     kf.origin,
		lastGps:    kf.lastGps,
		aMeasured:  kf.aMeasured,
		aWSE:       kf.aWSE,
		kalmanStep: kf.kalmanStep,
		windAoa:    kf.windAoa,
	})
	kf.cache.Store(nil)
}

// Update ingests one GPS fix. The first fix defines the local tangent
// plane origin and seeds velocity directly; subsequent fixes run predict,
// measurement update, and parameter refresh. Fixes must arrive in
// non-decreasing timestamp order; a non-positive elapsed time skips the
// predict step but still applies the measurement. A fix that drives the
// state or covariance non-finite resets the filter and reports an error.
func (kf *KalmanFilter) Update(gps *PositionFix) error {
	if kf.lastGps == nil {
		kf.origin = gps
		kf.x[3] = gps.VE
		kf.x[4] = gps.Climb
		kf.x[5] = gps.VN
		kf.lastGps = gps
		kf.commit()
		return nil
	}

	pMeas := enuOffset(kf.origin.Lat, kf.origin.Lng, kf.origin.Alt, gps.Lat, gps.Lng, gps.Alt)
	vx, vy, vz := gps.VE, gps.Climb, gps.VN

	dt := math.Max(0, 1e-3*float64(gps.Millis-kf.lastGps.Millis))
	if dt > 0 {
		kf.aMeasured = Vector3{
			X: (vx - kf.lastGps.VE) / dt,
			Y: (vy - kf.lastGps.Climb) / dt,
			Z: (vz - kf.lastGps.VN) / dt,
		}
		kf.predict(dt)
	}

	if err := kf.measurementUpdate(pMeas, Vector3{X: vx, Y: vy, Z: vz}); err != nil {
		return fmt.Errorf("measurement update: %w", err)
	}

	kf.aWSE = WingsuitAcceleration(Vector3{X: vx, Y: vy, Z: vz}, WSEParams{Kl: kf.x[9], Kd: kf.x[10], Roll: kf.x[11]})

	if err := kf.refreshParameters(gps.Alt); err != nil {
		return fmt.Errorf("parameter refresh: %w", err)
	}

	if !allFinite(kf.x[:]) || !allFiniteMat(kf.p) {
		kf.Initialize()
		return fmt.Errorf("non-finite state after fix at %d ms: filter reset", gps.Millis)
	}

	kf.lastGps = gps
	kf.commit()
	return nil
}

// predict advances the state by dt seconds using fixed sub-steps, then
// runs the covariance predict P = F P Fᵀ + Q·dt.
func (kf *KalmanFilter) predict(dt float64) {
	remaining := dt
	for remaining > 0 {
		step := math.Min(remaining, MaxStep)
		kf.x = kf.integrateState(kf.x, step)
		remaining -= step
	}

	f := Jacobian(dt)
	fp := MatMul(f, kf.p)
	fpft := MatMul(fp, Transpose(f))
	qScaled := Zeros(StateDim, StateDim)
	for i := 0; i < StateDim; i++ {
		for j := 0; j < StateDim; j++ {
			qScaled[i][j] = kf.q[i][j] * dt
		}
	}
	kf.p = MatAdd(fpft, qScaled)
}

// measurementUpdate applies the 6-dim position+velocity observation.
// The Kalman correction is written only to indices 0..11.
func (kf *KalmanFilter) measurementUpdate(pMeas, vMeas Vector3) error {
	h := Zeros(MeaDim, StateDim)
	for i := 0; i < MeaDim; i++ {
		h[i][i] = 1
	}

	z := []float64{pMeas.X, pMeas.Y, pMeas.Z, vMeas.X, vMeas.Y, vMeas.Z}

	y := make([]float64, MeaDim)
	for i := 0; i < MeaDim; i++ {
		y[i] = z[i] - kf.x[i]
	}

	hp := MatMul(h, kf.p)
	s := MatAdd(MatMul(hp, Transpose(h)), kf.r)

	sInv, err := Inverse(s)
	if err != nil {
		return err
	}
	pht := MatMul(kf.p, Transpose(h))
	k := MatMul(pht, sInv)

	ky := MatVec(k, y)
	for i := 0; i < 12; i++ {
		kf.x[i] += ky[i]
	}
	kf.kalmanStep = Vector3{X: ky[0], Y: ky[1], Z: ky[2]}

	kh := MatMul(k, h)
	iKH := MatSub(Identity(StateDim), kh)
	kf.p = MatMul(iKH, kf.p)
	return nil
}

// refreshParameters updates the aero block from the filtered velocity
// and acceleration, then runs the wind estimator and writes the wind
// block (indices 12..17).
func (kf *KalmanFilter) refreshParameters(altitude float64) error {
	vKal := Vector3{X: kf.x[3], Y: kf.x[4], Z: kf.x[5]}
	aKal := Vector3{X: kf.x[6], Y: kf.x[7], Z: kf.x[8]}
	if vKal.Magnitude() < MinParamSpeed {
		return nil
	}

	updated := WingsuitParameters(vKal, aKal, WSEParams{Kl: kf.x[9], Kd: kf.x[10], Roll: kf.x[11]})
	kf.x[9] = updated.Kl
	kf.x[10] = updated.Kd
	kf.x[11] = updated.Roll

	rho := kf.cfg.Density(altitude)
	result, err := kf.wind.UpdateWindEstimation(vKal, aKal, kf.x[11], rho)
	if err != nil {
		return err
	}

	kf.x[12] = result.WindVelocity.X
	kf.x[13] = result.WindVelocity.Y
	kf.x[14] = result.WindVelocity.Z
	kWing := kf.cfg.Polar.WingLoadingFactor(rho)
	kf.x[15] = result.Coefficients.Cl * kWing / G
	kf.x[16] = result.Coefficients.Cd * kWing / G
	kf.x[17] = result.Roll
	kf.windAoa = result.AngleOfAttack
	return nil
}

// integrateState is one sub-step of the standard integrator:
// p += v·dt, v += a·dt, a := model(new v, params), with a ±3g clamp
// that falls back to the previous acceleration and an optional grounded
// override forcing zero acceleration.
func (kf *KalmanFilter) integrateState(s [StateDim]float64, dt float64) [StateDim]float64 {
	out := s
	out[0] = s[0] + s[3]*dt
	out[1] = s[1] + s[4]*dt
	out[2] = s[2] + s[5]*dt
	out[3] = s[3] + s[6]*dt
	out[4] = s[4] + s[7]*dt
	out[5] = s[5] + s[8]*dt

	aWse := WingsuitAcceleration(
		Vector3{X: out[3], Y: out[4], Z: out[5]},
		WSEParams{Kl: s[9], Kd: s[10], Roll: s[11]},
	)
	if math.Abs(aWse.X) > AccelLimit || math.Abs(aWse.Y) > AccelLimit || math.Abs(aWse.Z) > AccelLimit {
		aWse = Vector3{X: s[6], Y: s[7], Z: s[8]}
	}
	if kf.cfg.GroundMode && kf.cfg.Grounded != nil && kf.cfg.Grounded() {
		aWse = Vector3{}
	}
	out[6] = aWse.X
	out[7] = aWse.Y
	out[8] = aWse.Z
	return out
}

// PredictDelta extrapolates the committed state to the query time and
// returns the position delta relative to the committed position. It
// never mutates filter state, returns a zero delta for query times at or
// before the last fix, and caches the result so repeated calls with the
// same query time between updates are free. Step smoothing subtracts a
// decaying fraction of the last Kalman position correction so fresh GPS
// corrections blend in instead of jumping.
func (kf *KalmanFilter) PredictDelta(queryMillis int64) Vector3 {
	c := kf.committed.Load()
	if c == nil || c.lastGps == nil {
		return Vector3{}
	}
	if cached := kf.cache.Load(); cached != nil && cached.state == c && cached.queryMillis == queryMillis {
		return cached.delta
	}

	dt := float64(queryMillis-c.lastGps.Millis) * 1e-3
	if dt <= 0 {
		delta := Vector3{}
		kf.cache.Store(&predictCache{state: c, queryMillis: queryMillis, delta: delta})
		return delta
	}

	s := c.x
	remaining := dt
	for remaining > 0 {
		step := math.Min(remaining, MaxStep)
		s = kf.integrateState(s, step)
		remaining -= step
	}

	delta := Vector3{X: s[0] - c.x[0], Y: s[1] - c.x[1], Z: s[2] - c.x[2]}
	if kf.cfg.StepSmoothing {
		alpha := clamp(1-dt*kf.cfg.RefreshRate, 0, 1)
		ps := c.kalmanStep.Mul(alpha)
		delta = delta.Minus(ps)
	}

	kf.cache.Store(&predictCache{state: c, queryMillis: queryMillis, delta: delta})
	return delta
}

// GetState returns an immutable snapshot of the full 18-component state
// plus the auxiliary acceleration views, as of the last completed Update.
func (kf *KalmanFilter) GetState() KFState {
	c := kf.committed.Load()
	if c == nil {
		return KFState{}
	}
	var alt float64
	if c.lastGps != nil {
		alt = c.lastGps.Alt
	}
	return KFState{
		Position:     Vector3{X: c.x[0], Y: c.x[1], Z: c.x[2]},
		Velocity:     Vector3{X: c.x[3], Y: c.x[4], Z: c.x[5]},
		Acceleration: Vector3{X: c.x[6], Y: c.x[7], Z: c.x[8]},
		AMeasured:    c.aMeasured,
		AWSE:         c.aWSE,
		Kl:           c.x[9],
		Kd:           c.x[10],
		Roll:         c.x[11],
		Wind:         Vector3{X: c.x[12], Y: c.x[13], Z: c.x[14]},
		WindKl:       c.x[15],
		WindKd:       c.x[16],
		WindRoll:     c.x[17],
		WindAoa:      c.windAoa,
		OwnAoa:       KlKdToAoa(c.x[9], c.x[10], alt, kf.cfg.Polar),
	}
}

// LastUpdate returns the most recent fix delivered to Update, or nil.
func (kf *KalmanFilter) LastUpdate() *PositionFix {
	if c := kf.committed.Load(); c != nil {
		return c.lastGps
	}
	return nil
}

// Origin returns the first fix, which anchors the local tangent plane.
func (kf *KalmanFilter) Origin() *PositionFix {
	if c := kf.committed.Load(); c != nil {
		return c.origin
	}
	return nil
}

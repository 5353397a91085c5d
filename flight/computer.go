package flight

import "log"

// Computer tracks flight mode over a stream of speed observations and
// exposes a grounded signal for the fusion pipeline.
type Computer struct {
	mode     int
	lastMode int
}

// NewComputer starts in the unknown mode.
func NewComputer() *Computer {
	return &Computer{mode: ModeUnknown, lastMode: ModeUnknown}
}

// Observe updates the mode from the latest fix speeds.
func (c *Computer) Observe(groundSpeed, climb float64) {
	c.mode = GetMode(groundSpeed, climb)
	if c.mode != c.lastMode {
		log.Printf("flight: mode %s", ModeString(c.mode))
		c.lastMode = c.mode
	}
}

// Mode returns the current flight mode.
func (c *Computer) Mode() int {
	return c.mode
}

// Grounded reports whether the vehicle is on the ground.
func (c *Computer) Grounded() bool {
	return c.mode == ModeGround
}

// ModeString returns the current mode name.
func (c *Computer) ModeString() string {
	return ModeString(c.mode)
}

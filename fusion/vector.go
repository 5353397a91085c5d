package fusion

import "math"

// Vector3 is a 3D vector in ENU coordinates (x=east, y=up, z=north).
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Plus(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector3) Minus(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vector3) Mul(s float64) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vector3) Div(s float64) Vector3 {
	return Vector3{v.X / s, v.Y / s, v.Z / s}
}

func (v Vector3) Dot(o Vector3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns the unit vector, or the zero vector for near-zero input.
func (v Vector3) Normalize() Vector3 {
	m := v.Magnitude()
	if m < 1e-12 {
		return Vector3{}
	}
	return v.Div(m)
}

// GroundSpeed is the horizontal (east/north) speed component.
func (v Vector3) GroundSpeed() float64 {
	return math.Hypot(v.X, v.Z)
}

func (v Vector3) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

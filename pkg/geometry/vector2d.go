package geometry

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance used for float64 comparisons and for deciding
// that a vector is too short to carry a direction.
const (
	Epsilon = 1e-9
)

// Vector2D represents a 2D vector or point in cartesian space.
type Vector2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Zero is the additive identity.
var Zero = Vector2D{}

// String implements the fmt.Stringer interface.
func (v Vector2D) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
}

// ---------------------------------------------------------------------
// Arithmetic Operations
// Value receivers, new values returned.
// ---------------------------------------------------------------------

// Add adds two vectors and returns the result.
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{v.X + other.X, v.Y + other.Y}
}

// Sub subtracts the other vector from the current vector.
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{v.X - other.X, v.Y - other.Y}
}

// Mul scales the vector by a scalar value.
func (v Vector2D) Mul(scalar float64) Vector2D {
	return Vector2D{v.X * scalar, v.Y * scalar}
}

// ---------------------------------------------------------------------
// Magnitude and Normalization
// ---------------------------------------------------------------------

// LenSqr calculates the squared magnitude of the vector.
// Use it for comparisons, it avoids the square root.
func (v Vector2D) LenSqr() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Len calculates the magnitude (length) of the vector.
func (v Vector2D) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// IsZero reports whether the vector is too short to have a direction.
func (v Vector2D) IsZero() bool {
	return v.Len() < Epsilon
}

// Normalize returns a unit vector in the same direction.
// Returns a zero vector if the length is effectively zero.
func (v Vector2D) Normalize() Vector2D {
	n, _ := v.NormalizeChecked()
	return n
}

// NormalizeChecked is Normalize but also reports whether the input had a
// direction at all. ok is false when the zero vector was substituted.
func (v Vector2D) NormalizeChecked() (n Vector2D, ok bool) {
	l := v.Len()
	if l < Epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vector2D{0, 0}, false
	}
	return v.Mul(1 / l), true
}

// SetLen returns a vector with the same direction and the given length.
// The zero vector stays zero.
func (v Vector2D) SetLen(length float64) Vector2D {
	return v.Normalize().Mul(length)
}

// Limit clamps the magnitude of the vector to max, keeping its direction.
// A non positive max yields the zero vector.
func (v Vector2D) Limit(max float64) Vector2D {
	if max <= 0 {
		return Vector2D{0, 0}
	}
	lenSq := v.LenSqr()
	if lenSq <= max*max {
		return v
	}
	return v.Mul(max / math.Sqrt(lenSq))
}

// ---------------------------------------------------------------------
// Geometric Utilities
// ---------------------------------------------------------------------

// DistanceTo calculates the Euclidean distance to another vector.
func (v Vector2D) DistanceTo(other Vector2D) float64 {
	return v.Sub(other).Len()
}

// DistanceSquaredTo calculates the squared Euclidean distance to another vector.
func (v Vector2D) DistanceSquaredTo(other Vector2D) float64 {
	return v.Sub(other).LenSqr()
}

// Heading returns the counter-clockwise rotation that takes the up axis (0,1)
// onto the direction of v. The zero vector has heading 0.
func (v Vector2D) Heading() float64 {
	if v.IsZero() {
		return 0
	}
	return math.Atan2(-v.X, v.Y)
}

// Rotate rotates the vector by angle (in radians) around the origin (0,0).
func (v Vector2D) Rotate(angle float64) Vector2D {
	cosTheta := math.Cos(angle)
	sinTheta := math.Sin(angle)
	return Vector2D{
		X: v.X*cosTheta - v.Y*sinTheta,
		Y: v.X*sinTheta + v.Y*cosTheta,
	}
}

// Eq checks if two vectors are approximately equal using the Epsilon constant.
func (v Vector2D) Eq(other Vector2D) bool {
	return math.Abs(v.X-other.X) <= Epsilon && math.Abs(v.Y-other.Y) <= Epsilon
}

// Package arm implements the geometric control loop of a 3-segment arm
// whose end-effector orbits a smoothed 2D pointer.
//
// Angles are in degrees unless a name says otherwise. Screen coordinates
// are used throughout, so y grows downwards and positive angles turn
// clockwise on screen.
package arm

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point2D is a position in window coordinates.
type Point2D = r2.Vec

// Pt is shorthand for constructing a Point2D.
func Pt(x, y float64) Point2D {
	return r2.Vec{X: x, Y: y}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point2D) float64 {
	return r2.Norm(r2.Sub(b, a))
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// NormalizeDegrees wraps an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	n := math.Mod(deg, 360)
	if n < 0 {
		n += 360
	}
	// -1e-15 + 360 rounds to 360
	if n >= 360 {
		n = 0
	}
	return n
}

// Heading returns the absolute direction from a to b, normalized to [0, 360).
func Heading(a, b Point2D) float64 {
	return NormalizeDegrees(Degrees(math.Atan2(b.Y-a.Y, b.X-a.X)))
}

// Direction returns the unit vector for an angle in degrees.
func Direction(deg float64) Point2D {
	rad := Radians(deg)
	return r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)}
}

// perp rotates v a quarter turn: (x, y) -> (y, -x).
func perp(v Point2D) Point2D {
	return r2.Vec{X: v.Y, Y: -v.X}
}

package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is the vector type used throughout the engine.
type Vec3 = r3.Vec

// Up is the fallback collision normal when a particle sits on the obstacle centre.
var Up = Vec3{X: 0, Y: 1, Z: 0}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func Add(a, b Vec3) Vec3           { return r3.Add(a, b) }
func Sub(a, b Vec3) Vec3           { return r3.Sub(a, b) }
func Scale(f float64, v Vec3) Vec3 { return r3.Scale(f, v) }
func Length(v Vec3) float64        { return r3.Norm(v) }
func Distance(a, b Vec3) float64   { return r3.Norm(r3.Sub(a, b)) }
func Dot(a, b Vec3) float64        { return r3.Dot(a, b) }
func LengthSquared(v Vec3) float64 { return r3.Norm2(v) }

// Normalize returns the unit vector of v, or the zero vector when v has no length.
func Normalize(v Vec3) Vec3 {
	if v.X == 0 && v.Y == 0 && v.Z == 0 {
		return Vec3{}
	}
	return r3.Unit(v)
}

// HasNaN reports whether any component is NaN or infinite.
func HasNaN(v Vec3) bool {
	return !finite(v.X) || !finite(v.Y) || !finite(v.Z)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

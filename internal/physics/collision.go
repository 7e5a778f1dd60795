package physics

import "github.com/san-kum/springsim/internal/dynamo"

// Contact describes a particle inside the obstacle.
type Contact struct {
	Depth  float64
	Normal dynamo.Vec3
}

// Penetrate returns the contact for a point inside the sphere. A point exactly
// at the centre is pushed along +Y.
func Penetrate(p dynamo.Vec3, o dynamo.Obstacle) (Contact, bool) {
	toParticle := dynamo.Sub(p, o.Center)
	dist := dynamo.Length(toParticle)
	if !(dist < o.Radius) {
		return Contact{}, false
	}

	normal := dynamo.Up
	if dist > 0 {
		normal = dynamo.Normalize(toParticle)
	}
	return Contact{Depth: o.Radius - dist, Normal: normal}, true
}

// Collision is the penalty force stiffness*depth*normal, zero outside the sphere.
// The particle is never projected out directly.
func Collision(p dynamo.Vec3, o dynamo.Obstacle, stiffness float64) dynamo.Vec3 {
	c, ok := Penetrate(p, o)
	if !ok {
		return dynamo.Vec3{}
	}
	return dynamo.Scale(stiffness*c.Depth, c.Normal)
}

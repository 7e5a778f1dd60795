package dynamo

import (
	"fmt"
	"math"
)

// Particle is a simulated point. Mass is shared per simulation, not stored here.
type Particle struct {
	Position Vec3
	Velocity Vec3
	Fixed    bool
}

// Spring links particles I and J. RestLength is captured once at build time.
type Spring struct {
	I, J       int
	RestLength float64
}

// Other returns the index at the opposite end of the spring from idx.
func (s Spring) Other(idx int) int {
	if s.I == idx {
		return s.J
	}
	return s.I
}

// Validate checks the spring against a particle arena of size n.
func (s Spring) Validate(n int) error {
	if s.I == s.J {
		return fmt.Errorf("%w: spring %d-%d connects a particle to itself", ErrInvalidTopology, s.I, s.J)
	}
	if s.I < 0 || s.J < 0 || s.I >= n || s.J >= n {
		return fmt.Errorf("%w: spring %d-%d outside %d particles", ErrInvalidTopology, s.I, s.J, n)
	}
	if !(s.RestLength > 0) || math.IsInf(s.RestLength, 0) {
		return fmt.Errorf("%w: spring %d-%d rest length %v", ErrInvalidTopology, s.I, s.J, s.RestLength)
	}
	return nil
}

// Obstacle is the rigid sphere particles collide against.
type Obstacle struct {
	Center Vec3
	Radius float64
}

// Contains reports whether p lies strictly inside the sphere.
func (o Obstacle) Contains(p Vec3) bool {
	return Distance(p, o.Center) < o.Radius
}

// Endpoints is a copy of one spring's current end positions.
type Endpoints struct {
	A, B Vec3
}

// Integrator advances particles by one timestep in place. Particles for which
// skip returns true, and fixed particles, are left untouched. Rejected updates
// are returned as events with Step left at zero for the caller to fill.
type Integrator interface {
	Step(particles []Particle, forces []Vec3, mass, dt, damping float64, skip func(int) bool) []DivergenceEvent
}

// Driver moves anchors. Given simulation time and the anchors' base
// positions, it returns where each anchor should be after the step.
type Driver interface {
	Targets(t float64, base []Vec3) []Vec3
}

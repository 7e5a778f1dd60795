package integrators

import (
	"github.com/san-kum/springsim/internal/dynamo"
)

const (
	DefaultMaxPosition = 1000.0
	DefaultMaxVelocity = 1000.0
)

// Euler is the explicit Euler stepper with post-integration velocity damping:
//
//	a = F/m
//	v += a*dt
//	x += v*dt
//	v *= damping
//
// A candidate state containing NaN/Inf, or exceeding MaxPosition or
// MaxVelocity in magnitude, is rejected and the particle keeps its
// pre-step state.
type Euler struct {
	MaxPosition float64
	MaxVelocity float64
}

func NewEuler() *Euler {
	return &Euler{
		MaxPosition: DefaultMaxPosition,
		MaxVelocity: DefaultMaxVelocity,
	}
}

// Advance returns the candidate next state of p without checking it.
func (e *Euler) Advance(p dynamo.Particle, force dynamo.Vec3, mass, dt, damping float64) dynamo.Particle {
	acc := dynamo.Scale(1/mass, force)
	p.Velocity = dynamo.Add(p.Velocity, dynamo.Scale(dt, acc))
	p.Position = dynamo.Add(p.Position, dynamo.Scale(dt, p.Velocity))
	p.Velocity = dynamo.Scale(damping, p.Velocity)
	return p
}

// Check classifies a candidate state.
func (e *Euler) Check(p dynamo.Particle) dynamo.DivergenceCause {
	switch {
	case dynamo.HasNaN(p.Position) || dynamo.HasNaN(p.Velocity):
		return dynamo.CauseNaN
	case dynamo.Length(p.Position) > e.MaxPosition:
		return dynamo.CausePositionBound
	case dynamo.Length(p.Velocity) > e.MaxVelocity:
		return dynamo.CauseVelocityBound
	}
	return dynamo.CauseNone
}

func (e *Euler) Step(particles []dynamo.Particle, forces []dynamo.Vec3, mass, dt, damping float64, skip func(int) bool) []dynamo.DivergenceEvent {
	var events []dynamo.DivergenceEvent

	for i := range particles {
		if particles[i].Fixed || (skip != nil && skip(i)) {
			continue
		}

		next := e.Advance(particles[i], forces[i], mass, dt, damping)
		if cause := e.Check(next); cause != dynamo.CauseNone {
			events = append(events, dynamo.DivergenceEvent{ParticleIndex: i, Cause: cause})
			continue
		}
		particles[i] = next
	}

	return events
}

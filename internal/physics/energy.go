package physics

import (
	"github.com/san-kum/springsim/internal/dynamo"
)

// Energy is the breakdown of an arena's mechanical energy.
type Energy struct {
	Kinetic   float64
	Spring    float64
	Gravity   float64
	Collision float64
}

func (e Energy) Potential() float64 { return e.Spring + e.Gravity + e.Collision }
func (e Energy) Total() float64     { return e.Kinetic + e.Potential() }

// KineticEnergy sums ½mv² over free particles.
func KineticEnergy(particles []dynamo.Particle, mass float64) float64 {
	ke := 0.0
	for _, p := range particles {
		if p.Fixed {
			continue
		}
		ke += 0.5 * mass * dynamo.LengthSquared(p.Velocity)
	}
	return ke
}

// ComputeEnergy measures gravitational energy relative to y=0.
func ComputeEnergy(particles []dynamo.Particle, springs []dynamo.Spring, env Environment) Energy {
	e := Energy{Kinetic: KineticEnergy(particles, env.Mass)}

	for _, s := range springs {
		ext := dynamo.Distance(particles[s.I].Position, particles[s.J].Position) - s.RestLength
		e.Spring += 0.5 * env.Params.Stiffness * ext * ext
	}

	for _, p := range particles {
		if p.Fixed {
			continue
		}
		e.Gravity += -env.Mass * env.Params.Gravity * p.Position.Y
		if env.Obstacle != nil {
			if c, ok := Penetrate(p.Position, *env.Obstacle); ok {
				e.Collision += 0.5 * env.Params.CollisionStiffness * c.Depth * c.Depth
			}
		}
	}

	return e
}

// MaxStrain returns the largest |length-rest|/rest over all springs.
func MaxStrain(particles []dynamo.Particle, springs []dynamo.Spring) float64 {
	worst := 0.0
	for _, s := range springs {
		l := dynamo.Distance(particles[s.I].Position, particles[s.J].Position)
		strain := (l - s.RestLength) / s.RestLength
		if strain < 0 {
			strain = -strain
		}
		if strain > worst {
			worst = strain
		}
	}
	return worst
}

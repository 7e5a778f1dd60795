package physics

import "github.com/san-kum/springsim/internal/dynamo"

// Environment bundles everything besides the arena that forces depend on.
type Environment struct {
	Mass     float64
	Params   dynamo.Params
	Obstacle *dynamo.Obstacle // nil disables collisions
}

// Gravity returns (0, g*mass, 0).
func Gravity(g, mass float64) dynamo.Vec3 {
	return dynamo.V(0, g*mass, 0)
}

// SpringForce is the Hookean force on the particle at p from a spring to other.
// Coincident endpoints contribute nothing.
func SpringForce(p, other dynamo.Vec3, restLength, stiffness float64) dynamo.Vec3 {
	d := dynamo.Sub(p, other)
	length := dynamo.Length(d)
	if length == 0 {
		return dynamo.Vec3{}
	}
	extension := length - restLength
	return dynamo.Scale(-stiffness*extension, dynamo.Normalize(d))
}

// Drag opposes the current velocity.
func Drag(velocity dynamo.Vec3, coefficient float64) dynamo.Vec3 {
	return dynamo.Scale(-coefficient, velocity)
}

// ParticleForce sums every contribution acting on particle idx.
func ParticleForce(idx int, particles []dynamo.Particle, springs []dynamo.Spring, incident []int, env Environment) dynamo.Vec3 {
	p := particles[idx]
	total := Gravity(env.Params.Gravity, env.Mass)

	for _, si := range incident {
		s := springs[si]
		other := particles[s.Other(idx)].Position
		total = dynamo.Add(total, SpringForce(p.Position, other, s.RestLength, env.Params.Stiffness))
	}

	if env.Params.Drag != 0 {
		total = dynamo.Add(total, Drag(p.Velocity, env.Params.Drag))
	}

	if env.Obstacle != nil {
		total = dynamo.Add(total, Collision(p.Position, *env.Obstacle, env.Params.CollisionStiffness))
	}

	return total
}

// Accumulate fills forces[i] for every particle that skip does not exclude.
// All forces come from the same snapshot of positions, so the order particles
// are visited in does not matter. Excluded entries are zeroed.
func Accumulate(forces []dynamo.Vec3, particles []dynamo.Particle, springs []dynamo.Spring, incident [][]int, env Environment, skip func(int) bool) {
	for i := range particles {
		if particles[i].Fixed || (skip != nil && skip(i)) {
			forces[i] = dynamo.Vec3{}
			continue
		}
		forces[i] = ParticleForce(i, particles, springs, incident[i], env)
	}
}

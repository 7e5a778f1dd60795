// Package dynamo provides the core primitives of the mass-spring engine.
//
// The package defines the arena types shared by every other package:
//
//   - [Vec3]: 3D vector backed by gonum's r3
//   - [Particle]: point mass with position, velocity and a fixed flag
//   - [Spring]: Hookean link between two particle indices
//   - [Obstacle]: sphere used for penalty collisions
//   - [Params]: strongly typed simulation parameters
//
// Particles and springs live in contiguous slices and refer to each other
// by integer index only, so a topology rebuild replaces the slices wholesale.
//
// # Example
//
//	p := dynamo.DefaultParams()
//	p.Stiffness = 50
//	if err := p.Validate(); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// Nothing in this package is synchronised. A simulation owns its particle
// and spring slices exclusively.
package dynamo

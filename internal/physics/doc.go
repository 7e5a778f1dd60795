// Package physics computes the forces acting on a particle arena.
//
// The model is pure superposition. For every free particle the total force is
//
//	F = gravity + Σ springs + drag + collision penalty
//
// with no implicit coupling between terms, which is what makes large
// stiffness or timestep values push explicit Euler out of its stable region.
//
// [Energy] reports the kinetic and potential energy of an arena, used by the
// metrics package to watch damping and divergence.
package physics

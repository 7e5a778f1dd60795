package sim

import (
	"log/slog"

	"github.com/san-kum/springsim/internal/compute"
	"github.com/san-kum/springsim/internal/dynamo"
)

type Option func(*Simulation)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithMass sets the mass shared by every particle. Default 1.
func WithMass(m float64) Option {
	return func(s *Simulation) { s.mass = m }
}

func WithObstacle(o dynamo.Obstacle) Option {
	return func(s *Simulation) { s.obstacle = &o }
}

func WithDriver(d dynamo.Driver) Option {
	return func(s *Simulation) { s.driver = d }
}

// WithBackend sets how forces are evaluated. Default compute.Serial.
func WithBackend(b compute.Backend) Option {
	return func(s *Simulation) { s.backend = b }
}

func WithIntegrator(i dynamo.Integrator) Option {
	return func(s *Simulation) { s.integrator = i }
}

// WithAnchors overrides the initial anchor positions built by the layout.
// The count must match the layout's fixed particles.
func WithAnchors(positions ...dynamo.Vec3) Option {
	return func(s *Simulation) {
		s.anchorOverride = append([]dynamo.Vec3(nil), positions...)
	}
}

package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/sim"
)

// Stability is the fraction of advancing steps with no divergence event.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string { return s.name }

func (s *Stability) Observe(f sim.Frame) {
	if !f.Report.Advanced {
		return
	}
	s.samples++
	if f.Report.Diverged() {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// MaxStrain is the worst |length-rest|/rest seen over all frames.
type MaxStrain struct {
	name    string
	history []float64
}

func NewMaxStrain() *MaxStrain {
	return &MaxStrain{name: "max_strain"}
}

func (m *MaxStrain) Name() string { return m.name }

func (m *MaxStrain) Observe(f sim.Frame) {
	m.history = append(m.history, physics.MaxStrain(f.Particles, f.Springs))
}

func (m *MaxStrain) Value() float64 {
	if len(m.history) == 0 {
		return 0
	}
	return floats.Max(m.history)
}

func (m *MaxStrain) Reset() { m.history = m.history[:0] }

package sim

import (
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/physics"
)

// StepReport summarises one call to Step.
type StepReport struct {
	Step        int
	Time        float64
	Rebuilt     bool // topology was rebuilt instead of advancing
	Advanced    bool
	Divergences []dynamo.DivergenceEvent
}

func (r StepReport) Diverged() bool { return len(r.Divergences) > 0 }

// Frame is the state handed to metrics and observers after a step.
// Springs is shared with the simulation and must not be modified.
type Frame struct {
	Step      int
	Time      float64
	Mass      float64
	Particles []dynamo.Particle
	Springs   []dynamo.Spring
	Energy    physics.Energy
	Report    StepReport
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Frame)

func (f ObserverFunc) OnStep(fr Frame) { f(fr) }

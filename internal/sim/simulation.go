package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/springsim/internal/compute"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/integrators"
	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/topology"
)

// Obstacle parameter names understood by SetParameter on top of dynamo's.
const (
	ParamSphereX      = "sphere_x"
	ParamSphereY      = "sphere_y"
	ParamSphereZ      = "sphere_z"
	ParamSphereRadius = "sphere_radius"
)

// Simulation owns one particle/spring arena and advances it in time.
// It is not safe for concurrent use; callers step it from one goroutine.
type Simulation struct {
	layout     topology.Layout
	integrator dynamo.Integrator
	backend    compute.Backend
	driver     dynamo.Driver
	logger     *slog.Logger
	mass       float64
	obstacle   *dynamo.Obstacle

	anchorOverride []dynamo.Vec3

	params   dynamo.Params
	topo     *topology.Topology
	base     []dynamo.Vec3
	forces   []dynamo.Vec3
	diverged []bool
	time     float64
	steps    int

	metrics   []Metric
	observers []Observer
}

// New builds a simulation for layout and resets it with params.
func New(layout topology.Layout, params dynamo.Params, opts ...Option) (*Simulation, error) {
	s := &Simulation{
		layout:     layout,
		integrator: integrators.NewEuler(),
		backend:    compute.Serial{},
		logger:     slog.Default(),
		mass:       1.0,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !(s.mass > 0) {
		return nil, fmt.Errorf("%w: mass must be positive, got %v", dynamo.ErrInvalidParameter, s.mass)
	}
	if err := s.Reset(params); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulation) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Reset rebuilds the topology from params, zeroes velocities and clears
// divergence state. On error the previous state is kept.
func (s *Simulation) Reset(params dynamo.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}

	topo, err := s.layout.Build(params.Resolution)
	if err != nil {
		return fmt.Errorf("build %s: %w", s.layout.Name(), err)
	}

	if s.anchorOverride != nil {
		if len(s.anchorOverride) != len(topo.Anchors) {
			return fmt.Errorf("%w: %d anchor positions for %d fixed particles",
				dynamo.ErrInvalidTopology, len(s.anchorOverride), len(topo.Anchors))
		}
		for k, idx := range topo.Anchors {
			topo.Particles[idx].Position = s.anchorOverride[k]
		}
	}

	s.topo = topo
	s.params = params
	s.base = make([]dynamo.Vec3, len(topo.Anchors))
	for k, idx := range topo.Anchors {
		s.base[k] = topo.Particles[idx].Position
	}
	s.forces = make([]dynamo.Vec3, len(topo.Particles))
	s.diverged = make([]bool, len(topo.Particles))
	s.time = 0
	s.steps = 0

	for _, m := range s.metrics {
		m.Reset()
	}

	s.logger.Info("topology built",
		"layout", s.layout.Name(),
		"resolution", params.Resolution,
		"particles", len(topo.Particles),
		"springs", len(topo.Springs))
	return nil
}

// Step advances the simulation by dt using params as the live configuration.
// If params asks for a different resolution the topology is rebuilt and the
// call returns without advancing; the only error Step returns is a failed
// rebuild.
func (s *Simulation) Step(dt float64, params dynamo.Params) (StepReport, error) {
	if s.layout.ResolutionDependent() && params.Resolution != s.topo.Resolution {
		if err := s.Reset(params); err != nil {
			return StepReport{Step: s.steps, Time: s.time}, err
		}
		report := StepReport{Step: s.steps, Time: s.time, Rebuilt: true}
		s.notify(report)
		return report, nil
	}
	s.params = params

	particles := s.topo.Particles
	skip := s.isDiverged
	s.backend.Accumulate(s.forces, particles, s.topo.Springs, s.topo.Incident, s.env(), skip)
	events := s.integrator.Step(particles, s.forces, s.mass, dt, params.Damping, skip)

	s.time += dt
	s.steps++

	for i := range events {
		events[i].Step = s.steps
		s.diverged[events[i].ParticleIndex] = true
		s.logger.Warn("particle diverged", "event", events[i])
	}

	if s.driver != nil {
		targets := s.driver.Targets(s.time, s.base)
		for k, idx := range s.topo.Anchors {
			particles[idx].Position = targets[k]
		}
	}

	report := StepReport{
		Step:        s.steps,
		Time:        s.time,
		Advanced:    true,
		Divergences: events,
	}
	s.notify(report)
	return report, nil
}

// Advance steps with the live parameters and their timestep.
func (s *Simulation) Advance() (StepReport, error) {
	return s.Step(s.params.Timestep, s.params)
}

// SetParameter updates one live scalar. Values are not clamped.
// A resolution change takes effect on the next Step.
func (s *Simulation) SetParameter(name string, value float64) error {
	switch name {
	case ParamSphereX, ParamSphereY, ParamSphereZ, ParamSphereRadius:
		o := dynamo.Obstacle{}
		if s.obstacle != nil {
			o = *s.obstacle
		}
		switch name {
		case ParamSphereX:
			o.Center.X = value
		case ParamSphereY:
			o.Center.Y = value
		case ParamSphereZ:
			o.Center.Z = value
		case ParamSphereRadius:
			o.Radius = value
		}
		s.obstacle = &o
		return nil
	}
	return s.params.SetParam(name, value)
}

// GetParams implements dynamo.Configurable, including obstacle fields when set.
func (s *Simulation) GetParams() map[string]float64 {
	out := s.params.GetParams()
	if s.obstacle != nil {
		out[ParamSphereX] = s.obstacle.Center.X
		out[ParamSphereY] = s.obstacle.Center.Y
		out[ParamSphereZ] = s.obstacle.Center.Z
		out[ParamSphereRadius] = s.obstacle.Radius
	}
	return out
}

func (s *Simulation) SetParam(name string, value float64) error { return s.SetParameter(name, value) }

// SetAnchor moves fixed particle index to pos and makes pos its new base
// position for the driver.
func (s *Simulation) SetAnchor(index int, pos dynamo.Vec3) error {
	if index < 0 || index >= len(s.topo.Particles) {
		return fmt.Errorf("%w: %d", dynamo.ErrIndexOutOfRange, index)
	}
	if !s.topo.Particles[index].Fixed {
		return fmt.Errorf("%w: %d", dynamo.ErrNotAnchor, index)
	}
	for k, idx := range s.topo.Anchors {
		if idx == index {
			s.base[k] = pos
			break
		}
	}
	s.topo.Particles[index].Position = pos
	return nil
}

// SetObstacle replaces the collision sphere; nil disables collisions.
func (s *Simulation) SetObstacle(o *dynamo.Obstacle) {
	if o == nil {
		s.obstacle = nil
		return
	}
	c := *o
	s.obstacle = &c
}

func (s *Simulation) SetDriver(d dynamo.Driver) { s.driver = d }

func (s *Simulation) Obstacle() (dynamo.Obstacle, bool) {
	if s.obstacle == nil {
		return dynamo.Obstacle{}, false
	}
	return *s.obstacle, true
}

func (s *Simulation) Positions() []dynamo.Vec3 {
	out := make([]dynamo.Vec3, len(s.topo.Particles))
	for i, p := range s.topo.Particles {
		out[i] = p.Position
	}
	return out
}

func (s *Simulation) Velocities() []dynamo.Vec3 {
	out := make([]dynamo.Vec3, len(s.topo.Particles))
	for i, p := range s.topo.Particles {
		out[i] = p.Velocity
	}
	return out
}

func (s *Simulation) Particles() []dynamo.Particle {
	out := make([]dynamo.Particle, len(s.topo.Particles))
	copy(out, s.topo.Particles)
	return out
}

func (s *Simulation) Springs() []dynamo.Spring {
	out := make([]dynamo.Spring, len(s.topo.Springs))
	copy(out, s.topo.Springs)
	return out
}

func (s *Simulation) SpringEndpoints() []dynamo.Endpoints {
	out := make([]dynamo.Endpoints, len(s.topo.Springs))
	for i, sp := range s.topo.Springs {
		out[i] = dynamo.Endpoints{
			A: s.topo.Particles[sp.I].Position,
			B: s.topo.Particles[sp.J].Position,
		}
	}
	return out
}

func (s *Simulation) Anchors() []int {
	return append([]int(nil), s.topo.Anchors...)
}

func (s *Simulation) Energy() physics.Energy {
	return physics.ComputeEnergy(s.topo.Particles, s.topo.Springs, s.env())
}

// Diverged reports whether particle i has been frozen since the last Reset.
func (s *Simulation) Diverged(i int) bool {
	return i >= 0 && i < len(s.diverged) && s.diverged[i]
}

func (s *Simulation) DivergedCount() int {
	n := 0
	for _, d := range s.diverged {
		if d {
			n++
		}
	}
	return n
}

func (s *Simulation) Params() dynamo.Params { return s.params }
func (s *Simulation) Layout() string        { return s.layout.Name() }
func (s *Simulation) Mass() float64         { return s.mass }
func (s *Simulation) Time() float64         { return s.time }
func (s *Simulation) StepCount() int        { return s.steps }
func (s *Simulation) Resolution() int       { return s.topo.Resolution }
func (s *Simulation) NumParticles() int     { return len(s.topo.Particles) }

// Metrics returns the current value of every registered metric.
func (s *Simulation) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Simulation) env() physics.Environment {
	return physics.Environment{Mass: s.mass, Params: s.params, Obstacle: s.obstacle}
}

func (s *Simulation) isDiverged(i int) bool { return s.diverged[i] }

func (s *Simulation) notify(report StepReport) {
	if len(s.metrics) == 0 && len(s.observers) == 0 {
		return
	}
	f := Frame{
		Step:      report.Step,
		Time:      report.Time,
		Mass:      s.mass,
		Particles: s.Particles(),
		Springs:   s.topo.Springs,
		Energy:    s.Energy(),
		Report:    report,
	}
	for _, m := range s.metrics {
		m.Observe(f)
	}
	for _, o := range s.observers {
		o.OnStep(f)
	}
}

// IsConfigError reports whether err came from invalid parameters or topology.
func IsConfigError(err error) bool {
	return errors.Is(err, dynamo.ErrInvalidParameter) || errors.Is(err, dynamo.ErrInvalidTopology)
}

package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/springsim/internal/compute"
	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/drive"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/sim"
)

// Snapshot is one sampled frame of a run.
type Snapshot struct {
	Step      int
	Time      float64
	Particles []dynamo.Particle
	Energy    physics.Energy
}

type Result struct {
	Scenario    string
	Config      *config.Config
	Snapshots   []Snapshot
	Springs     []dynamo.Spring
	Divergences []dynamo.DivergenceEvent
	Metrics     map[string]float64
	StepsTaken  int
	Rebuilds    int
}

// Hook runs before each step with the zero-based index of the step about to
// run. Returning an error aborts the run.
type Hook func(step int, s *sim.Simulation) error

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

func WithMetrics(m ...sim.Metric) Option {
	return func(e *Experiment) { e.metrics = m }
}

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *slog.Logger
	metrics  []sim.Metric
	hooks    []Hook
	sim      *sim.Simulation
}

// New validates cfg and builds the simulation it describes.
func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	e := &Experiment{
		cfg:    cfg.Clone(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.metrics == nil {
		e.metrics = e.registry.DefaultMetrics()
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	layout, err := e.registry.Layout(e.cfg.Scenario, e.cfg.Shear)
	if err != nil {
		return nil, err
	}

	driver, err := drive.New(e.cfg.Drive)
	if err != nil {
		return nil, err
	}

	backend, err := compute.Select(e.cfg.Backend)
	if err != nil {
		return nil, err
	}

	simOpts := []sim.Option{
		sim.WithBackend(backend),
		sim.WithLogger(e.logger),
		sim.WithMass(e.cfg.Mass),
		sim.WithDriver(driver),
	}
	if e.cfg.Obstacle != nil {
		simOpts = append(simOpts, sim.WithObstacle(e.cfg.Obstacle.Obstacle()))
	}
	if anchors := e.cfg.AnchorPositions(); anchors != nil {
		simOpts = append(simOpts, sim.WithAnchors(anchors...))
	}

	s, err := sim.New(layout, e.cfg.Params, simOpts...)
	if err != nil {
		return nil, err
	}
	for _, m := range e.metrics {
		s.AddMetric(m)
	}
	e.sim = s
	return e, nil
}

func (e *Experiment) Simulation() *sim.Simulation { return e.sim }
func (e *Experiment) Config() *config.Config      { return e.cfg }

// Before registers a hook run before every step.
func (e *Experiment) Before(h Hook) { e.hooks = append(e.hooks, h) }

// Run advances the simulation steps times, sampling every SampleEvery steps.
// The initial state and every rebuilt topology are always sampled. On
// cancellation the partial result is returned with ctx.Err().
func (e *Experiment) Run(ctx context.Context, steps int) (*Result, error) {
	if steps < 0 {
		return nil, fmt.Errorf("%w: steps must be >= 0, got %d", dynamo.ErrInvalidParameter, steps)
	}

	res := &Result{
		Scenario:  e.cfg.Scenario,
		Config:    e.cfg,
		Snapshots: make([]Snapshot, 0, steps/e.cfg.SampleEvery+2),
	}
	res.Snapshots = append(res.Snapshots, e.snapshot())

	var runErr error
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		for _, h := range e.hooks {
			if err := h(i, e.sim); err != nil {
				runErr = fmt.Errorf("step %d: %w", i, err)
				break
			}
		}
		if runErr != nil {
			break
		}

		report, err := e.sim.Advance()
		if err != nil {
			runErr = fmt.Errorf("step %d: %w", i, err)
			break
		}

		res.Divergences = append(res.Divergences, report.Divergences...)
		switch {
		case report.Rebuilt:
			res.Rebuilds++
			res.Snapshots = append(res.Snapshots, e.snapshot())
		case report.Advanced:
			res.StepsTaken++
			if report.Step%e.cfg.SampleEvery == 0 {
				res.Snapshots = append(res.Snapshots, e.snapshot())
			}
		}
	}

	res.Springs = e.sim.Springs()
	res.Metrics = e.sim.Metrics()

	e.logger.Debug("run finished",
		"scenario", res.Scenario,
		"steps", res.StepsTaken,
		"rebuilds", res.Rebuilds,
		"divergences", len(res.Divergences))

	return res, runErr
}

func (e *Experiment) snapshot() Snapshot {
	return Snapshot{
		Step:      e.sim.StepCount(),
		Time:      e.sim.Time(),
		Particles: e.sim.Particles(),
		Energy:    e.sim.Energy(),
	}
}

// Positions returns the particle positions of a snapshot.
func (s Snapshot) Positions() []dynamo.Vec3 {
	out := make([]dynamo.Vec3, len(s.Particles))
	for i, p := range s.Particles {
		out[i] = p.Position
	}
	return out
}

// FirstDivergence returns the step of the first divergence event, or -1.
func (r *Result) FirstDivergence() int {
	if len(r.Divergences) == 0 {
		return -1
	}
	return r.Divergences[0].Step
}

// Final returns the last sampled snapshot.
func (r *Result) Final() Snapshot {
	return r.Snapshots[len(r.Snapshots)-1]
}

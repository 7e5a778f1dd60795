package sim

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/springsim/internal/compute"
	"github.com/san-kum/springsim/internal/drive"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/topology"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pairLayout is two particles and one spring; a may be fixed.
type pairLayout struct {
	a, b dynamo.Vec3
	rest float64
	fixA bool
}

func (p pairLayout) Name() string              { return "pair" }
func (p pairLayout) ResolutionDependent() bool { return false }

func (p pairLayout) Build(int) (*topology.Topology, error) {
	b := topology.NewBuilder(2)
	i := b.AddParticle(p.a, p.fixA)
	j := b.AddParticle(p.b, false)
	if p.rest > 0 {
		b.ConnectRest(i, j, p.rest)
	} else {
		b.Connect(i, j)
	}
	return b.Build(0)
}

func singleSpringParams() dynamo.Params {
	return dynamo.Params{
		Stiffness:          20,
		Timestep:           0.02,
		Damping:            0.98,
		Gravity:            -9.8,
		CollisionStiffness: 400,
		Resolution:         2,
	}
}

func mustNew(t *testing.T, layout topology.Layout, p dynamo.Params, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithLogger(quiet())}, opts...)
	s, err := New(layout, p, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mustStep(t *testing.T, s *Simulation) StepReport {
	t.Helper()
	r, err := s.Advance()
	if err != nil {
		t.Fatalf("step %d: %v", s.StepCount(), err)
	}
	return r
}

func TestSingleSpringFirstStep(t *testing.T) {
	s := mustNew(t, topology.NewSingleSpring(), singleSpringParams())

	anchor := dynamo.V(0, 3, 0)
	bob := dynamo.V(1.5, 1.5, 0)

	// extension = 1.5*sqrt(2) - 2
	d := dynamo.Sub(bob, anchor)
	ext := dynamo.Length(d) - 2
	if math.Abs(ext-(1.5*math.Sqrt2-2)) > 1e-15 {
		t.Fatalf("extension = %v", ext)
	}

	force := dynamo.Add(dynamo.V(0, -9.8, 0), dynamo.Scale(-20*ext, dynamo.Normalize(d)))
	wantV := dynamo.Scale(0.02, force)
	wantP := dynamo.Add(bob, dynamo.Scale(0.02, wantV))
	wantV = dynamo.Scale(0.98, wantV)

	r := mustStep(t, s)
	if !r.Advanced || r.Diverged() {
		t.Fatalf("unexpected report %+v", r)
	}

	pos := s.Positions()
	vel := s.Velocities()
	if pos[1] != wantP {
		t.Errorf("position = %v, want %v", pos[1], wantP)
	}
	if vel[1] != wantV {
		t.Errorf("velocity = %v, want %v", vel[1], wantV)
	}
	if pos[0] != anchor {
		t.Errorf("anchor moved to %v", pos[0])
	}
	if s.StepCount() != 1 || math.Abs(s.Time()-0.02) > 1e-15 {
		t.Errorf("step=%d time=%v", s.StepCount(), s.Time())
	}
}

func TestForceSymmetry(t *testing.T) {
	p := singleSpringParams()
	p.Gravity = 0
	p.Damping = 1
	s := mustNew(t, pairLayout{a: dynamo.V(0, 0, 0), b: dynamo.V(3, 0, 0), rest: 2}, p)

	for i := 0; i < 200; i++ {
		pos := s.Positions()
		fa := physics.SpringForce(pos[0], pos[1], 2, p.Stiffness)
		fb := physics.SpringForce(pos[1], pos[0], 2, p.Stiffness)
		if sum := dynamo.Add(fa, fb); dynamo.Length(sum) != 0 {
			t.Fatalf("step %d: forces not opposite: %v + %v", i, fa, fb)
		}
		mustStep(t, s)
	}

	vel := s.Velocities()
	if m := dynamo.Length(dynamo.Add(vel[0], vel[1])); m > 1e-9 {
		t.Errorf("momentum not conserved: %v", m)
	}
}

func TestFixedParticleInvariance(t *testing.T) {
	s := mustNew(t, topology.NewGrid(true), dynamo.DefaultParams())
	before := s.Positions()

	for i := 0; i < 50; i++ {
		mustStep(t, s)
		pos := s.Positions()
		for _, idx := range s.Anchors() {
			if pos[idx] != before[idx] {
				t.Fatalf("step %d: anchor %d moved from %v to %v", i, idx, before[idx], pos[idx])
			}
		}
	}
}

func TestEnergyDecayUnderDamping(t *testing.T) {
	p := singleSpringParams()
	p.Gravity = 0
	p.Stiffness = 10
	p.Timestep = 0.01
	s := mustNew(t, pairLayout{a: dynamo.V(0, 0, 0), b: dynamo.V(3, 0, 0), rest: 2}, p)

	const window = 200
	prevMax := math.Inf(1)
	peak := 0.0
	for w := 0; w < 5; w++ {
		winMax := 0.0
		for i := 0; i < window; i++ {
			mustStep(t, s)
			winMax = math.Max(winMax, s.Energy().Kinetic)
		}
		if winMax > prevMax+1e-12 {
			t.Errorf("window %d: kinetic max %v exceeds previous %v", w, winMax, prevMax)
		}
		prevMax = winMax
		peak = math.Max(peak, winMax)
	}

	if final := s.Energy().Kinetic; final > 0.01*peak {
		t.Errorf("kinetic energy did not decay: final %v, peak %v", final, peak)
	}
}

func TestCollisionContainment(t *testing.T) {
	p := singleSpringParams()
	p.Gravity = 0
	p.Stiffness = 1
	p.Timestep = 0.01
	p.Damping = 0.95
	sphere := dynamo.Obstacle{Center: dynamo.V(0, 1.5, 0), Radius: 0.5}

	s := mustNew(t,
		pairLayout{a: dynamo.V(0, 5, 0), b: dynamo.V(0, 1.4, 0), fixA: true},
		p, WithObstacle(sphere))

	if !sphere.Contains(s.Positions()[1]) {
		t.Fatal("particle should start inside the sphere")
	}

	for i := 0; i < 500; i++ {
		mustStep(t, s)
	}

	if d := dynamo.Distance(s.Positions()[1], sphere.Center); d < sphere.Radius-0.005 {
		t.Errorf("particle still %.4f deep inside sphere", sphere.Radius-d)
	}
}

func TestDivergenceDetection(t *testing.T) {
	p := dynamo.DefaultParams()
	p.Stiffness = 500
	p.Timestep = 1.0
	p.Resolution = 5
	s := mustNew(t, topology.NewGrid(false), p)

	var first *dynamo.DivergenceEvent
	for i := 0; i < 50 && first == nil; i++ {
		r := mustStep(t, s)
		if r.Diverged() {
			first = &r.Divergences[0]
		}
	}
	if first == nil {
		t.Fatal("expected a divergence within 50 steps")
	}
	if first.Cause == dynamo.CauseNone || first.Step < 1 {
		t.Errorf("malformed event %+v", *first)
	}
	if !s.Diverged(first.ParticleIndex) {
		t.Errorf("particle %d not marked diverged", first.ParticleIndex)
	}

	frozen := s.Positions()[first.ParticleIndex]
	for i := 0; i < 10; i++ {
		mustStep(t, s)
		for j, pos := range s.Positions() {
			if dynamo.HasNaN(pos) || dynamo.Length(pos) > 1000 {
				t.Fatalf("particle %d escaped bounds: %v", j, pos)
			}
		}
	}
	if got := s.Positions()[first.ParticleIndex]; got != frozen {
		t.Errorf("frozen particle moved from %v to %v", frozen, got)
	}

	if err := s.Reset(p); err != nil {
		t.Fatal(err)
	}
	if s.DivergedCount() != 0 {
		t.Error("reset should clear divergence state")
	}
}

func TestDivergenceIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	p := dynamo.DefaultParams()
	p.Stiffness = 500
	p.Timestep = 1.0
	p.Resolution = 4
	s, err := New(topology.NewGrid(false), p, WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50 && s.DivergedCount() == 0; i++ {
		mustStep(t, s)
	}

	out := buf.String()
	if !strings.Contains(out, "particle diverged") || !strings.Contains(out, "event.cause=") {
		t.Errorf("unexpected log output: %q", out)
	}
}

func TestResolutionChangeRebuilds(t *testing.T) {
	p := dynamo.DefaultParams()
	p.Resolution = 4
	s := mustNew(t, topology.NewGrid(true), p)

	for i := 0; i < 5; i++ {
		mustStep(t, s)
	}

	p.Resolution = 6
	r, err := s.Step(p.Timestep, p)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Rebuilt || r.Advanced {
		t.Errorf("expected rebuild frame, got %+v", r)
	}
	if s.NumParticles() != 36 || s.StepCount() != 0 || s.Time() != 0 {
		t.Errorf("particles=%d steps=%d time=%v", s.NumParticles(), s.StepCount(), s.Time())
	}
	for i, v := range s.Velocities() {
		if v != (dynamo.Vec3{}) {
			t.Fatalf("velocity %d not zeroed: %v", i, v)
		}
	}

	r, err = s.Step(p.Timestep, p)
	if err != nil || !r.Advanced {
		t.Errorf("second step should advance: %+v, %v", r, err)
	}

	p.Resolution = 1
	if _, err := s.Step(p.Timestep, p); !errors.Is(err, dynamo.ErrInvalidTopology) {
		t.Errorf("expected ErrInvalidTopology, got %v", err)
	}
	if s.NumParticles() != 36 {
		t.Error("failed rebuild should keep the previous topology")
	}
}

func TestFixedLayoutIgnoresResolution(t *testing.T) {
	p := singleSpringParams()
	s := mustNew(t, topology.NewSingleSpring(), p)
	p.Resolution = 8
	r, err := s.Step(p.Timestep, p)
	if err != nil || r.Rebuilt || !r.Advanced {
		t.Errorf("single spring should advance regardless of resolution: %+v, %v", r, err)
	}
}

func TestSetParameter(t *testing.T) {
	p := dynamo.DefaultParams()
	p.Resolution = 4
	s := mustNew(t, topology.NewGrid(false), p)

	if err := s.SetParameter("stiffness", 123); err != nil {
		t.Fatal(err)
	}
	if s.Params().Stiffness != 123 {
		t.Errorf("stiffness = %v", s.Params().Stiffness)
	}

	// Out-of-range values are stored as given.
	if err := s.SetParameter("damping", 1.5); err != nil || s.Params().Damping != 1.5 {
		t.Errorf("damping = %v, err %v", s.Params().Damping, err)
	}
	if err := s.SetParameter("damping", 0.95); err != nil {
		t.Fatal(err)
	}

	if err := s.SetParameter("viscosity", 1); !errors.Is(err, dynamo.ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter, got %v", err)
	}

	if _, ok := s.Obstacle(); ok {
		t.Fatal("no obstacle expected")
	}
	for name, v := range map[string]float64{ParamSphereX: 1, ParamSphereY: 2, ParamSphereZ: 3, ParamSphereRadius: 0.5} {
		if err := s.SetParameter(name, v); err != nil {
			t.Fatal(err)
		}
	}
	o, ok := s.Obstacle()
	if !ok || o.Center != dynamo.V(1, 2, 3) || o.Radius != 0.5 {
		t.Errorf("obstacle = %+v, %v", o, ok)
	}
	if s.GetParams()[ParamSphereRadius] != 0.5 {
		t.Error("GetParams should include obstacle fields")
	}

	if err := s.SetParameter("resolution", 5); err != nil {
		t.Fatal(err)
	}
	r, err := s.Advance()
	if err != nil || !r.Rebuilt || s.NumParticles() != 25 {
		t.Errorf("resolution change should rebuild on next step: %+v, %v", r, err)
	}
}

func TestSetAnchor(t *testing.T) {
	p := dynamo.DefaultParams()
	p.Resolution = 4
	s := mustNew(t, topology.NewGrid(false), p)

	if err := s.SetAnchor(5, dynamo.V(0, 0, 0)); !errors.Is(err, dynamo.ErrNotAnchor) {
		t.Errorf("expected ErrNotAnchor, got %v", err)
	}
	if err := s.SetAnchor(99, dynamo.V(0, 0, 0)); !errors.Is(err, dynamo.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}

	target := dynamo.V(-0.5, 3.2, 0.1)
	if err := s.SetAnchor(0, target); err != nil {
		t.Fatal(err)
	}
	mustStep(t, s)
	if got := s.Positions()[0]; got != target {
		t.Errorf("anchor = %v, want %v", got, target)
	}
}

func TestDriverMovesAnchors(t *testing.T) {
	p := dynamo.DefaultParams()
	p.Resolution = 4
	s := mustNew(t, topology.NewGrid(false), p, WithDriver(drive.NewOscillate(0.5, 1)))
	base := s.Positions()

	for i := 0; i < 25; i++ {
		mustStep(t, s)
	}

	// t = 0.25 is the oscillation peak.
	pos := s.Positions()
	for _, idx := range s.Anchors() {
		if math.Abs(pos[idx].X-(base[idx].X+0.5)) > 1e-9 {
			t.Errorf("anchor %d at %v, want x=%v", idx, pos[idx], base[idx].X+0.5)
		}
	}
}

func TestResetErrors(t *testing.T) {
	tests := []struct {
		name   string
		layout topology.Layout
		mutate func(*dynamo.Params)
		opts   []Option
		want   error
	}{
		{"small resolution", topology.NewGrid(false), func(p *dynamo.Params) { p.Resolution = 1 }, nil, dynamo.ErrInvalidTopology},
		{"zero timestep", topology.NewGrid(false), func(p *dynamo.Params) { p.Timestep = 0 }, nil, dynamo.ErrInvalidParameter},
		{"positive gravity", topology.NewGrid(false), func(p *dynamo.Params) { p.Gravity = 1 }, nil, dynamo.ErrInvalidParameter},
		{"anchor mismatch", topology.NewGrid(false), func(*dynamo.Params) {}, []Option{WithAnchors(dynamo.V(0, 0, 0))}, dynamo.ErrInvalidTopology},
		{"bad mass", topology.NewGrid(false), func(*dynamo.Params) {}, []Option{WithMass(0)}, dynamo.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := dynamo.DefaultParams()
			tt.mutate(&p)
			opts := append([]Option{WithLogger(quiet())}, tt.opts...)
			_, err := New(tt.layout, p, opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !IsConfigError(err) {
				t.Errorf("IsConfigError(%v) = false", err)
			}
		})
	}
}

func TestAnchorOverride(t *testing.T) {
	p := dynamo.DefaultParams()
	p.Resolution = 4
	left, right := dynamo.V(-2, 3, 0), dynamo.V(2, 3, 0)
	s := mustNew(t, topology.NewGrid(false), p, WithAnchors(left, right))

	pos := s.Positions()
	anchors := s.Anchors()
	if pos[anchors[0]] != left || pos[anchors[1]] != right {
		t.Errorf("anchors at %v, %v", pos[anchors[0]], pos[anchors[1]])
	}
}

func TestResetIsIdempotent(t *testing.T) {
	p := dynamo.DefaultParams()
	p.Resolution = 5
	s := mustNew(t, topology.NewGrid(true), p)
	fresh := s.Positions()

	for i := 0; i < 30; i++ {
		mustStep(t, s)
	}
	for i := 0; i < 2; i++ {
		if err := s.Reset(p); err != nil {
			t.Fatal(err)
		}
		for j, pos := range s.Positions() {
			if pos != fresh[j] {
				t.Fatalf("reset %d: particle %d at %v, want %v", i, j, pos, fresh[j])
			}
		}
	}
}

func TestParallelBackendMatchesSerial(t *testing.T) {
	p := dynamo.DefaultParams()
	p.Resolution = 12
	sphere := dynamo.Obstacle{Center: dynamo.V(0, 1.5, 0), Radius: 0.5}
	serial := mustNew(t, topology.NewGrid(true), p, WithObstacle(sphere))
	parallel := mustNew(t, topology.NewGrid(true), p, WithObstacle(sphere), WithBackend(&compute.Parallel{Workers: 4}))

	for i := 0; i < 100; i++ {
		mustStep(t, serial)
		mustStep(t, parallel)
	}
	want := serial.Positions()
	for j, pos := range parallel.Positions() {
		if pos != want[j] {
			t.Fatalf("particle %d at %v, serial %v", j, pos, want[j])
		}
	}
}

func TestCopyOutAccessors(t *testing.T) {
	s := mustNew(t, topology.NewSingleSpring(), singleSpringParams())

	pos := s.Positions()
	pos[1] = dynamo.V(100, 100, 100)
	ends := s.SpringEndpoints()
	ends[0].A = dynamo.Vec3{}

	if s.Positions()[1] == pos[1] {
		t.Error("Positions returned internal storage")
	}
	if got := s.SpringEndpoints()[0]; got.A != dynamo.V(0, 3, 0) || got.B != dynamo.V(1.5, 1.5, 0) {
		t.Errorf("endpoints = %+v", got)
	}
}

type countingMetric struct{ n int }

func (c *countingMetric) Name() string   { return "count" }
func (c *countingMetric) Observe(Frame)  { c.n++ }
func (c *countingMetric) Value() float64 { return float64(c.n) }
func (c *countingMetric) Reset()         { c.n = 0 }

func TestMetricsAndObservers(t *testing.T) {
	s := mustNew(t, topology.NewSingleSpring(), singleSpringParams())
	m := &countingMetric{}
	s.AddMetric(m)

	var frames []Frame
	s.AddObserver(ObserverFunc(func(f Frame) { frames = append(frames, f) }))

	for i := 0; i < 3; i++ {
		mustStep(t, s)
	}

	if s.Metrics()["count"] != 3 {
		t.Errorf("metric = %v", s.Metrics())
	}
	if len(frames) != 3 || frames[2].Step != 3 || len(frames[2].Particles) != 2 {
		t.Errorf("frames = %d", len(frames))
	}
	if frames[0].Energy.Total() == 0 {
		t.Error("frame energy not populated")
	}

	if err := s.Reset(s.Params()); err != nil {
		t.Fatal(err)
	}
	if m.n != 0 {
		t.Error("reset should reset metrics")
	}
}

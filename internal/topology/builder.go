package topology

import (
	"fmt"

	"github.com/san-kum/springsim/internal/dynamo"
)

// Topology is a freshly built arena. Springs refer to particles by index.
type Topology struct {
	Particles []dynamo.Particle
	Springs   []dynamo.Spring

	// Incident[i] lists the indices of every spring touching particle i.
	Incident [][]int

	// Anchors lists fixed particle indices in the order anchor targets apply.
	Anchors []int

	// Resolution is the N the topology was built for, 0 for fixed-size layouts.
	Resolution int
}

// Layout produces a topology for a given resolution.
type Layout interface {
	Name() string
	Build(resolution int) (*Topology, error)
	// ResolutionDependent reports whether Build's output changes with resolution.
	ResolutionDependent() bool
}

// Builder accumulates particles and springs and validates the result.
type Builder struct {
	particles []dynamo.Particle
	springs   []dynamo.Spring
	anchors   []int
	err       error
}

func NewBuilder(capacity int) *Builder {
	return &Builder{
		particles: make([]dynamo.Particle, 0, capacity),
		springs:   make([]dynamo.Spring, 0, capacity*4),
	}
}

// AddParticle appends a particle at rest and returns its index.
func (b *Builder) AddParticle(pos dynamo.Vec3, fixed bool) int {
	b.particles = append(b.particles, dynamo.Particle{Position: pos, Fixed: fixed})
	idx := len(b.particles) - 1
	if fixed {
		b.anchors = append(b.anchors, idx)
	}
	return idx
}

// Connect adds a spring whose rest length is the current distance between i and j.
func (b *Builder) Connect(i, j int) {
	if b.err != nil {
		return
	}
	if i < 0 || j < 0 || i >= len(b.particles) || j >= len(b.particles) {
		b.err = fmt.Errorf("%w: connect %d-%d with %d particles", dynamo.ErrInvalidTopology, i, j, len(b.particles))
		return
	}
	rest := dynamo.Distance(b.particles[i].Position, b.particles[j].Position)
	b.ConnectRest(i, j, rest)
}

// ConnectRest adds a spring with an explicit rest length.
func (b *Builder) ConnectRest(i, j int, rest float64) {
	if b.err != nil {
		return
	}
	s := dynamo.Spring{I: i, J: j, RestLength: rest}
	if err := s.Validate(len(b.particles)); err != nil {
		b.err = err
		return
	}
	b.springs = append(b.springs, s)
}

// Build validates and returns the topology. The builder must not be reused.
func (b *Builder) Build(resolution int) (*Topology, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.springs) == 0 {
		return nil, fmt.Errorf("%w: no springs", dynamo.ErrInvalidTopology)
	}

	incident := make([][]int, len(b.particles))
	for si, s := range b.springs {
		incident[s.I] = append(incident[s.I], si)
		incident[s.J] = append(incident[s.J], si)
	}

	return &Topology{
		Particles:  b.particles,
		Springs:    b.springs,
		Incident:   incident,
		Anchors:    b.anchors,
		Resolution: resolution,
	}, nil
}

// Clone returns a deep copy so the original can be kept as a reset template.
func (t *Topology) Clone() *Topology {
	c := &Topology{
		Particles:  append([]dynamo.Particle(nil), t.Particles...),
		Springs:    append([]dynamo.Spring(nil), t.Springs...),
		Anchors:    append([]int(nil), t.Anchors...),
		Incident:   make([][]int, len(t.Incident)),
		Resolution: t.Resolution,
	}
	for i, inc := range t.Incident {
		c.Incident[i] = append([]int(nil), inc...)
	}
	return c
}

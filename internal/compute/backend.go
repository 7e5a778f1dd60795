package compute

import (
	"fmt"
	"sort"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/physics"
)

// Backend fills forces[i] for every particle, zeroing fixed particles and
// those skip excludes.
type Backend interface {
	Name() string
	Accumulate(forces []dynamo.Vec3, particles []dynamo.Particle, springs []dynamo.Spring, incident [][]int, env physics.Environment, skip func(int) bool)
}

// ParallelThreshold is the arena size from which Auto goes parallel.
const ParallelThreshold = 256

var backends = map[string]func() Backend{
	"serial":   func() Backend { return Serial{} },
	"parallel": func() Backend { return NewParallel() },
	"auto":     func() Backend { return Auto() },
}

// Select returns the named backend; "" means auto.
func Select(name string) (Backend, error) {
	if name == "" {
		name = "auto"
	}
	f, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: backend %q (available: %v)", dynamo.ErrInvalidParameter, name, Names())
	}
	return f(), nil
}

func Names() []string {
	names := make([]string, 0, len(backends))
	for k := range backends {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Auto runs serially below ParallelThreshold particles and in parallel above.
func Auto() Backend {
	p := NewParallel()
	p.MinParticles = ParallelThreshold
	return p
}

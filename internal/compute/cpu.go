package compute

import (
	"runtime"
	"sync"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/physics"
)

type Serial struct{}

func (Serial) Name() string { return "serial" }

func (Serial) Accumulate(forces []dynamo.Vec3, particles []dynamo.Particle, springs []dynamo.Spring, incident [][]int, env physics.Environment, skip func(int) bool) {
	physics.Accumulate(forces, particles, springs, incident, env, skip)
}

// Parallel splits the arena into one contiguous chunk per worker. Arenas
// smaller than MinParticles, or a single worker, fall back to Serial.
type Parallel struct {
	Workers      int
	MinParticles int
}

func NewParallel() *Parallel {
	return &Parallel{Workers: runtime.NumCPU()}
}

func (p *Parallel) Name() string { return "parallel" }

func (p *Parallel) Accumulate(forces []dynamo.Vec3, particles []dynamo.Particle, springs []dynamo.Spring, incident [][]int, env physics.Environment, skip func(int) bool) {
	n := len(particles)
	workers := min(p.Workers, n)
	if workers <= 1 || n < p.MinParticles {
		physics.Accumulate(forces, particles, springs, incident, env, skip)
		return
	}

	var wg sync.WaitGroup
	chunkSize := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if particles[i].Fixed || (skip != nil && skip(i)) {
					forces[i] = dynamo.Vec3{}
					continue
				}
				forces[i] = physics.ParticleForce(i, particles, springs, incident[i], env)
			}
		}(start, end)
	}
	wg.Wait()
}

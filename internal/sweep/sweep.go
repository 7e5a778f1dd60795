package sweep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/experiment"
	"github.com/san-kum/springsim/internal/metrics"
)

// Cell is the outcome of one stiffness/timestep pair.
type Cell struct {
	Stiffness float64
	Timestep  float64

	// FirstDivergence is the step of the first divergence event, -1 if none.
	FirstDivergence int
	StepsTaken      int
	MaxStrain       float64
	Err             error
}

func (c Cell) Stable() bool { return c.Err == nil && c.FirstDivergence < 0 }

// Sweep runs a base configuration over a stiffness × timestep grid.
type Sweep struct {
	Base       *config.Config
	Stiffness  []float64
	Timesteps  []float64
	Steps      int
	Workers    int
	StopOnFail bool // stop a cell at its first divergence
	Logger     *slog.Logger
}

// Result holds cells indexed [timestep][stiffness].
type Result struct {
	Stiffness []float64
	Timesteps []float64
	Cells     [][]Cell
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func (s *Sweep) Run(ctx context.Context) (*Result, error) {
	if len(s.Stiffness) == 0 || len(s.Timesteps) == 0 {
		return nil, fmt.Errorf("sweep needs at least one stiffness and one timestep")
	}
	if s.Steps < 1 {
		return nil, fmt.Errorf("sweep steps must be positive, got %d", s.Steps)
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	res := &Result{
		Stiffness: s.Stiffness,
		Timesteps: s.Timesteps,
		Cells:     make([][]Cell, len(s.Timesteps)),
	}
	for i := range res.Cells {
		res.Cells[i] = make([]Cell, len(s.Stiffness))
	}

	type job struct{ row, col int }
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res.Cells[j.row][j.col] = s.runCell(ctx, s.Stiffness[j.col], s.Timesteps[j.row], logger)
			}
		}()
	}

feed:
	for row := range s.Timesteps {
		for col := range s.Stiffness {
			select {
			case jobs <- job{row, col}:
			case <-ctx.Done():
				break feed
			}
		}
	}
	close(jobs)
	wg.Wait()

	return res, ctx.Err()
}

func (s *Sweep) runCell(ctx context.Context, k, dt float64, logger *slog.Logger) Cell {
	cell := Cell{Stiffness: k, Timestep: dt, FirstDivergence: -1}

	cfg := s.Base.Clone()
	cfg.Params.Stiffness = k
	cfg.Params.Timestep = dt
	cfg.Backend = "serial" // cells already run concurrently

	strain := metrics.NewMaxStrain()
	exp, err := experiment.New(cfg, experiment.WithLogger(logger), experiment.WithMetrics(strain))
	if err != nil {
		cell.Err = err
		return cell
	}

	sm := exp.Simulation()
	for i := 0; i < s.Steps; i++ {
		if ctx.Err() != nil {
			cell.Err = ctx.Err()
			break
		}
		report, err := sm.Advance()
		if err != nil {
			cell.Err = err
			break
		}
		cell.StepsTaken++
		if report.Diverged() && cell.FirstDivergence < 0 {
			cell.FirstDivergence = report.Step
			if s.StopOnFail {
				break
			}
		}
	}
	cell.MaxStrain = strain.Value()

	logger.Debug("sweep cell done", "stiffness", k, "timestep", dt, "first_divergence", cell.FirstDivergence)
	return cell
}

// StableFraction is the share of cells that never diverged.
func (r *Result) StableFraction() float64 {
	total, stable := 0, 0
	for _, row := range r.Cells {
		for _, c := range row {
			total++
			if c.Stable() {
				stable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(stable) / float64(total)
}

// Boundary returns, per timestep, the largest stiffness that stayed stable,
// or 0 when none did.
func (r *Result) Boundary() []float64 {
	out := make([]float64, len(r.Timesteps))
	for i, row := range r.Cells {
		for _, c := range row {
			if c.Stable() && c.Stiffness > out[i] {
				out[i] = c.Stiffness
			}
		}
	}
	return out
}

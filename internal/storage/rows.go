package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	energyFile   = "energy.csv"
)

// FrameRow is one particle in one sampled frame.
type FrameRow struct {
	Step     int     `csv:"step" json:"step"`
	Time     float64 `csv:"time" json:"time"`
	Particle int     `csv:"particle" json:"particle"`
	Fixed    bool    `csv:"fixed" json:"fixed"`
	X        float64 `csv:"x" json:"x"`
	Y        float64 `csv:"y" json:"y"`
	Z        float64 `csv:"z" json:"z"`
	VX       float64 `csv:"vx" json:"vx"`
	VY       float64 `csv:"vy" json:"vy"`
	VZ       float64 `csv:"vz" json:"vz"`
}

func (r FrameRow) Position() dynamo.Vec3 { return dynamo.V(r.X, r.Y, r.Z) }

// EnergyRow is the energy breakdown of one sampled frame.
type EnergyRow struct {
	Step      int     `csv:"step" json:"step"`
	Time      float64 `csv:"time" json:"time"`
	Kinetic   float64 `csv:"kinetic" json:"kinetic"`
	Spring    float64 `csv:"spring" json:"spring"`
	Gravity   float64 `csv:"gravity" json:"gravity"`
	Collision float64 `csv:"collision" json:"collision"`
	Total     float64 `csv:"total" json:"total"`
}

// RunWriter streams snapshots to frames.csv and energy.csv in dir.
type RunWriter struct {
	frames *os.File
	energy *os.File

	framesHeaderWritten bool
	energyHeaderWritten bool
}

func NewRunWriter(dir string) (*RunWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	frames, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", framesFile, err)
	}
	energy, err := os.Create(filepath.Join(dir, energyFile))
	if err != nil {
		frames.Close()
		return nil, fmt.Errorf("creating %s: %w", energyFile, err)
	}

	return &RunWriter{frames: frames, energy: energy}, nil
}

func (w *RunWriter) WriteSnapshot(s experiment.Snapshot) error {
	rows := make([]FrameRow, len(s.Particles))
	for i, p := range s.Particles {
		rows[i] = FrameRow{
			Step:     s.Step,
			Time:     s.Time,
			Particle: i,
			Fixed:    p.Fixed,
			X:        p.Position.X,
			Y:        p.Position.Y,
			Z:        p.Position.Z,
			VX:       p.Velocity.X,
			VY:       p.Velocity.Y,
			VZ:       p.Velocity.Z,
		}
	}

	if !w.framesHeaderWritten {
		if err := gocsv.Marshal(rows, w.frames); err != nil {
			return fmt.Errorf("writing frames: %w", err)
		}
		w.framesHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(rows, w.frames); err != nil {
			return fmt.Errorf("writing frames: %w", err)
		}
	}

	energy := []EnergyRow{{
		Step:      s.Step,
		Time:      s.Time,
		Kinetic:   s.Energy.Kinetic,
		Spring:    s.Energy.Spring,
		Gravity:   s.Energy.Gravity,
		Collision: s.Energy.Collision,
		Total:     s.Energy.Total(),
	}}

	if !w.energyHeaderWritten {
		if err := gocsv.Marshal(energy, w.energy); err != nil {
			return fmt.Errorf("writing energy: %w", err)
		}
		w.energyHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(energy, w.energy); err != nil {
			return fmt.Errorf("writing energy: %w", err)
		}
	}

	return nil
}

func (w *RunWriter) Close() error {
	var firstErr error
	if err := w.frames.Close(); err != nil {
		firstErr = err
	}
	if err := w.energy.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Frame is a sampled frame rebuilt from FrameRows.
type Frame struct {
	Step      int
	Time      float64
	Particles []dynamo.Particle
}

func (f Frame) Positions() []dynamo.Vec3 {
	out := make([]dynamo.Vec3, len(f.Particles))
	for i, p := range f.Particles {
		out[i] = p.Position
	}
	return out
}

// GroupFrames splits rows back into frames. A frame ends where the particle
// index stops increasing.
func GroupFrames(rows []FrameRow) []Frame {
	var frames []Frame
	for _, r := range rows {
		if len(frames) == 0 || r.Particle == 0 {
			frames = append(frames, Frame{Step: r.Step, Time: r.Time})
		}
		f := &frames[len(frames)-1]
		f.Particles = append(f.Particles, dynamo.Particle{
			Position: r.Position(),
			Velocity: dynamo.V(r.VX, r.VY, r.VZ),
			Fixed:    r.Fixed,
		})
	}
	return frames
}

// Series extracts one coordinate of one particle over time. axis is one of
// x, y, z, vx, vy, vz.
func Series(rows []FrameRow, particle int, axis string) ([]float64, []float64, error) {
	pick, ok := axes[axis]
	if !ok {
		return nil, nil, fmt.Errorf("unknown axis %q", axis)
	}

	var times, values []float64
	for _, r := range rows {
		if r.Particle != particle {
			continue
		}
		times = append(times, r.Time)
		values = append(values, pick(r))
	}
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w: particle %d not in run", dynamo.ErrIndexOutOfRange, particle)
	}
	return times, values, nil
}

var axes = map[string]func(FrameRow) float64{
	"x":  func(r FrameRow) float64 { return r.X },
	"y":  func(r FrameRow) float64 { return r.Y },
	"z":  func(r FrameRow) float64 { return r.Z },
	"vx": func(r FrameRow) float64 { return r.VX },
	"vy": func(r FrameRow) float64 { return r.VY },
	"vz": func(r FrameRow) float64 { return r.VZ },
}

package dynamo

import (
	"errors"
	"fmt"
	"log/slog"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidTopology indicates a layout that cannot form springs.
	ErrInvalidTopology = errors.New("dynamo: invalid topology")

	// ErrInvalidParameter indicates a parameter value outside its valid range.
	ErrInvalidParameter = errors.New("dynamo: parameter out of valid bounds")

	// ErrUnknownParameter indicates a parameter name SetParam does not know.
	ErrUnknownParameter = errors.New("dynamo: unknown parameter")

	// ErrNotAnchor indicates an anchor update aimed at a free particle.
	ErrNotAnchor = errors.New("dynamo: particle is not fixed")

	ErrIndexOutOfRange = errors.New("dynamo: particle index out of range")

	// ErrUnknownScenario indicates a scenario name with no registered layout.
	ErrUnknownScenario = errors.New("dynamo: unknown scenario")
)

// DivergenceCause classifies why a particle update was rejected.
type DivergenceCause int

const (
	CauseNone DivergenceCause = iota
	CauseNaN
	CausePositionBound
	CauseVelocityBound
)

func (c DivergenceCause) String() string {
	switch c {
	case CauseNaN:
		return "nan"
	case CausePositionBound:
		return "position_bound"
	case CauseVelocityBound:
		return "velocity_bound"
	default:
		return "none"
	}
}

// DivergenceEvent reports a particle whose update was rejected in one step.
// It is a report, not an error: the simulation keeps running.
type DivergenceEvent struct {
	ParticleIndex int
	Cause         DivergenceCause
	Step          int
}

func (e DivergenceEvent) String() string {
	return fmt.Sprintf("particle %d diverged at step %d (%s)", e.ParticleIndex, e.Step, e.Cause)
}

// LogValue implements slog.LogValuer.
func (e DivergenceEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("particle", e.ParticleIndex),
		slog.String("cause", e.Cause.String()),
		slog.Int("step", e.Step),
	)
}

package dynamo

import (
	"fmt"
	"math"
	"sort"
)

// Parameter names accepted by SetParam.
const (
	ParamStiffness          = "stiffness"
	ParamTimestep           = "timestep"
	ParamDamping            = "damping"
	ParamGravity            = "gravity"
	ParamDrag               = "drag"
	ParamCollisionStiffness = "collision_stiffness"
	ParamResolution         = "resolution"
)

const (
	DefaultStiffness          = 400.0
	DefaultTimestep           = 0.01
	DefaultDamping            = 0.95
	DefaultGravity            = -2.0
	DefaultDrag               = 0.5
	DefaultCollisionStiffness = 400.0
	DefaultResolution         = 10
)

// Params is the live configuration of one simulation. It is passed by value
// into Step, so a caller can never mutate it behind the simulation's back.
type Params struct {
	Stiffness          float64 `yaml:"stiffness" json:"stiffness"`
	Timestep           float64 `yaml:"timestep" json:"timestep"`
	Damping            float64 `yaml:"damping" json:"damping"`
	Gravity            float64 `yaml:"gravity" json:"gravity"`
	Drag               float64 `yaml:"drag" json:"drag"`
	CollisionStiffness float64 `yaml:"collision_stiffness" json:"collision_stiffness"`
	Resolution         int     `yaml:"resolution" json:"resolution"`
}

func DefaultParams() Params {
	return Params{
		Stiffness:          DefaultStiffness,
		Timestep:           DefaultTimestep,
		Damping:            DefaultDamping,
		Gravity:            DefaultGravity,
		Drag:               DefaultDrag,
		CollisionStiffness: DefaultCollisionStiffness,
		Resolution:         DefaultResolution,
	}
}

// Validate enforces the documented ranges. Step never calls it; Reset and
// the configuration layer do.
func (p Params) Validate() error {
	switch {
	case !(p.Stiffness > 0) || math.IsInf(p.Stiffness, 0):
		return fmt.Errorf("%w: stiffness must be positive, got %v", ErrInvalidParameter, p.Stiffness)
	case !(p.Timestep > 0) || math.IsInf(p.Timestep, 0):
		return fmt.Errorf("%w: timestep must be positive, got %v", ErrInvalidParameter, p.Timestep)
	case !(p.Damping > 0 && p.Damping <= 1):
		return fmt.Errorf("%w: damping must be in (0,1], got %v", ErrInvalidParameter, p.Damping)
	case !(p.Gravity <= 0):
		return fmt.Errorf("%w: gravity must be <= 0, got %v", ErrInvalidParameter, p.Gravity)
	case !(p.Drag >= 0):
		return fmt.Errorf("%w: drag must be >= 0, got %v", ErrInvalidParameter, p.Drag)
	case !(p.CollisionStiffness > 0):
		return fmt.Errorf("%w: collision stiffness must be positive, got %v", ErrInvalidParameter, p.CollisionStiffness)
	case p.Resolution < 2:
		return fmt.Errorf("%w: resolution must be >= 2, got %d", ErrInvalidTopology, p.Resolution)
	}
	return nil
}

// GetParams implements Configurable.
func (p Params) GetParams() map[string]float64 {
	return map[string]float64{
		ParamStiffness:          p.Stiffness,
		ParamTimestep:           p.Timestep,
		ParamDamping:            p.Damping,
		ParamGravity:            p.Gravity,
		ParamDrag:               p.Drag,
		ParamCollisionStiffness: p.CollisionStiffness,
		ParamResolution:         float64(p.Resolution),
	}
}

// SetParam updates one scalar. Values are stored as given, without clamping.
func (p *Params) SetParam(name string, value float64) error {
	switch name {
	case ParamStiffness:
		p.Stiffness = value
	case ParamTimestep:
		p.Timestep = value
	case ParamDamping:
		p.Damping = value
	case ParamGravity:
		p.Gravity = value
	case ParamDrag:
		p.Drag = value
	case ParamCollisionStiffness:
		p.CollisionStiffness = value
	case ParamResolution:
		p.Resolution = int(math.Round(value))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return nil
}

// ParamNames returns the sorted parameter names understood by SetParam.
func ParamNames() []string {
	names := make([]string, 0, 7)
	for k := range (Params{}).GetParams() {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Configurable is implemented by anything with named scalar parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

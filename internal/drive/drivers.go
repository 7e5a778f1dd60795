package drive

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/springsim/internal/dynamo"
)

type Static struct{}

func NewStatic() *Static { return &Static{} }

func (s *Static) Targets(t float64, base []dynamo.Vec3) []dynamo.Vec3 {
	out := make([]dynamo.Vec3, len(base))
	copy(out, base)
	return out
}

// Oscillate moves every anchor by Axis*Amplitude*sin(2*pi*Frequency*t).
type Oscillate struct {
	Axis      dynamo.Vec3
	Amplitude float64
	Frequency float64
}

func NewOscillate(amplitude, frequency float64) *Oscillate {
	return &Oscillate{Axis: dynamo.V(1, 0, 0), Amplitude: amplitude, Frequency: frequency}
}

func (o *Oscillate) Targets(t float64, base []dynamo.Vec3) []dynamo.Vec3 {
	offset := dynamo.Scale(o.Amplitude*math.Sin(2*math.Pi*o.Frequency*t), dynamo.Normalize(o.Axis))
	return shift(base, offset)
}

func (o *Oscillate) GetParams() map[string]float64 {
	return map[string]float64{"amplitude": o.Amplitude, "frequency": o.Frequency}
}

func (o *Oscillate) SetParam(name string, value float64) error {
	switch name {
	case "amplitude":
		o.Amplitude = value
	case "frequency":
		o.Frequency = value
	default:
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParameter, name)
	}
	return nil
}

// Circle moves every anchor around a circle of Radius in the XZ plane,
// starting at its base position when t = 0.
type Circle struct {
	Radius    float64
	Frequency float64
}

func NewCircle(radius, frequency float64) *Circle {
	return &Circle{Radius: radius, Frequency: frequency}
}

func (c *Circle) Targets(t float64, base []dynamo.Vec3) []dynamo.Vec3 {
	w := 2 * math.Pi * c.Frequency * t
	offset := dynamo.V(c.Radius*(math.Cos(w)-1), 0, c.Radius*math.Sin(w))
	return shift(base, offset)
}

func (c *Circle) GetParams() map[string]float64 {
	return map[string]float64{"radius": c.Radius, "frequency": c.Frequency}
}

func (c *Circle) SetParam(name string, value float64) error {
	switch name {
	case "radius":
		c.Radius = value
	case "frequency":
		c.Frequency = value
	default:
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParameter, name)
	}
	return nil
}

// Manual holds a user-controlled offset applied to all anchors.
// Used for dragging the cloth corners from the live view.
type Manual struct {
	Offset dynamo.Vec3
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) Nudge(d dynamo.Vec3) { m.Offset = dynamo.Add(m.Offset, d) }
func (m *Manual) Center()             { m.Offset = dynamo.Vec3{} }

func (m *Manual) Targets(t float64, base []dynamo.Vec3) []dynamo.Vec3 {
	return shift(base, m.Offset)
}

func shift(base []dynamo.Vec3, offset dynamo.Vec3) []dynamo.Vec3 {
	out := make([]dynamo.Vec3, len(base))
	for i, b := range base {
		out[i] = dynamo.Add(b, offset)
	}
	return out
}

// Spec is the serialisable description of a driver.
type Spec struct {
	Type      string  `yaml:"type" json:"type"`
	Amplitude float64 `yaml:"amplitude,omitempty" json:"amplitude,omitempty"`
	Frequency float64 `yaml:"frequency,omitempty" json:"frequency,omitempty"`
}

var factories = map[string]func(Spec) dynamo.Driver{
	"static":    func(Spec) dynamo.Driver { return NewStatic() },
	"manual":    func(Spec) dynamo.Driver { return NewManual() },
	"oscillate": func(s Spec) dynamo.Driver { return NewOscillate(s.Amplitude, s.Frequency) },
	"circle":    func(s Spec) dynamo.Driver { return NewCircle(s.Amplitude, s.Frequency) },
}

// New builds the driver named by spec.Type. An empty type means static.
func New(spec Spec) (dynamo.Driver, error) {
	if spec.Type == "" {
		return NewStatic(), nil
	}
	f, ok := factories[spec.Type]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q", spec.Type)
	}
	return f(spec), nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for k := range factories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/metrics"
	"github.com/san-kum/springsim/internal/sim"
	"github.com/san-kum/springsim/internal/topology"
)

type Registry struct {
	layouts map[string]func(shear bool) topology.Layout
}

func NewRegistry() *Registry {
	r := &Registry{
		layouts: make(map[string]func(bool) topology.Layout),
	}

	r.layouts["single_spring"] = func(bool) topology.Layout { return topology.NewSingleSpring() }
	r.layouts["rectangle"] = func(shear bool) topology.Layout {
		rect := topology.NewRectangle()
		rect.Shear = shear
		return rect
	}
	r.layouts["grid"] = func(bool) topology.Layout { return topology.NewGrid(false) }
	r.layouts["cloth"] = func(bool) topology.Layout { return topology.NewGrid(true) }

	return r
}

// Layout returns the layout for a scenario. shear only affects the rectangle.
func (r *Registry) Layout(name string, shear bool) (topology.Layout, error) {
	fn, ok := r.layouts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownScenario, name)
	}
	return fn(shear), nil
}

func (r *Registry) ListScenarios() []string {
	names := make([]string, 0, len(r.layouts))
	for name := range r.layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []sim.Metric {
	return metrics.Standard()
}

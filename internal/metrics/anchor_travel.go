package metrics

import (
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/sim"
)

// AnchorTravel is the mean distance fixed particles are moved per frame,
// i.e. how hard a driver works the anchors.
type AnchorTravel struct {
	name    string
	prev    map[int]dynamo.Vec3
	sum     float64
	samples int
}

func NewAnchorTravel() *AnchorTravel {
	return &AnchorTravel{
		name: "anchor_travel",
		prev: make(map[int]dynamo.Vec3),
	}
}

func (a *AnchorTravel) Name() string { return a.name }

func (a *AnchorTravel) Observe(f sim.Frame) {
	if f.Report.Rebuilt {
		clear(a.prev)
		return
	}
	for i, p := range f.Particles {
		if !p.Fixed {
			continue
		}
		if last, ok := a.prev[i]; ok {
			a.sum += dynamo.Distance(last, p.Position)
		}
		a.prev[i] = p.Position
	}
	a.samples++
}

func (a *AnchorTravel) Value() float64 {
	if a.samples == 0 {
		return 0
	}
	return a.sum / float64(a.samples)
}

func (a *AnchorTravel) Reset() {
	clear(a.prev)
	a.sum = 0
	a.samples = 0
}

// Standard returns the metric set attached to every headless run.
func Standard() []sim.Metric {
	return []sim.Metric{
		NewKineticEnergy(),
		NewEnergyDrift(),
		NewStability(),
		NewMaxStrain(),
		NewAnchorTravel(),
	}
}

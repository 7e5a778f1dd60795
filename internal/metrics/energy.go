package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/springsim/internal/sim"
)

// KineticEnergy reports the mean kinetic energy over observed frames.
type KineticEnergy struct {
	name    string
	samples []float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(f sim.Frame) {
	k.samples = append(k.samples, f.Energy.Kinetic)
}

func (k *KineticEnergy) Value() float64 {
	if len(k.samples) == 0 {
		return 0
	}
	return stat.Mean(k.samples, nil)
}

// StdDev is the spread of kinetic energy around the mean.
func (k *KineticEnergy) StdDev() float64 {
	if len(k.samples) < 2 {
		return 0
	}
	return stat.StdDev(k.samples, nil)
}

func (k *KineticEnergy) Reset() { k.samples = k.samples[:0] }

// EnergyDrift is the largest relative departure of total energy from the
// first observed frame.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f sim.Frame) {
	energy := f.Energy.Total()
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

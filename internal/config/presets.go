package config

import (
	"sort"

	"github.com/san-kum/springsim/internal/drive"
	"github.com/san-kum/springsim/internal/dynamo"
)

// courseParams are the slider defaults of the single spring and rectangle scenes.
var courseParams = dynamo.Params{
	Stiffness: 20, Timestep: 0.02, Damping: 0.98, Gravity: -9.8,
	Drag: 0, CollisionStiffness: dynamo.DefaultCollisionStiffness, Resolution: 2,
}

var gridParams = dynamo.Params{
	Stiffness: 50, Timestep: 0.01, Damping: 0.95, Gravity: -2,
	Drag: 0, CollisionStiffness: dynamo.DefaultCollisionStiffness, Resolution: 10,
}

func with(p dynamo.Params, f func(*dynamo.Params)) dynamo.Params {
	f(&p)
	return p
}

var clothSphere = ObstacleConfig{Center: Point{0, 1.5, 1}, Radius: 0.5}

var Presets = map[string]map[string]*Config{
	"single_spring": {
		"default": {
			Scenario: "single_spring", Params: courseParams, Mass: 1, Steps: 500, SampleEvery: 1,
		},
		"stiff": {
			Scenario: "single_spring", Params: with(courseParams, func(p *dynamo.Params) { p.Stiffness = 80 }),
			Mass: 1, Steps: 500, SampleEvery: 1,
		},
		"heavy": {
			Scenario: "single_spring", Params: courseParams, Mass: 4, Steps: 500, SampleEvery: 1,
		},
	},
	"rectangle": {
		"default": {
			Scenario: "rectangle", Params: courseParams, Mass: 1, Steps: 500, SampleEvery: 1,
		},
		"braced": {
			Scenario: "rectangle", Params: courseParams, Mass: 1, Shear: true, Steps: 500, SampleEvery: 1,
		},
	},
	"grid": {
		"default": {
			Scenario: "grid", Params: gridParams, Mass: 1, Steps: 1000, SampleEvery: 10,
		},
		"fine": {
			Scenario: "grid", Params: with(gridParams, func(p *dynamo.Params) { p.Resolution = 20 }),
			Mass: 1, Steps: 1000, SampleEvery: 10,
		},
		"swing": {
			Scenario: "grid", Params: gridParams, Mass: 1, Steps: 1000, SampleEvery: 10,
			Drive: drive.Spec{Type: "oscillate", Amplitude: 0.5, Frequency: 0.5},
		},
	},
	"cloth": {
		"default": {
			Scenario: "cloth", Params: dynamo.DefaultParams(), Mass: 2, Obstacle: &clothSphere,
			Steps: 1000, SampleEvery: 10,
		},
		"coarse": {
			Scenario: "cloth", Params: with(dynamo.DefaultParams(), func(p *dynamo.Params) { p.Resolution = 6 }),
			Mass: 2, Obstacle: &clothSphere, Steps: 1000, SampleEvery: 10,
		},
		"twirl": {
			Scenario: "cloth", Params: dynamo.DefaultParams(), Mass: 2, Obstacle: &clothSphere,
			Drive: drive.Spec{Type: "circle", Amplitude: 0.3, Frequency: 0.25}, Steps: 2000, SampleEvery: 10,
		},
		"unstable": {
			Scenario: "cloth", Params: with(dynamo.DefaultParams(), func(p *dynamo.Params) {
				p.Stiffness = 500
				p.Timestep = 1.0
			}),
			Mass: 2, Obstacle: &clothSphere, Steps: 50, SampleEvery: 1,
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scenario, preset string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scenarios lists every scenario that has presets.
func Scenarios() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

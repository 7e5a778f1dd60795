package automation

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/experiment"
	"github.com/san-kum/springsim/internal/sim"
)

// Script is a scripted run: a preset plus events fired at given steps.
type Script struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Scenario    string  `yaml:"scenario"`
	Preset      string  `yaml:"preset"`
	Steps       int     `yaml:"steps"`
	Events      []Event `yaml:"events"`
}

// Event is applied before the step with index AtStep runs. Set is applied
// first, then Anchor, then Reset.
type Event struct {
	AtStep int                `yaml:"at_step"`
	Set    map[string]float64 `yaml:"set,omitempty"`
	Anchor *AnchorMove        `yaml:"anchor,omitempty"`
	Reset  bool               `yaml:"reset,omitempty"`
}

type AnchorMove struct {
	Index    int          `yaml:"index"`
	Position config.Point `yaml:"position,flow"`
}

// LoadScript loads a script from a YAML file
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &script, nil
}

func (s *Script) Validate() error {
	if s.Steps < 1 {
		return fmt.Errorf("script %q: steps must be positive", s.Name)
	}
	for i, ev := range s.Events {
		if ev.AtStep < 0 || ev.AtStep >= s.Steps {
			return fmt.Errorf("script %q: event %d at step %d outside [0,%d)", s.Name, i, ev.AtStep, s.Steps)
		}
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].AtStep < s.Events[j].AtStep })
	return nil
}

// Config resolves the script's preset.
func (s *Script) Config() (*config.Config, error) {
	scenario := s.Scenario
	if scenario == "" {
		scenario = config.DefaultScenario
	}
	preset := s.Preset
	if preset == "" {
		preset = "default"
	}
	cfg := config.GetPreset(scenario, preset)
	if cfg == nil {
		return nil, fmt.Errorf("no preset %s/%s", scenario, preset)
	}
	return cfg, nil
}

// Hook returns an experiment hook that fires the script's events. Events must
// be sorted by AtStep, which Validate ensures.
func (s *Script) Hook() experiment.Hook {
	next := 0
	return func(step int, sm *sim.Simulation) error {
		for next < len(s.Events) && s.Events[next].AtStep <= step {
			if err := apply(s.Events[next], sm); err != nil {
				return err
			}
			next++
		}
		return nil
	}
}

func apply(ev Event, sm *sim.Simulation) error {
	names := make([]string, 0, len(ev.Set))
	for name := range ev.Set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := sm.SetParameter(name, ev.Set[name]); err != nil {
			return err
		}
	}

	if ev.Anchor != nil {
		if err := sm.SetAnchor(ev.Anchor.Index, ev.Anchor.Position.Vec()); err != nil {
			return err
		}
	}

	if ev.Reset {
		return sm.Reset(sm.Params())
	}
	return nil
}

// RunScript executes the script headlessly.
func RunScript(ctx context.Context, script *Script, opts ...experiment.Option) (*experiment.Result, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}
	cfg, err := script.Config()
	if err != nil {
		return nil, err
	}

	exp, err := experiment.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	exp.Before(script.Hook())
	return exp.Run(ctx, script.Steps)
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/springsim/internal/compute"
	"github.com/san-kum/springsim/internal/drive"
	"github.com/san-kum/springsim/internal/dynamo"
)

const (
	DefaultScenario    = "cloth"
	DefaultMass        = 2.0
	DefaultSteps       = 1000
	DefaultSampleEvery = 10
)

// Point is a position written as a flow sequence: [x, y, z].
type Point [3]float64

func (p Point) Vec() dynamo.Vec3 { return dynamo.V(p[0], p[1], p[2]) }

func PointOf(v dynamo.Vec3) Point { return Point{v.X, v.Y, v.Z} }

type ObstacleConfig struct {
	Center Point   `yaml:"center,flow"`
	Radius float64 `yaml:"radius"`
}

func (o ObstacleConfig) Obstacle() dynamo.Obstacle {
	return dynamo.Obstacle{Center: o.Center.Vec(), Radius: o.Radius}
}

type Config struct {
	Scenario    string          `yaml:"scenario"`
	Params      dynamo.Params   `yaml:"params"`
	Mass        float64         `yaml:"mass"`
	Shear       bool            `yaml:"shear,omitempty"`
	Obstacle    *ObstacleConfig `yaml:"obstacle,omitempty"`
	Anchors     []Point         `yaml:"anchors,omitempty,flow"`
	Drive       drive.Spec      `yaml:"drive,omitempty"`
	Steps       int             `yaml:"steps"`
	SampleEvery int             `yaml:"sample_every"`
	Backend     string          `yaml:"backend,omitempty"` // force pass: serial, parallel or auto
}

// DefaultConfig is the cloth scene with its obstacle.
func DefaultConfig() *Config {
	return &Config{
		Scenario: DefaultScenario,
		Params:   dynamo.DefaultParams(),
		Mass:     DefaultMass,
		Obstacle: &ObstacleConfig{
			Center: Point{0, 1.5, 1},
			Radius: 0.5,
		},
		Steps:       DefaultSteps,
		SampleEvery: DefaultSampleEvery,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if !(c.Mass > 0) {
		return fmt.Errorf("%w: mass must be positive, got %v", dynamo.ErrInvalidParameter, c.Mass)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must be >= 0, got %d", dynamo.ErrInvalidParameter, c.Steps)
	}
	if c.SampleEvery < 1 {
		return fmt.Errorf("%w: sample_every must be >= 1, got %d", dynamo.ErrInvalidParameter, c.SampleEvery)
	}
	if c.Obstacle != nil && !(c.Obstacle.Radius > 0) {
		return fmt.Errorf("%w: obstacle radius must be positive, got %v", dynamo.ErrInvalidParameter, c.Obstacle.Radius)
	}
	if _, err := compute.Select(c.Backend); err != nil {
		return err
	}
	if _, err := drive.New(c.Drive); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Obstacle != nil {
		o := *c.Obstacle
		out.Obstacle = &o
	}
	if c.Anchors != nil {
		out.Anchors = append([]Point(nil), c.Anchors...)
	}
	return &out
}

// AnchorPositions converts Anchors for sim.WithAnchors; nil when unset.
func (c *Config) AnchorPositions() []dynamo.Vec3 {
	if len(c.Anchors) == 0 {
		return nil
	}
	out := make([]dynamo.Vec3, len(c.Anchors))
	for i, p := range c.Anchors {
		out[i] = p.Vec()
	}
	return out
}

// Package config provides configuration loading and access for the solver.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/grain/geom"
	"github.com/pthm-cable/grain/particles"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GRAIN_"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds all solver configuration parameters.
type Config struct {
	Solver     SolverConfig         `yaml:"solver" envPrefix:"SOLVER_"`
	Broadphase BroadphaseConfig     `yaml:"broadphase" envPrefix:"BROADPHASE_"`
	Materials  []particles.Material `yaml:"materials"`
	Telemetry  TelemetryConfig      `yaml:"telemetry" envPrefix:"TELEMETRY_"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SolverConfig holds the integration parameters.
type SolverConfig struct {
	Substeps              int        `yaml:"substeps" env:"SUBSTEPS"`
	Iterations            int        `yaml:"iterations" env:"ITERATIONS"`
	Gravity               [3]float64 `yaml:"gravity"`
	Damping               float64    `yaml:"damping" env:"DAMPING"`                                 // velocity multiplier per substep
	ContactStiffness      float64    `yaml:"contact_stiffness" env:"CONTACT_STIFFNESS"`             // fraction of overlap removed per contact
	CohesionBreakVelocity float64    `yaml:"cohesion_break_velocity" env:"COHESION_BREAK_VELOCITY"` // separation speed that breaks a bond
	CohesionShearLimit    float64    `yaml:"cohesion_shear_limit" env:"COHESION_SHEAR_LIMIT"`       // tangential speed that breaks a bond
	EnergyClamp           bool       `yaml:"energy_clamp" env:"ENERGY_CLAMP"`
	RigidOverlap          bool       `yaml:"rigid_overlap" env:"RIGID_OVERLAP"` // sphere-cast particles the sweep missed
}

// BroadphaseConfig selects and sizes the spatial index.
type BroadphaseConfig struct {
	Kind     string       `yaml:"kind" env:"KIND"`
	CellSize float64      `yaml:"cell_size" env:"CELL_SIZE"`
	Bounds   BoundsConfig `yaml:"bounds"`
}

// BoundsConfig is a box given by two corners.
type BoundsConfig struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

// AABB converts the bounds to a float32 box.
func (b BoundsConfig) AABB() geom.AABB {
	return geom.NewAABB(
		float32(b.Min[0]), float32(b.Min[1]), float32(b.Min[2]),
		float32(b.Max[0]), float32(b.Max[1]), float32(b.Max[2]),
	)
}

// BoundsFromAABB is the inverse of BoundsConfig.AABB.
func BoundsFromAABB(box geom.AABB) BoundsConfig {
	var b BoundsConfig
	for k := range 3 {
		b.Min[k] = float64(box.Min[k])
		b.Max[k] = float64(box.Max[k])
	}
	return b
}

// TelemetryConfig holds stats collection parameters.
type TelemetryConfig struct {
	StatsWindow int    `yaml:"stats_window" env:"STATS_WINDOW"` // steps per window row
	PerfWindow  int    `yaml:"perf_window" env:"PERF_WINDOW"`   // steps kept by the perf collector
	OutputDir   string `yaml:"output_dir" env:"OUTPUT_DIR"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	MaterialIndex map[string]int // name -> index into Materials
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults, without any file
// or environment overlay.
func Default() *Config {
	cfg, err := parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults,
// then applies GRAIN_ environment overrides.
// If path is empty, only embedded defaults and the environment are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// parse layers data over the embedded defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		// A materials list in the file replaces the default list wholesale.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.computeDerived()
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	s := c.Solver
	switch {
	case s.Substeps < 1:
		return fmt.Errorf("%w: solver.substeps must be >= 1, got %d", ErrInvalid, s.Substeps)
	case s.Iterations < 1:
		return fmt.Errorf("%w: solver.iterations must be >= 1, got %d", ErrInvalid, s.Iterations)
	case s.Damping < 0 || s.Damping > 1:
		return fmt.Errorf("%w: solver.damping must be in [0, 1], got %v", ErrInvalid, s.Damping)
	case s.ContactStiffness < 0 || s.ContactStiffness > 1:
		return fmt.Errorf("%w: solver.contact_stiffness must be in [0, 1], got %v", ErrInvalid, s.ContactStiffness)
	case s.CohesionBreakVelocity <= 0 || s.CohesionShearLimit <= 0:
		return fmt.Errorf("%w: cohesion thresholds must be positive", ErrInvalid)
	}

	b := c.Broadphase
	if b.CellSize <= 0 {
		return fmt.Errorf("%w: broadphase.cell_size must be positive, got %v", ErrInvalid, b.CellSize)
	}
	switch b.Kind {
	case "hash", "sparse":
	case "dense":
		if !b.Bounds.AABB().Valid() {
			return fmt.Errorf("%w: broadphase.bounds min must not exceed max", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown broadphase.kind %q", ErrInvalid, b.Kind)
	}

	seen := make(map[string]bool, len(c.Materials))
	for _, m := range c.Materials {
		if m.Name == "" {
			return fmt.Errorf("%w: material without a name", ErrInvalid)
		}
		if seen[m.Name] {
			return fmt.Errorf("%w: duplicate material %q", ErrInvalid, m.Name)
		}
		seen[m.Name] = true
	}

	if c.Telemetry.StatsWindow < 1 || c.Telemetry.PerfWindow < 1 {
		return fmt.Errorf("%w: telemetry windows must be >= 1", ErrInvalid)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.MaterialIndex = make(map[string]int, len(c.Materials))
	for i, m := range c.Materials {
		c.Derived.MaterialIndex[m.Name] = i
	}
}

// Material returns the named preset.
func (c *Config) Material(name string) (particles.Material, bool) {
	i, ok := c.Derived.MaterialIndex[name]
	if !ok {
		return particles.Material{}, false
	}
	return c.Materials[i], true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

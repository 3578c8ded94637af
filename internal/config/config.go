// Package config provides YAML configuration loading and validation for
// the H2P core simulator. Grounded on
// bobbydeveaux-starbucks-mugs/internal/config/config.go: yaml.v3 struct
// tags, a Load(path) (*Config, error) entry point, defaults applied after
// unmarshal, and a Validate step.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for one simulation run. It covers
// the core count, RRB size, walk latency, maintenance period, debug window
// and output sink; table sizes (HBT_SIZE, DCC_SIZE, ...), per-entry bounds
// and the HBT decay schedule are not configurable here and are
// compile-time constants in their owning packages.
type Config struct {
	// NumCores is the number of disjoint per-core H2P instances. Required.
	NumCores int `yaml:"num_cores"`

	// RRBSize is RRB_SIZE, the retirement ring's capacity. Defaults to
	// rrb.DefaultSize when omitted.
	RRBSize int `yaml:"rrb_size"`

	// WalkLatency is WALK_LATENCY, the BWE's countdown in cycles.
	WalkLatency int `yaml:"walk_latency"`

	// MaintenancePeriod is the cycle interval at which
	// PeriodicallyResetCaches is invoked for every core. Defaults to 100000
	// when omitted.
	MaintenancePeriod int `yaml:"maintenance_period"`

	// Debug gates the cycle window over which per-component tracing is
	// emitted at Debug level (spec.md §6: DEBUG_CYCLE_START/STOP).
	Debug DebugWindow `yaml:"debug"`

	// OutputDir is the directory diagnostic log files are written under.
	// Empty means stderr only.
	OutputDir string `yaml:"output_dir"`

	// LogLevel sets the minimum severity emitted by the structured logger:
	// "debug", "info", "warn", or "error". Defaults to "info".
	LogLevel string `yaml:"log_level"`
}

// DebugWindow is the [start, stop) cycle range debug tracing is active
// over; Stop == 0 means unbounded (trace from Start onward).
type DebugWindow struct {
	Start uint64 `yaml:"cycle_start"`
	Stop  uint64 `yaml:"cycle_stop"`
}

// Active reports whether cycle falls within the debug window.
func (w DebugWindow) Active(cycle uint64) bool {
	if cycle < w.Start {
		return false
	}
	if w.Stop == 0 {
		return true
	}
	return cycle < w.Stop
}

// Load reads the YAML file at path, unmarshals it into Config, applies
// defaults, and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: cannot read %q", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "config: cannot parse %q", path)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config: validation failed for %q", path)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RRBSize <= 0 {
		cfg.RRBSize = 256
	}
	if cfg.MaintenancePeriod <= 0 {
		cfg.MaintenancePeriod = 100000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that required fields are populated and enumerated
// fields hold recognized values.
func (cfg *Config) Validate() error {
	if cfg.NumCores <= 0 {
		return errors.New("num_cores must be positive")
	}
	if cfg.WalkLatency < 0 {
		return errors.New("walk_latency must be non-negative")
	}
	if !validLogLevels[cfg.LogLevel] {
		return errors.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel)
	}
	if cfg.Debug.Stop != 0 && cfg.Debug.Stop <= cfg.Debug.Start {
		return errors.New("debug.cycle_stop must be greater than debug.cycle_start when set")
	}
	return nil
}

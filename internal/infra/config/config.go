// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hweir/bakelite/internal/infra/hardware"
)

// Config represents the application configuration.
type Config struct {
	Gesture  GestureConfig   `yaml:"gesture"`
	Radio    RadioConfig     `yaml:"radio"`
	Emulator EmulatorConfig  `yaml:"emulator"`
	Library  LibraryConfig   `yaml:"library"`
	Hardware hardware.Config `yaml:"hardware"`
}

// GestureConfig holds the button timing constants. They were tunable in the
// reference hardware, not fixed by protocol, so they live in configuration.
type GestureConfig struct {
	InterPressWindowMs int `yaml:"inter_press_window_ms" default:"400" validate:"gte=50,lte=2000"`
	HoldThresholdMs    int `yaml:"hold_threshold_ms" default:"600" validate:"gte=100,lte=5000"`
	DebounceMs         int `yaml:"debounce_ms" default:"20" validate:"gte=0,lte=200"`
}

// InterPressWindow returns the inter-press window as a duration.
func (g GestureConfig) InterPressWindow() time.Duration {
	return time.Duration(g.InterPressWindowMs) * time.Millisecond
}

// HoldThreshold returns the hold threshold as a duration.
func (g GestureConfig) HoldThreshold() time.Duration {
	return time.Duration(g.HoldThresholdMs) * time.Millisecond
}

// Debounce returns the debounce interval as a duration.
func (g GestureConfig) Debounce() time.Duration {
	return time.Duration(g.DebounceMs) * time.Millisecond
}

// RadioConfig holds radio mode tuning.
type RadioConfig struct {
	// DeadbandPct is the full width, in dial percent, of the static band at
	// each internal station boundary.
	DeadbandPct float64 `yaml:"deadband_pct" default:"2" validate:"gte=0,lte=20"`
}

// EmulatorConfig holds desktop emulator settings.
type EmulatorConfig struct {
	TickMs        int `yaml:"tick_ms" default:"25" validate:"gte=10,lte=100"`
	InitialVolume int `yaml:"initial_volume" default:"100" validate:"gte=0,lte=100"`
}

// Tick returns the cooperative tick interval.
func (e EmulatorConfig) Tick() time.Duration {
	return time.Duration(e.TickMs) * time.Millisecond
}

// LibraryConfig points at the metadata feed produced by the external sync
// step.
type LibraryConfig struct {
	MetadataFile string `yaml:"metadata_file" default:"bakelite_metadata.yaml" validate:"required"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() (*Config, error) {
	var cfg Config
	cfg.overrideFromEnv()
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) overrideFromEnv() {
	if v := os.Getenv("BAKELITE_METADATA"); v != "" {
		c.Library.MetadataFile = v
	}
	if v := os.Getenv("BAKELITE_STATE"); v != "" {
		if c.Hardware.Settings == nil {
			c.Hardware.Settings = make(map[string]any)
		}
		c.Hardware.Settings["state_file"] = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

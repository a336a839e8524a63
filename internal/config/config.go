// Package config loads the scanner's YAML configuration file: default
// symbols/venues to scan and per-venue rate-limit/budget overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VenueLimit overrides the default REST throttle/budget for one venue.
type VenueLimit struct {
	RPS         float64 `yaml:"rps"`
	Burst       int     `yaml:"burst"`
	DailyBudget int64   `yaml:"daily_budget"`
}

// Config is the top-level scanner configuration file shape.
type Config struct {
	Symbols     []string              `yaml:"symbols"`
	Venues      []string              `yaml:"venues"`
	VenueLimits map[string]VenueLimit `yaml:"venue_limits"`
}

// Load reads and parses a YAML config file at path. A missing file is
// not an error: callers fall back to command-line flags and built-in
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

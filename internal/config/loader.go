package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses configuration from a yaml file, applies defaults
// for unset fields, and validates the result.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with -c flag", absPath)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg = applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields that yaml decoding may have
// clobbered with explicit empty values.
func applyDefaults(cfg *Config) *Config {
	def := Defaults()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Planner.MaxStretchFactor == 0 {
		cfg.Planner.MaxStretchFactor = def.Planner.MaxStretchFactor
	}
	if len(cfg.Planner.CandidateBPMs) == 0 {
		cfg.Planner.CandidateBPMs = def.Planner.CandidateBPMs
	}
	if cfg.Planner.SanityFactor == 0 {
		cfg.Planner.SanityFactor = def.Planner.SanityFactor
	}
	if cfg.Planner.Tolerance == 0 {
		cfg.Planner.Tolerance = def.Planner.Tolerance
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = def.API.Listen
	}
	return cfg
}

// Validate checks configuration values and reports the first offending
// field path.
func (c *Config) Validate() error {
	if c.Planner.MaxStretchFactor <= 1.0 {
		return fmt.Errorf("planner.max_stretch_factor: must be > 1.0, got %v", c.Planner.MaxStretchFactor)
	}
	if c.Planner.SanityFactor <= 1.0 {
		return fmt.Errorf("planner.sanity_factor: must be > 1.0, got %v", c.Planner.SanityFactor)
	}
	if c.Planner.Tolerance <= 0 {
		return fmt.Errorf("planner.tolerance: must be positive, got %v", c.Planner.Tolerance)
	}
	for i, bpm := range c.Planner.CandidateBPMs {
		if bpm <= 0 {
			return fmt.Errorf("planner.candidate_bpms[%d]: must be positive, got %v", i, bpm)
		}
	}
	if c.API.Enabled && c.API.Listen == "" {
		return fmt.Errorf("api.listen: required when api.enabled is true")
	}
	return nil
}

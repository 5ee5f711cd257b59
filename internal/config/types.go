package config

// Config represents the complete kompozer configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Planner PlannerConfig `yaml:"planner"`
	API     APIConfig     `yaml:"api,omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// PlannerConfig defines compilation policy settings.
type PlannerConfig struct {
	// MaxStretchFactor bounds the auto-upgrade from trim/smart_cut to
	// time_stretch. Compilation fails past this factor.
	MaxStretchFactor float64 `yaml:"max_stretch_factor"`
	// CandidateBPMs are the alternate tempi the multi-tempo validator
	// re-derives every duration under.
	CandidateBPMs []float64 `yaml:"candidate_bpms"`
	// SanityFactor bounds how far a candidate-BPM duration may drift from
	// the committed-BPM duration before the candidate is marked failed.
	SanityFactor float64 `yaml:"sanity_factor"`
	// Tolerance is the floating tolerance (seconds) for duration-sum
	// consistency checks.
	Tolerance float64 `yaml:"tolerance"`
}

// APIConfig defines HTTP surface settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// CacheConfig defines the optional plan cache settings.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Planner: PlannerConfig{
			MaxStretchFactor: 3.0,
			CandidateBPMs:    []float64{100, 120, 135, 140},
			SanityFactor:     10.0,
			Tolerance:        1e-6,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8745",
		},
	}
}

// Package config loads the application configuration: tolerances and paths
// from a TOML file, deployment overrides from the environment, and the tag
// prefix / allowed layer lists from tabular files.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	Matching MatchingConfig `toml:"matching"`
	Marking  MarkingConfig  `toml:"marking"`
	Paths    PathsConfig    `toml:"paths"`
	Export   ExportConfig   `toml:"export"`
	Logging  LoggingConfig  `toml:"logging"`
}

// MatchingConfig holds the clustering and ownership tolerances. All values
// are empirically tuned per drawing standard; none are hard-coded defaults
// to trust blindly.
type MatchingConfig struct {
	// LinkTolerance is the maximum bounding-box gap between two entities in
	// the same cluster.
	LinkTolerance float64 `toml:"link_tolerance"`

	// AmbiguityTolerance is the near-tie band for tag ownership.
	AmbiguityTolerance float64 `toml:"ambiguity_tolerance"`

	// ProximityRadius bounds the candidate search around each tag.
	ProximityRadius float64 `toml:"proximity_radius"`

	// MaxSymbolLineLength separates symbol strokes from process lines.
	MaxSymbolLineLength float64 `toml:"max_symbol_line_length"`

	// ZoneBoundaryLayer is the layer carrying zone boundary polylines.
	ZoneBoundaryLayer string `toml:"zone_boundary_layer"`

	// Parallelism bounds concurrent per-tag matching. Zero or one runs the
	// pass sequentially.
	Parallelism int `toml:"parallelism"`
}

// MarkingConfig holds the problem-marker geometry.
type MarkingConfig struct {
	MarkerSize      float64 `toml:"marker_size"`
	MarkerTolerance float64 `toml:"marker_tolerance"`
}

// PathsConfig points at the external configuration files.
type PathsConfig struct {
	PatternLibrary string `toml:"pattern_library"`
	TagPrefixes    string `toml:"tag_prefixes"`
	AllowedLayers  string `toml:"allowed_layers"`
}

// ExportConfig configures the downstream record sink.
type ExportConfig struct {
	URL           string `toml:"url"`
	SettleDelayMS int    `toml:"settle_delay_ms"`
	TimeoutMS     int    `toml:"timeout_ms"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
}

// Default returns the built-in configuration. The tolerances are starting
// points observed in the field, not calibrated values.
func Default() Config {
	return Config{
		Matching: MatchingConfig{
			LinkTolerance:       6,
			AmbiguityTolerance:  10,
			ProximityRadius:     50,
			MaxSymbolLineLength: 50,
			ZoneBoundaryLayer:   "ZONES",
		},
		Marking: MarkingConfig{
			MarkerSize:      5,
			MarkerTolerance: 2,
		},
		Paths: PathsConfig{
			PatternLibrary: "patterns.yaml",
			TagPrefixes:    "tag_prefixes.csv",
			AllowedLayers:  "allowed_layers.csv",
		},
		Export: ExportConfig{
			SettleDelayMS: 500,
			TimeoutMS:     10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the TOML configuration file, then applies environment
// overrides. A missing file is fatal; a missing .env is not.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFile loads a .env file into the process environment if it exists.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays deployment-level settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("PIDX_EXPORT_URL"); v != "" {
		c.Export.URL = v
	}
	if v := os.Getenv("PIDX_EXPORT_SETTLE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Export.SettleDelayMS = ms
		}
	}
	if v := os.Getenv("PIDX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PIDX_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Matching.LinkTolerance < 0 {
		return fmt.Errorf("matching.link_tolerance must not be negative")
	}
	if c.Matching.AmbiguityTolerance < 0 {
		return fmt.Errorf("matching.ambiguity_tolerance must not be negative")
	}
	if c.Matching.ProximityRadius <= 0 {
		return fmt.Errorf("matching.proximity_radius must be positive")
	}
	if c.Marking.MarkerSize <= 0 {
		return fmt.Errorf("marking.marker_size must be positive")
	}
	return nil
}

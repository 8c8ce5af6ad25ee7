// Package config holds the pipeline configuration file and the API
// server's environment settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "epec.yaml"

// Config is the pipeline configuration.
type Config struct {
	DataPath string `yaml:"data_path"`

	// OutputDirs overrides the output directory of a preset by name.
	OutputDirs map[string]string `yaml:"output_dirs"`

	Figure  FigureConfig  `yaml:"figure"`
	Workers int           `yaml:"workers"`
	History string        `yaml:"history_db"`    // SQLite path, empty keeps no history
	Export  string        `yaml:"export_tables"` // .json or .xlsx, empty skips export
	Logging LoggingConfig `yaml:"logging"`
}

// FigureConfig sizes every rendered image.
type FigureConfig struct {
	WidthInches  float64 `yaml:"width_inches"`
	HeightInches float64 `yaml:"height_inches"`
	DPI          int     `yaml:"dpi"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // console or json
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		DataPath:   "data/epec_country_sector_year.csv",
		OutputDirs: map[string]string{},
		Figure: FigureConfig{
			WidthInches:  10,
			HeightInches: 6,
			DPI:          300,
		},
		Workers: 1,
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.OutputDirs == nil {
		cfg.OutputDirs = map[string]string{}
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data_path is required")
	}
	if c.Figure.WidthInches <= 0 || c.Figure.HeightInches <= 0 {
		return fmt.Errorf("figure size must be positive, got %gx%g", c.Figure.WidthInches, c.Figure.HeightInches)
	}
	if c.Figure.DPI <= 0 {
		return fmt.Errorf("figure dpi must be positive, got %d", c.Figure.DPI)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Export != "" {
		switch strings.ToLower(filepath.Ext(c.Export)) {
		case ".json", ".xlsx":
		default:
			return fmt.Errorf("export_tables must end in .json or .xlsx: %s", c.Export)
		}
	}
	validLevel := false
	for _, l := range ValidLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if c.Logging.Encoding != "console" && c.Logging.Encoding != "json" {
		return fmt.Errorf("invalid log encoding: %s (valid: console, json)", c.Logging.Encoding)
	}
	return nil
}

// OutputDir returns the configured directory of a preset, or "" to keep the
// preset's own.
func (c *Config) OutputDir(preset string) string {
	return c.OutputDirs[preset]
}

// ServerConfig is the history API's environment.
type ServerConfig struct {
	Addr      string `env:"EPEC_API_ADDR" envDefault:":8080"`
	HistoryDB string `env:"EPEC_HISTORY_DB" envDefault:"pipeline.db"`
	LogLevel  string `env:"EPEC_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

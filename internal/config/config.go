package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wellbeing/internal/database"
	"wellbeing/internal/infrastructure/logging"
)

// DefaultConfigPath is used when no --config flag is given
const DefaultConfigPath = "~/.config/wellbeing/config.yaml"

// Config holds all pipeline configuration.
type Config struct {
	Sampler     SamplerConfig     `yaml:"sampler"`
	Aggregator  AggregatorConfig  `yaml:"aggregator"`
	Categories  CategoriesConfig  `yaml:"categories"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Logging     LoggingConfig     `yaml:"logging"`
	Timezone    string            `yaml:"timezone"`
	Database    *database.Config  `yaml:"database"`
}

type SamplerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	Timeout    time.Duration `yaml:"timeout"`
	DeviceType string        `yaml:"device_type"`
}

type AggregatorConfig struct {
	Interval       time.Duration `yaml:"interval"`
	MaxRunDuration time.Duration `yaml:"max_run_duration"`
	BackfillDays   int           `yaml:"backfill_days"`
}

type CategoriesConfig struct {
	Path string `yaml:"path"`
}

type DiagnosticsConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	NoEventsWarning time.Duration `yaml:"no_events_warning"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file at path over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	expanded, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg)
}

// LoadOrDefault behaves like Load but falls back to defaults when the file does not exist
func LoadOrDefault(path string) (*Config, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(expanded); os.IsNotExist(err) {
		return finish(DefaultConfig())
	}
	return Load(path)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.Database == nil {
		cfg.Database = database.DefaultConfig()
	}
	if err := cfg.LoadFromEnvironment(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnvironment applies WELLBEING_* overrides, including the database ones
func (c *Config) LoadFromEnvironment() error {
	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"WELLBEING_SAMPLER_INTERVAL", &c.Sampler.Interval},
		{"WELLBEING_SAMPLER_TIMEOUT", &c.Sampler.Timeout},
		{"WELLBEING_AGGREGATOR_INTERVAL", &c.Aggregator.Interval},
		{"WELLBEING_AGGREGATOR_MAX_RUN_DURATION", &c.Aggregator.MaxRunDuration},
		{"WELLBEING_DIAGNOSTICS_NO_EVENTS_WARNING", &c.Diagnostics.NoEventsWarning},
	}
	for _, d := range durations {
		raw := os.Getenv(d.key)
		if raw == "" {
			continue
		}
		val, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.target = val
	}

	if v := os.Getenv("WELLBEING_AGGREGATOR_BACKFILL_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WELLBEING_AGGREGATOR_BACKFILL_DAYS: %w", err)
		}
		c.Aggregator.BackfillDays = days
	}

	if v := os.Getenv("WELLBEING_DEVICE_TYPE"); v != "" {
		c.Sampler.DeviceType = v
	}
	if v := os.Getenv("WELLBEING_CATEGORIES_PATH"); v != "" {
		c.Categories.Path = v
	}
	if v, ok := os.LookupEnv("WELLBEING_DIAGNOSTICS_LISTEN_ADDR"); ok {
		c.Diagnostics.ListenAddr = v
	}
	if v := os.Getenv("WELLBEING_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WELLBEING_TIMEZONE"); v != "" {
		c.Timezone = v
	}

	if c.Database == nil {
		c.Database = database.DefaultConfig()
	}
	return c.Database.LoadFromEnvironment()
}

// Validate checks cross-field constraints and expands ~ in paths
func (c *Config) Validate() error {
	if c.Sampler.Interval <= 0 {
		return fmt.Errorf("sampler.interval must be positive, got %v", c.Sampler.Interval)
	}
	if c.Sampler.Timeout <= 0 || c.Sampler.Timeout >= c.Sampler.Interval {
		return fmt.Errorf("sampler.timeout must be positive and shorter than sampler.interval, got %v", c.Sampler.Timeout)
	}
	if strings.TrimSpace(c.Sampler.DeviceType) == "" {
		return fmt.Errorf("sampler.device_type cannot be empty")
	}

	if c.Aggregator.Interval <= 0 {
		return fmt.Errorf("aggregator.interval must be positive, got %v", c.Aggregator.Interval)
	}
	if c.Aggregator.MaxRunDuration <= 0 {
		return fmt.Errorf("aggregator.max_run_duration must be positive, got %v", c.Aggregator.MaxRunDuration)
	}
	if c.Aggregator.BackfillDays < 0 {
		return fmt.Errorf("aggregator.backfill_days cannot be negative, got %d", c.Aggregator.BackfillDays)
	}

	if c.Categories.Path == "" {
		return fmt.Errorf("categories.path cannot be empty")
	}
	path, err := expandPath(c.Categories.Path)
	if err != nil {
		return err
	}
	c.Categories.Path = path

	if c.Diagnostics.NoEventsWarning <= 0 {
		return fmt.Errorf("diagnostics.no_events_warning must be positive, got %v", c.Diagnostics.NoEventsWarning)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Database == nil {
		return fmt.Errorf("database section is required")
	}
	dbPath, err := expandPath(c.Database.Path)
	if err != nil {
		return err
	}
	c.Database.Path = dbPath
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	return nil
}

// Location resolves Timezone; empty means the host's local zone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LogLevel returns the parsed logging level
func (c *Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return level
}

// WriteDefault writes the default configuration to path, creating directories
func WriteDefault(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

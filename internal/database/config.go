package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// parseBoolEnv reads an environment variable and parses it as a boolean.
// Returns the parsed value and a boolean indicating if the variable was present.
// Supports true/false, 1/0, yes/no, on/off, t/f, y/n (case-insensitive).
func parseBoolEnv(key string) (bool, bool) {
	value := os.Getenv(key)
	if value == "" {
		return false, false
	}

	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed, true
	}

	switch strings.ToLower(value) {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// Config holds all database configuration options
type Config struct {
	// Connection settings
	Path                  string        `json:"path" yaml:"path"`                                       // Database file path
	MaxConnections        int           `json:"maxConnections" yaml:"max_connections"`                  // Maximum number of open connections
	MaxIdleConns          int           `json:"maxIdleConns" yaml:"max_idle_conns"`                     // Maximum number of idle connections
	ConnMaxLifetime       time.Duration `json:"connMaxLifetime" yaml:"conn_max_lifetime"`               // Maximum connection lifetime
	ConnMaxIdleTime       time.Duration `json:"connMaxIdleTime" yaml:"conn_max_idle_time"`              // Maximum connection idle time
	ForceSingleConnection bool          `json:"forceSingleConnection" yaml:"force_single_connection"`   // Force single connection mode

	AutoMigrate bool `json:"autoMigrate" yaml:"auto_migrate"` // Run embedded migrations on startup

	// SQLite pragmas
	JournalMode     string `json:"journalMode" yaml:"journal_mode"`         // WAL, DELETE, MEMORY, ...
	SynchronousMode string `json:"synchronousMode" yaml:"synchronous_mode"` // FULL, NORMAL, OFF
	CacheSize       int    `json:"cacheSize" yaml:"cache_size"`             // Cache size in KB
	BusyTimeout     int    `json:"busyTimeout" yaml:"busy_timeout"`         // Busy timeout in milliseconds
	ForeignKeys     bool   `json:"foreignKeys" yaml:"foreign_keys"`

	Environment string `json:"environment" yaml:"environment"` // development, production, test
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path:                  "wellbeing.db",
		MaxConnections:        4,
		MaxIdleConns:          2,
		ConnMaxLifetime:       24 * time.Hour,
		ConnMaxIdleTime:       30 * time.Minute,
		ForceSingleConnection: false,

		AutoMigrate: true,

		// WAL lets the query layer read while the aggregator holds its write transaction
		JournalMode:     "WAL",
		SynchronousMode: "NORMAL",
		CacheSize:       2000,
		BusyTimeout:     5000,
		ForeignKeys:     true,

		Environment: "production",
	}
}

// TestConfig returns an in-memory configuration for tests.
// Non-WAL journal modes force a single connection, so every test sees one database.
func TestConfig() *Config {
	config := DefaultConfig()
	config.Path = ":memory:"
	config.Environment = "test"
	config.JournalMode = "MEMORY"
	config.SynchronousMode = "OFF"
	config.CacheSize = 1000
	config.BusyTimeout = 1000
	config.ConnMaxLifetime = 0
	config.ConnMaxIdleTime = 0
	return config
}

// LoadFromEnvironment applies WELLBEING_DB_* overrides
func (c *Config) LoadFromEnvironment() error {
	if path := os.Getenv("WELLBEING_DB_PATH"); path != "" {
		c.Path = path
	}

	if maxConns := os.Getenv("WELLBEING_DB_MAX_CONNECTIONS"); maxConns != "" {
		val, err := strconv.Atoi(maxConns)
		if err != nil || val <= 0 {
			return fmt.Errorf("WELLBEING_DB_MAX_CONNECTIONS must be a positive integer, got %q", maxConns)
		}
		c.MaxConnections = val
	}

	if maxIdle := os.Getenv("WELLBEING_DB_MAX_IDLE_CONNECTIONS"); maxIdle != "" {
		val, err := strconv.Atoi(maxIdle)
		if err != nil || val < 0 {
			return fmt.Errorf("WELLBEING_DB_MAX_IDLE_CONNECTIONS must be a non-negative integer, got %q", maxIdle)
		}
		c.MaxIdleConns = val
	}

	if autoMigrate, present := parseBoolEnv("WELLBEING_DB_AUTO_MIGRATE"); present {
		c.AutoMigrate = autoMigrate
	}

	if journalMode := os.Getenv("WELLBEING_DB_JOURNAL_MODE"); journalMode != "" {
		c.JournalMode = strings.ToUpper(journalMode)
	}

	if syncMode := os.Getenv("WELLBEING_DB_SYNCHRONOUS_MODE"); syncMode != "" {
		c.SynchronousMode = strings.ToUpper(syncMode)
	}

	if busyTimeout := os.Getenv("WELLBEING_DB_BUSY_TIMEOUT"); busyTimeout != "" {
		val, err := strconv.Atoi(busyTimeout)
		if err != nil || val < 0 {
			return fmt.Errorf("WELLBEING_DB_BUSY_TIMEOUT must be a non-negative integer, got %q", busyTimeout)
		}
		c.BusyTimeout = val
	}

	if forceSingle, present := parseBoolEnv("WELLBEING_DB_FORCE_SINGLE_CONNECTION"); present {
		c.ForceSingleConnection = forceSingle
	}

	if environment := os.Getenv("WELLBEING_ENVIRONMENT"); environment != "" {
		c.Environment = environment
	}

	return nil
}

// Validate validates the configuration parameters and creates the database directory
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if !c.IsInMemory() {
		dir := filepath.Dir(c.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	if c.MaxConnections <= 0 {
		return fmt.Errorf("maxConnections must be positive, got %d", c.MaxConnections)
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("maxIdleConns cannot be negative, got %d", c.MaxIdleConns)
	}
	if c.MaxIdleConns > c.MaxConnections {
		return fmt.Errorf("maxIdleConns (%d) cannot be greater than maxConnections (%d)", c.MaxIdleConns, c.MaxConnections)
	}
	if c.ConnMaxLifetime < 0 {
		return fmt.Errorf("connMaxLifetime cannot be negative, got %v", c.ConnMaxLifetime)
	}
	if c.ConnMaxIdleTime < 0 {
		return fmt.Errorf("connMaxIdleTime cannot be negative, got %v", c.ConnMaxIdleTime)
	}

	switch strings.ToUpper(c.JournalMode) {
	case "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
	default:
		return fmt.Errorf("invalid journalMode: %s", c.JournalMode)
	}
	if c.IsInMemory() && strings.EqualFold(c.JournalMode, "WAL") {
		return fmt.Errorf("journalMode cannot be WAL when using in-memory database")
	}

	switch strings.ToUpper(c.SynchronousMode) {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("invalid synchronousMode: %s", c.SynchronousMode)
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("cacheSize must be positive, got %d", c.CacheSize)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busyTimeout cannot be negative, got %d", c.BusyTimeout)
	}

	switch c.Environment {
	case "development", "test", "production":
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	return nil
}

// GetConnectionString builds the mattn/go-sqlite3 DSN.
// Only the query parameters are URL-encoded; the path is passed through except for ? and &.
func (c *Config) GetConnectionString() string {
	values := url.Values{}

	if c.ForeignKeys {
		values.Set("_foreign_keys", "on")
	} else {
		values.Set("_foreign_keys", "off")
	}
	values.Set("_journal_mode", c.JournalMode)
	values.Set("_synchronous", c.SynchronousMode)
	// Negative cache size is interpreted as KB
	values.Set("_cache_size", fmt.Sprintf("%d", -c.CacheSize))
	values.Set("_busy_timeout", fmt.Sprintf("%d", c.BusyTimeout))
	// Immediate transactions take the write lock up front instead of failing on upgrade
	values.Set("_txlock", "immediate")

	path := c.Path
	if strings.ContainsAny(path, "?&") {
		path = strings.ReplaceAll(path, "?", "%3F")
		path = strings.ReplaceAll(path, "&", "%26")
	}

	return path + "?" + values.Encode()
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// IsInMemory returns true if the database is configured to use in-memory storage
func (c *Config) IsInMemory() bool {
	return c.Path == ":memory:"
}

// IsTest returns true if the environment is set to test
func (c *Config) IsTest() bool {
	return c.Environment == "test"
}

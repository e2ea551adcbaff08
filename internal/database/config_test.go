package database

import (
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate_DatabasePath(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		config := DefaultConfig()
		config.Path = ""
		if err := config.Validate(); err == nil || !strings.Contains(err.Error(), "database path cannot be empty") {
			t.Errorf("Expected empty path error, got %v", err)
		}
	})

	t.Run("creates missing directory", func(t *testing.T) {
		config := DefaultConfig()
		config.Path = filepath.Join(t.TempDir(), "nested", "dir", "wellbeing.db")
		if err := config.Validate(); err != nil {
			t.Fatalf("Expected valid config, got %v", err)
		}
	})

	t.Run("in-memory", func(t *testing.T) {
		if err := TestConfig().Validate(); err != nil {
			t.Errorf("TestConfig should validate, got %v", err)
		}
	})
}

func TestConfig_Validate_Settings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		modifier func(*Config)
		wantErr  string
	}{
		{"zero max connections", func(c *Config) { c.MaxConnections = 0 }, "maxConnections must be positive"},
		{"negative idle", func(c *Config) { c.MaxIdleConns = -1 }, "maxIdleConns cannot be negative"},
		{"idle above max", func(c *Config) { c.MaxIdleConns = c.MaxConnections + 1 }, "cannot be greater than maxConnections"},
		{"negative lifetime", func(c *Config) { c.ConnMaxLifetime = -time.Second }, "connMaxLifetime cannot be negative"},
		{"negative idle time", func(c *Config) { c.ConnMaxIdleTime = -time.Second }, "connMaxIdleTime cannot be negative"},
		{"bad journal", func(c *Config) { c.JournalMode = "FAST" }, "invalid journalMode"},
		{"wal in memory", func(c *Config) { c.Path = ":memory:"; c.JournalMode = "WAL" }, "journalMode cannot be WAL"},
		{"bad sync", func(c *Config) { c.SynchronousMode = "SOMETIMES" }, "invalid synchronousMode"},
		{"zero cache", func(c *Config) { c.CacheSize = 0 }, "cacheSize must be positive"},
		{"negative busy", func(c *Config) { c.BusyTimeout = -1 }, "busyTimeout cannot be negative"},
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"lowercase journal ok", func(c *Config) { c.JournalMode = "wal" }, ""},
		{"lowercase sync ok", func(c *Config) { c.SynchronousMode = "full" }, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config := DefaultConfig()
			config.Path = filepath.Join(t.TempDir(), "test.db")
			tt.modifier(config)

			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_LoadFromEnvironment(t *testing.T) {
	t.Setenv("WELLBEING_DB_PATH", "/tmp/override.db")
	t.Setenv("WELLBEING_DB_MAX_CONNECTIONS", "3")
	t.Setenv("WELLBEING_DB_AUTO_MIGRATE", "off")
	t.Setenv("WELLBEING_DB_JOURNAL_MODE", "delete")
	t.Setenv("WELLBEING_DB_BUSY_TIMEOUT", "250")
	t.Setenv("WELLBEING_DB_FORCE_SINGLE_CONNECTION", "yes")
	t.Setenv("WELLBEING_ENVIRONMENT", "development")

	config := DefaultConfig()
	if err := config.LoadFromEnvironment(); err != nil {
		t.Fatalf("LoadFromEnvironment failed: %v", err)
	}

	if config.Path != "/tmp/override.db" {
		t.Errorf("Path = %q", config.Path)
	}
	if config.MaxConnections != 3 {
		t.Errorf("MaxConnections = %d", config.MaxConnections)
	}
	if config.AutoMigrate {
		t.Error("AutoMigrate should be false")
	}
	if config.JournalMode != "DELETE" {
		t.Errorf("JournalMode = %q", config.JournalMode)
	}
	if config.BusyTimeout != 250 {
		t.Errorf("BusyTimeout = %d", config.BusyTimeout)
	}
	if !config.ForceSingleConnection {
		t.Error("ForceSingleConnection should be true")
	}
	if config.Environment != "development" {
		t.Errorf("Environment = %q", config.Environment)
	}
}

func TestConfig_LoadFromEnvironment_InvalidNumber(t *testing.T) {
	t.Setenv("WELLBEING_DB_MAX_CONNECTIONS", "many")

	config := DefaultConfig()
	if err := config.LoadFromEnvironment(); err == nil {
		t.Fatal("Expected error for non-numeric max connections")
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value   string
		want    bool
		present bool
	}{
		{"", false, false},
		{"true", true, true},
		{"0", false, true},
		{"Yes", true, true},
		{"OFF", false, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("WELLBEING_TEST_BOOL", tt.value)
			got, present := parseBoolEnv("WELLBEING_TEST_BOOL")
			if got != tt.want || present != tt.present {
				t.Errorf("parseBoolEnv(%q) = (%v, %v), want (%v, %v)", tt.value, got, present, tt.want, tt.present)
			}
		})
	}
}

func TestConfig_GetConnectionString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		modifier  func(*Config)
		expected  map[string]string
		pathCheck func(string) bool
	}{
		{
			name: "default file database",
			modifier: func(c *Config) {
				c.Path = "wellbeing.db"
			},
			expected: map[string]string{
				"_foreign_keys": "on",
				"_journal_mode": "WAL",
				"_synchronous":  "NORMAL",
				"_cache_size":   "-2000",
				"_busy_timeout": "5000",
				"_txlock":       "immediate",
			},
			pathCheck: func(s string) bool { return strings.HasPrefix(s, "wellbeing.db?") },
		},
		{
			name: "in-memory database",
			modifier: func(c *Config) {
				*c = *TestConfig()
				c.ForeignKeys = false
			},
			expected: map[string]string{
				"_foreign_keys": "off",
				"_journal_mode": "MEMORY",
				"_synchronous":  "OFF",
				"_cache_size":   "-1000",
				"_busy_timeout": "1000",
				"_txlock":       "immediate",
			},
			pathCheck: func(s string) bool { return strings.HasPrefix(s, ":memory:?") },
		},
		{
			name: "path with special characters",
			modifier: func(c *Config) {
				c.Path = "my data?.db&x=1"
			},
			expected: map[string]string{
				"_foreign_keys": "on",
				"_journal_mode": "WAL",
				"_synchronous":  "NORMAL",
				"_cache_size":   "-2000",
				"_busy_timeout": "5000",
				"_txlock":       "immediate",
			},
			pathCheck: func(s string) bool { return strings.HasPrefix(s, "my data%3F.db%26x=1?") },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config := DefaultConfig()
			tt.modifier(config)

			connStr := config.GetConnectionString()
			if !tt.pathCheck(connStr) {
				t.Errorf("Connection string path format check failed: %s", connStr)
			}

			parts := strings.SplitN(connStr, "?", 2)
			if len(parts) != 2 {
				t.Fatalf("Connection string has no query: %s", connStr)
			}
			values, err := url.ParseQuery(parts[1])
			if err != nil {
				t.Fatalf("Failed to parse query parameters: %v", err)
			}

			for key, expectedValue := range tt.expected {
				if actual := values.Get(key); actual != expectedValue {
					t.Errorf("Expected %s=%s, got %s=%s", key, expectedValue, key, actual)
				}
			}
			for key := range values {
				if _, ok := tt.expected[key]; !ok {
					t.Errorf("Unexpected parameter in connection string: %s=%s", key, values.Get(key))
				}
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()
	clone.Path = "other.db"

	if original.Path == clone.Path {
		t.Error("Clone should not share state with the original")
	}
}

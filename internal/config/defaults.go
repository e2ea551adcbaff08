package config

import (
	"time"

	"wellbeing/internal/database"
	"wellbeing/internal/types"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	db := database.DefaultConfig()
	db.Path = "~/.local/share/wellbeing/wellbeing.db"

	return &Config{
		Sampler: SamplerConfig{
			Interval:   10 * time.Second,
			Timeout:    2 * time.Second,
			DeviceType: types.DefaultDeviceType,
		},
		Aggregator: AggregatorConfig{
			Interval:       5 * time.Minute,
			MaxRunDuration: 2 * time.Minute,
			BackfillDays:   30,
		},
		Categories: CategoriesConfig{
			Path: "~/.config/wellbeing/categories.json",
		},
		Diagnostics: DiagnosticsConfig{
			ListenAddr:      "",
			NoEventsWarning: time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Timezone: "",
		Database: db,
	}
}

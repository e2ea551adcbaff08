package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"wellbeing/internal/app"
	"wellbeing/internal/config"
)

// loadConfig reads the --config file, falling back to defaults when it does not exist
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	path := config.DefaultConfigPath
	if globals != nil && globals.Config != "" {
		path = globals.Config
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if globals != nil && globals.LogLevel != "" {
		cfg.Logging.Level = globals.LogLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openApp builds the full pipeline. Callers must Close it.
func openApp(ctx context.Context, globals *GlobalFlags) (*app.App, *config.Config, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, app.Options{LogOutput: os.Stderr})
	if err != nil {
		return nil, nil, fmt.Errorf("open pipeline: %w", err)
	}
	return a, cfg, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func wantJSON(globals *GlobalFlags) bool {
	return globals != nil && globals.JSON
}

// formatSeconds renders a duration in seconds as "1h 02m" or "45s".
func formatSeconds(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

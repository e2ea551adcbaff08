package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"wellbeing/internal/app"
)

// Execute runs the pipeline until SIGINT or SIGTERM
func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.Diagnostics.ListenAddr = c.Listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{LogOutput: os.Stderr})
	if err != nil {
		return err
	}
	defer a.Close()

	a.Logger().Info("Starting wellbeing", "version", c.version)

	return a.Run(ctx)
}

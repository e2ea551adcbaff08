package cli

import (
	"context"
	"fmt"
)

// Execute runs ANALYZE and VACUUM on the configured database
func (c *OptimizeCommand) Execute(args []string) error {
	ctx := context.Background()

	a, cfg, err := openApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Database().Optimize(ctx); err != nil {
		return err
	}
	fmt.Printf("Optimized %s\n", cfg.Database.Path)
	return nil
}

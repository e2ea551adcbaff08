package cli

import (
	"fmt"
	"os"

	"wellbeing/internal/config"
)

// Execute writes the default config, refusing to overwrite without --force
func (c *InitCommand) Execute(args []string) error {
	path := config.DefaultConfigPath
	if c.globals != nil && c.globals.Config != "" {
		path = c.globals.Config
	}

	expanded, err := config.ExpandPath(path)
	if err != nil {
		return err
	}
	if !c.Force {
		if _, err := os.Stat(expanded); err == nil {
			return fmt.Errorf("config file %s already exists, use --force to overwrite", path)
		}
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}

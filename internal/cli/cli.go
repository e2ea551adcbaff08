// Package cli implements the wellbeing command line.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Run              *RunCommand
	Aggregate        *AggregateCommand
	Status           *StatusCommand
	CategoriesList   *CategoriesListCommand
	CategoriesAdd    *CategoriesAddCommand
	CategoriesRemove *CategoriesRemoveCommand
	Usage            *UsageCommand
	Optimize         *OptimizeCommand
	Init             *InitCommand
}

// categoriesCommand only groups its subcommands
type categoriesCommand struct{}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands, error) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "wellbeing"
	parser.LongDescription = "Samples the focused application and rolls activity into hourly, daily and category summaries."

	cmds := &commands{
		Run:              &RunCommand{globals: &globals, version: version},
		Aggregate:        &AggregateCommand{globals: &globals},
		Status:           &StatusCommand{globals: &globals},
		CategoriesList:   &CategoriesListCommand{globals: &globals},
		CategoriesAdd:    &CategoriesAddCommand{globals: &globals},
		CategoriesRemove: &CategoriesRemoveCommand{globals: &globals},
		Usage:            &UsageCommand{globals: &globals},
		Optimize:         &OptimizeCommand{globals: &globals},
		Init:             &InitCommand{globals: &globals},
	}

	add := func(name, short, long string, data interface{}) (*goflags.Command, error) {
		return parser.AddCommand(name, short, long, data)
	}

	if _, err := add("run", "Start the pipeline daemon", "Sample the focused window and aggregate on a schedule until interrupted.", cmds.Run); err != nil {
		return nil, nil, nil, err
	}
	if _, err := add("aggregate", "Run one aggregation pass", "Aggregate the default range, or re-aggregate --from/--to after a category change.", cmds.Aggregate); err != nil {
		return nil, nil, nil, err
	}
	if _, err := add("status", "Show pipeline health", "Show component health and pipeline warnings.", cmds.Status); err != nil {
		return nil, nil, nil, err
	}
	if _, err := add("usage", "Show usage summaries", "Print daily, weekly, hourly, top-app, category-map or summary reads.", cmds.Usage); err != nil {
		return nil, nil, nil, err
	}
	if _, err := add("optimize", "Optimize the database", "Run ANALYZE and VACUUM on the database.", cmds.Optimize); err != nil {
		return nil, nil, nil, err
	}
	if _, err := add("init", "Write a default config file", "Write the default configuration to the --config path.", cmds.Init); err != nil {
		return nil, nil, nil, err
	}

	cats, err := add("categories", "Manage the category mapping", "List, add or remove app-to-category rules. Changes apply on the next aggregation run.", &categoriesCommand{})
	if err != nil {
		return nil, nil, nil, err
	}
	cats.SubcommandsOptional = false
	if _, err := cats.AddCommand("list", "List categories", "List categories and their apps.", cmds.CategoriesList); err != nil {
		return nil, nil, nil, err
	}
	if _, err := cats.AddCommand("add", "Map an app to a category", "Map an app to a category, moving it out of any other category.", cmds.CategoriesAdd); err != nil {
		return nil, nil, nil, err
	}
	if _, err := cats.AddCommand("remove", "Unmap an app", "Remove an app from a category.", cmds.CategoriesRemove); err != nil {
		return nil, nil, nil, err
	}

	return parser, &globals, cmds, nil
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// --version is valid without a subcommand
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("wellbeing %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _, err := buildParser(version)
	if err != nil {
		return err
	}

	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"wellbeing/internal/categories"
	"wellbeing/internal/types"
)

// mappingSource opens the category file named by the config, seeding the
// defaults when it does not exist yet
func mappingSource(globals *GlobalFlags) (*categories.FileSource, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}
	src := categories.NewFileSource(cfg.Categories.Path)
	if _, err := src.WriteDefaults(); err != nil {
		return nil, err
	}
	return src, nil
}

// Execute prints every category and its apps
func (c *CategoriesListCommand) Execute(args []string) error {
	src, err := mappingSource(c.globals)
	if err != nil {
		return err
	}
	infos, err := src.Load(context.Background())
	if err != nil {
		return err
	}

	if wantJSON(c.globals) {
		return printJSON(infos)
	}

	fmt.Printf("Categories (%s)\n", src.Path())
	for _, info := range infos {
		apps := "(none)"
		if len(info.Apps) > 0 {
			apps = strings.Join(info.Apps, ", ")
		}
		fmt.Printf("  %-16s %s\n", info.Name, apps)
	}
	return nil
}

// Execute adds the rule to the mapping file
func (c *CategoriesAddCommand) Execute(args []string) error {
	src, err := mappingSource(c.globals)
	if err != nil {
		return err
	}
	rule := types.CategoryRule{Pattern: c.App, Category: c.Category}
	if err := src.AddRule(context.Background(), rule); err != nil {
		return err
	}
	fmt.Printf("Mapped %q to %s. Run 'wellbeing aggregate --from <date>' to recategorize past days.\n", c.App, c.Category)
	return nil
}

// Execute removes the rule from the mapping file
func (c *CategoriesRemoveCommand) Execute(args []string) error {
	src, err := mappingSource(c.globals)
	if err != nil {
		return err
	}
	rule := types.CategoryRule{Pattern: c.App, Category: c.Category}
	if err := src.RemoveRule(context.Background(), rule); err != nil {
		return err
	}
	fmt.Printf("Removed %q from %s.\n", c.App, c.Category)
	return nil
}

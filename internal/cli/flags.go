package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config   string `long:"config" short:"c" description:"Path to config file" default:"~/.config/wellbeing/config.yaml"`
	JSON     bool   `long:"json" description:"Output in JSON format"`
	LogLevel string `long:"log-level" description:"Override log level (debug, info, warn, error)"`
	Version  bool   `long:"version" description:"Show version and exit"`
}

// RunCommand starts the sampling and aggregation daemon.
type RunCommand struct {
	Listen string `long:"listen" description:"Override diagnostics listen address, e.g. 127.0.0.1:9847"`

	globals *GlobalFlags
	version string
}

// AggregateCommand runs one aggregation pass, over the default range or an explicit backfill.
type AggregateCommand struct {
	From string `long:"from" description:"First date to re-aggregate (YYYY-MM-DD)"`
	To   string `long:"to" description:"Last date to re-aggregate (YYYY-MM-DD), defaults to --from"`

	globals *GlobalFlags
}

// StatusCommand prints the diagnostics report.
type StatusCommand struct {
	globals *GlobalFlags
}

// CategoriesListCommand prints the category mapping.
type CategoriesListCommand struct {
	globals *GlobalFlags
}

// CategoriesAddCommand maps an app to a category.
type CategoriesAddCommand struct {
	App      string `long:"app" description:"App or process name to map" required:"true"`
	Category string `long:"category" description:"Target category" required:"true"`

	globals *GlobalFlags
}

// CategoriesRemoveCommand removes an app from a category.
type CategoriesRemoveCommand struct {
	App      string `long:"app" description:"App or process name to unmap" required:"true"`
	Category string `long:"category" description:"Category the app is mapped to" required:"true"`

	globals *GlobalFlags
}

// UsageCommand prints one of the query-layer read shapes.
type UsageCommand struct {
	Kind   string `long:"kind" description:"Report kind" choice:"daily" choice:"weekly" choice:"hourly" choice:"top" choice:"categories" choice:"summary" default:"daily"`
	Date   string `long:"date" description:"Date (YYYY-MM-DD); start date for weekly, end date for top and summary. Defaults to today"`
	Days   int    `long:"days" description:"Window length in days for top and summary" default:"7"`
	Limit  int    `long:"limit" description:"Maximum apps for top" default:"10"`
	Device string `long:"device" description:"Device type filter; empty means all devices"`

	globals *GlobalFlags
}

// OptimizeCommand runs database maintenance.
type OptimizeCommand struct {
	globals *GlobalFlags
}

// InitCommand writes a default config file.
type InitCommand struct {
	Force bool `long:"force" description:"Overwrite an existing config file"`

	globals *GlobalFlags
}

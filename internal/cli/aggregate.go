package cli

import (
	"context"
	"fmt"
	"time"

	"wellbeing/internal/types"
)

// Execute runs one aggregation pass and prints the recorded run
func (c *AggregateCommand) Execute(args []string) error {
	ctx := context.Background()

	a, _, err := openApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	var run *types.AggregationRun
	if c.From != "" || c.To != "" {
		from, to := c.From, c.To
		if from == "" {
			from = to
		}
		if to == "" {
			to = from
		}
		run, err = a.Aggregator().Backfill(ctx, from, to)
	} else {
		r, rangeErr := a.Aggregator().DefaultRange(ctx)
		if rangeErr != nil {
			return rangeErr
		}
		if r.IsZero() {
			fmt.Println("Nothing to aggregate: no events recorded yet.")
			return nil
		}
		run, err = a.Aggregator().Run(ctx, r)
	}
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	if wantJSON(c.globals) {
		return printJSON(run)
	}

	fmt.Printf("Run %s %s\n", run.ID, run.Status)
	fmt.Printf("  Range:       %s to %s\n", run.Range.From.Format(time.DateTime), run.Range.To.Format(time.DateTime))
	fmt.Printf("  Events:      %d\n", run.EventCount)
	fmt.Printf("  Hourly rows: %d\n", run.HourlyRows)
	fmt.Printf("  Daily rows:  %d\n", run.DailyRows)
	fmt.Printf("  Categories:  %d\n", run.CategoryRows)
	if run.UnresolvedApps > 0 {
		fmt.Printf("  Uncategorized apps: %d\n", run.UnresolvedApps)
	}
	return nil
}

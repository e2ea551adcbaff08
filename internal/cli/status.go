package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"wellbeing/internal/diagnostics"
)

// Execute prints component health and pipeline warnings
func (c *StatusCommand) Execute(args []string) error {
	ctx := context.Background()

	a, _, err := openApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.Reporter().Status(ctx)
	if wantJSON(c.globals) {
		return printJSON(report)
	}
	printReport(report)
	return nil
}

func printReport(report *diagnostics.Report) {
	fmt.Printf("Status at %s\n\n", report.Timestamp.Format("2006-01-02 15:04:05 MST"))
	for _, comp := range report.Components {
		fmt.Printf("%-18s %s\n", comp.Name, strings.ToUpper(string(comp.Status)))

		keys := make([]string, 0, len(comp.Details))
		for k := range comp.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %-22s %v\n", k+":", comp.Details[k])
		}
	}

	if len(report.Warnings) == 0 {
		fmt.Println("\nNo warnings.")
		return
	}
	fmt.Println("\nWarnings:")
	for _, w := range report.Warnings {
		fmt.Printf("  - %s\n", w)
	}
}

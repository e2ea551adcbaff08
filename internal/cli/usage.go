package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wellbeing/internal/types"
)

// Execute prints the requested usage read
func (c *UsageCommand) Execute(args []string) error {
	ctx := context.Background()

	a, cfg, err := openApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	date := c.Date
	if date == "" {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		date = time.Now().In(loc).Format(time.DateOnly)
	}

	usage := a.Usage()
	var result interface{}
	switch c.Kind {
	case "weekly":
		result, err = usage.WeeklyUsage(ctx, c.Device, date)
	case "hourly":
		result, err = usage.HourlyUsage(ctx, c.Device, date)
	case "top":
		result, err = usage.TopApps(ctx, c.Device, date, c.Days, c.Limit)
	case "categories":
		result, err = usage.CategoryMap(ctx)
	case "summary":
		result, err = usage.SummaryStats(ctx, c.Device, date, c.Days)
	default:
		result, err = usage.DailyUsage(ctx, c.Device, date)
	}
	if err != nil {
		return err
	}

	if wantJSON(c.globals) {
		return printJSON(result)
	}

	switch v := result.(type) {
	case *types.DailyUsage:
		printDaily(v)
	case *types.WeeklyUsage:
		fmt.Printf("Week %s to %s\n", v.StartDate, v.EndDate)
		for _, day := range v.DailyBreakdown {
			fmt.Printf("  %s  %s\n", day.Date, formatSeconds(day.TotalScreenTime))
		}
		printShares("Totals", v.WeeklyTotals)
	case *types.HourlyUsage:
		fmt.Printf("Hourly usage for %s\n", v.Date)
		for _, slot := range v.HourlyData {
			if slot.TotalSeconds == 0 {
				continue
			}
			fmt.Printf("  %02d:00  %s\n", slot.Hour, formatSeconds(slot.TotalSeconds))
		}
	case *types.TopApps:
		printShares(fmt.Sprintf("Top apps (%d used)", v.TotalApps), v.Apps)
	case *types.CategoryMap:
		names := make([]string, 0, len(v.Categories))
		for name := range v.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-16s %v\n", name, v.Categories[name].Apps)
		}
	case *types.SummaryStats:
		fmt.Printf("Summary %s to %s (%d days)\n", v.Period.StartDate, v.Period.EndDate, v.Period.Days)
		fmt.Printf("  Screen time:    %s\n", formatSeconds(v.Totals.ScreenTimeSeconds))
		fmt.Printf("  Daily average:  %s\n", formatSeconds(v.Totals.AverageDailySeconds))
		fmt.Printf("  Apps used:      %d\n", v.Insights.UniqueAppsUsed)
		if v.Insights.MostProductiveDay.Date != "" {
			fmt.Printf("  Most productive: %s (%s of work)\n",
				v.Insights.MostProductiveDay.Date, formatSeconds(v.Insights.MostProductiveDay.WorkSeconds))
		}
	}
	return nil
}

func printDaily(d *types.DailyUsage) {
	fmt.Printf("Usage for %s: %s\n", d.Date, formatSeconds(d.TotalScreenTime))
	printShares("Categories", d.Categories)
	printShares("Top apps", d.TopApps)
}

func printShares(title string, shares []types.UsageShare) {
	fmt.Printf("%s:\n", title)
	if len(shares) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, s := range shares {
		label := s.AppName
		if label == "" {
			label = s.Category
		}
		fmt.Printf("  %-24s %10s  %5.1f%%\n", label, formatSeconds(s.TotalSeconds), s.Percentage)
	}
}

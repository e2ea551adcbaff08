package aggregator

import (
	"sort"
	"time"

	"wellbeing/internal/categories"
	"wellbeing/internal/sampler"
	"wellbeing/internal/types"
)

type hourKey struct {
	date   string
	hour   int
	device string
	app    string
}

type appKey struct {
	date   string
	device string
	app    string
}

type rollupResult struct {
	hourly []types.HourlyBucket
	// unresolved lists the distinct app names that fell back to Uncategorized
	unresolved []string
}

// buildRollup groups events into hourly buckets keyed by canonical app
// name, so "Firefox" and "firefox-bin" land in one bucket. Every bucket of
// one (date, device, app) shares a category, resolved from the group's most
// frequent process name.
func buildRollup(events []types.Event, rules *categories.RuleSet, loc *time.Location) rollupResult {
	sums := make(map[hourKey]*types.HourlyBucket)
	processes := make(map[appKey]map[string]int)

	for _, e := range events {
		local := e.Timestamp.In(loc)
		date := local.Format(types.DateLayout)
		app := sampler.CanonicalAppName(e.AppName)
		hk := hourKey{date: date, hour: local.Hour(), device: e.DeviceType, app: app}

		b, ok := sums[hk]
		if !ok {
			b = &types.HourlyBucket{Date: date, Hour: hk.hour, DeviceType: e.DeviceType, AppName: app}
			sums[hk] = b
		}
		b.TotalSeconds += e.DurationSeconds
		b.EventCount++

		ak := appKey{date: date, device: e.DeviceType, app: app}
		if processes[ak] == nil {
			processes[ak] = make(map[string]int)
		}
		processes[ak][e.ProcessName]++
	}

	resolved := make(map[appKey]string, len(processes))
	unresolved := make(map[string]struct{})
	for ak, counts := range processes {
		category, ok := rules.Match(ak.app, dominantProcess(counts))
		if !ok {
			unresolved[ak.app] = struct{}{}
		}
		resolved[ak] = category
	}

	result := rollupResult{hourly: make([]types.HourlyBucket, 0, len(sums))}
	for hk, b := range sums {
		b.Category = resolved[appKey{date: hk.date, device: hk.device, app: hk.app}]
		result.hourly = append(result.hourly, *b)
	}
	sort.Slice(result.hourly, func(i, j int) bool {
		x, y := result.hourly[i], result.hourly[j]
		if x.Date != y.Date {
			return x.Date < y.Date
		}
		if x.Hour != y.Hour {
			return x.Hour < y.Hour
		}
		if x.DeviceType != y.DeviceType {
			return x.DeviceType < y.DeviceType
		}
		return x.AppName < y.AppName
	})

	for app := range unresolved {
		result.unresolved = append(result.unresolved, app)
	}
	sort.Strings(result.unresolved)
	return result
}

// dominantProcess returns the most frequent process name, the smallest on ties
func dominantProcess(counts map[string]int) string {
	best, bestCount := "", -1
	for name, n := range counts {
		if n > bestCount || (n == bestCount && name < best) {
			best, bestCount = name, n
		}
	}
	return best
}

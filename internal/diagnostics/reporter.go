// Package diagnostics reports pipeline health from read-only inspection of
// the store, the category resolver and the sampler heartbeat.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"time"

	"wellbeing/internal/categories"
	"wellbeing/internal/clock"
	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
	"wellbeing/internal/metrics"
	"wellbeing/internal/sampler"
	"wellbeing/internal/types"
)

// Status is a component health state
type Status string

const (
	StatusOK      Status = "ok"
	StatusStale   Status = "stale"
	StatusOffline Status = "offline"
	StatusNoData  Status = "no-data"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// AllStatuses lists every Status, used to reset per-status gauges
var AllStatuses = []string{
	string(StatusOK), string(StatusStale), string(StatusOffline),
	string(StatusNoData), string(StatusError), string(StatusUnknown),
}

// Component names
const (
	ComponentDatabase        = "database"
	ComponentCollector       = "collector"
	ComponentProcessorHourly = "processor_hourly"
	ComponentProcessorDaily  = "processor_daily"
	ComponentCategories      = "categories"
)

// ComponentStatus is the health of one pipeline component
type ComponentStatus struct {
	Name     string                 `json:"name"`
	Status   Status                 `json:"status"`
	Details  map[string]interface{} `json:"details"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Report is a point-in-time health snapshot
type Report struct {
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentStatus `json:"components"`
	Warnings   []string          `json:"warnings"`
}

// Component returns the named component, or nil
func (r *Report) Component(name string) *ComponentStatus {
	for i := range r.Components {
		if r.Components[i].Name == name {
			return &r.Components[i]
		}
	}
	return nil
}

// Store is the read-only store surface the reporter inspects
type Store interface {
	HealthCheck(ctx context.Context) error
	Stats(ctx context.Context, since time.Time) (*types.StoreStats, error)
	LastSuccessfulRun(ctx context.Context) (*types.AggregationRun, error)
	LastRun(ctx context.Context) (*types.AggregationRun, error)
}

// RuleState exposes the outcome of the last rule reload
type RuleState interface {
	State() categories.LoadState
}

// HeartbeatSource exposes the sampler's in-process state
type HeartbeatSource interface {
	Heartbeat() sampler.Heartbeat
}

// Config holds the cadences the freshness thresholds derive from
type Config struct {
	SampleInterval      time.Duration
	AggregationInterval time.Duration
	// NoEventsWarning is the window without events that raises a pipeline warning
	NoEventsWarning time.Duration
	DatabasePath    string
}

// Reporter builds health reports. It never writes.
type Reporter struct {
	store     Store
	rules     RuleState
	heartbeat HeartbeatSource
	clock     clock.Clock
	cfg       Config
	logger    logging.Logger
	metrics   *metrics.Metrics
}

// NewReporter creates a reporter. rules and heartbeat may be nil when the
// caller runs outside the daemon; their fields then report unknown.
func NewReporter(store Store, rules RuleState, heartbeat HeartbeatSource, clk clock.Clock, cfg Config, logger logging.Logger, m *metrics.Metrics) *Reporter {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 10 * time.Second
	}
	if cfg.AggregationInterval <= 0 {
		cfg.AggregationInterval = 5 * time.Minute
	}
	if cfg.NoEventsWarning <= 0 {
		cfg.NoEventsWarning = time.Hour
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Reporter{
		store:     store,
		rules:     rules,
		heartbeat: heartbeat,
		clock:     clk,
		cfg:       cfg,
		logger:    logging.With(logger, "component", "diagnostics"),
		metrics:   m,
	}
}

// Status inspects every component and collects pipeline warnings
func (r *Reporter) Status(ctx context.Context) *Report {
	now := r.clock.Now()
	report := &Report{Timestamp: now, Warnings: []string{}}

	dbStatus, stats := r.database(ctx, now)
	report.Components = append(report.Components,
		dbStatus,
		r.collector(now, stats),
	)
	hourly, daily := r.processors(ctx, now, stats)
	report.Components = append(report.Components, hourly, daily, r.categoryRules())

	for _, c := range report.Components {
		r.metrics.SetComponentStatus(c.Name, string(c.Status), AllStatuses)
		if c.Status != StatusOK {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Component '%s' has status: %s", c.Name, c.Status))
		}
	}

	if stats != nil {
		if stats.EventCount > 0 && stats.EventsSince == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("no events in the last %s", humanDuration(r.cfg.NoEventsWarning)))
		}
		if n := stats.UncategorizedCount; n > 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%d apps unresolved to a category, defaulted to %s", n, types.UncategorizedCategory))
		}
	}

	return report
}

func (r *Reporter) database(ctx context.Context, now time.Time) (ComponentStatus, *types.StoreStats) {
	c := ComponentStatus{Name: ComponentDatabase, Details: map[string]interface{}{}}
	if r.cfg.DatabasePath != "" {
		c.Details["path"] = r.cfg.DatabasePath
		if info, err := os.Stat(r.cfg.DatabasePath); err == nil {
			c.Details["size_bytes"] = info.Size()
		}
	}

	if err := r.store.HealthCheck(ctx); err != nil {
		c.Status = StatusError
		c.Details["error"] = err.Error()
		logging.LogError(r.logger, err, "Reporter.HealthCheck", nil)
		return c, nil
	}

	stats, err := r.store.Stats(ctx, now.Add(-r.cfg.NoEventsWarning))
	if err != nil {
		c.Status = StatusError
		c.Details["error"] = err.Error()
		logging.LogError(r.logger, err, "Reporter.Stats", nil)
		return c, nil
	}

	c.Details["event_count"] = stats.EventCount
	c.Details["distinct_apps"] = stats.DistinctApps
	c.Details["hourly_rows"] = stats.HourlyRows
	c.Details["daily_rows"] = stats.DailyRows
	c.Details["category_rows"] = stats.CategoryRows
	if stats.UncategorizedCount > 0 {
		c.Details["uncategorized_count"] = stats.UncategorizedCount
		c.Details["uncategorized_apps"] = stats.UncategorizedApps
	}

	if stats.EventCount == 0 && stats.HourlyRows == 0 && stats.DailyRows == 0 {
		c.Status = StatusNoData
	} else {
		c.Status = StatusOK
	}
	return c, stats
}

func (r *Reporter) collector(now time.Time, stats *types.StoreStats) ComponentStatus {
	c := ComponentStatus{Name: ComponentCollector, Details: map[string]interface{}{
		"interval_seconds": r.cfg.SampleInterval.Seconds(),
	}}

	if r.heartbeat != nil {
		hb := r.heartbeat.Heartbeat()
		c.Details["consecutive_failures"] = hb.ConsecutiveFailures
		c.Details["recorded"] = hb.Recorded
		c.Details["skipped"] = hb.Skipped
		if hb.ConsecutiveFailures > 0 {
			c.Warnings = append(c.Warnings, fmt.Sprintf("%d consecutive sampling failures: %s", hb.ConsecutiveFailures, hb.LastError))
		}
	}

	switch {
	case stats == nil:
		c.Status = StatusUnknown
	case stats.EventCount == 0:
		c.Status = StatusNoData
	default:
		age := now.Sub(stats.LatestEvent)
		c.Status = freshness(age, r.cfg.SampleInterval)
		c.Details["last_event_timestamp"] = stats.LatestEvent
		c.Details["last_event_age_seconds"] = age.Seconds()
		c.Details["events_in_window"] = stats.EventsSince
	}
	return c
}

func (r *Reporter) processors(ctx context.Context, now time.Time, stats *types.StoreStats) (ComponentStatus, ComponentStatus) {
	hourly := ComponentStatus{Name: ComponentProcessorHourly, Details: map[string]interface{}{}}
	daily := ComponentStatus{Name: ComponentProcessorDaily, Details: map[string]interface{}{}}

	if stats == nil {
		hourly.Status, daily.Status = StatusUnknown, StatusUnknown
		return hourly, daily
	}

	hourly.Details["hourly_rows"] = stats.HourlyRows
	daily.Details["daily_rows"] = stats.DailyRows
	daily.Details["category_rows"] = stats.CategoryRows
	if stats.LatestDailyDate != "" {
		daily.Details["latest_daily_date"] = stats.LatestDailyDate
	}

	var runWarnings []string
	if last, err := r.store.LastRun(ctx); err == nil && last.Status == types.RunStatusFailed {
		runWarnings = append(runWarnings, fmt.Sprintf("last aggregation run failed: %s", last.Error))
	}
	hourly.Warnings, daily.Warnings = runWarnings, runWarnings

	run, err := r.store.LastSuccessfulRun(ctx)
	switch {
	case repoerrors.IsNotFound(err):
		hourly.Status, daily.Status = StatusNoData, StatusNoData
		return hourly, daily
	case err != nil:
		hourly.Status, daily.Status = StatusError, StatusError
		hourly.Details["error"] = err.Error()
		daily.Details["error"] = err.Error()
		return hourly, daily
	}

	age := now.Sub(run.CompletedAt)
	status := freshness(age, r.cfg.AggregationInterval)
	for _, c := range []*ComponentStatus{&hourly, &daily} {
		c.Status = status
		c.Details["last_run_id"] = run.ID
		c.Details["last_run_completed"] = run.CompletedAt
		c.Details["age_seconds"] = age.Seconds()
		c.Details["covered_from"] = run.Range.From
		c.Details["covered_to"] = run.Range.To
	}
	hourly.Details["last_run_hourly_rows"] = run.HourlyRows
	daily.Details["last_run_daily_rows"] = run.DailyRows
	return hourly, daily
}

func (r *Reporter) categoryRules() ComponentStatus {
	c := ComponentStatus{Name: ComponentCategories, Details: map[string]interface{}{}}
	if r.rules == nil {
		c.Status = StatusUnknown
		return c
	}

	state := r.rules.State()
	c.Details["rule_count"] = state.RuleCount
	switch {
	case state.Err != nil:
		c.Status = StatusError
		c.Details["error"] = state.Err.Error()
	case state.LoadedAt.IsZero():
		c.Status = StatusUnknown
	case state.RuleCount == 0:
		c.Status = StatusNoData
	default:
		c.Status = StatusOK
	}
	if !state.LoadedAt.IsZero() {
		c.Details["loaded_at"] = state.LoadedAt
	}
	return c
}

// freshness is ok within 2 intervals, stale within 10, offline beyond
func freshness(age, interval time.Duration) Status {
	switch {
	case age <= 2*interval:
		return StatusOK
	case age <= 10*interval:
		return StatusStale
	default:
		return StatusOffline
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}

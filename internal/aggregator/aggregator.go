// Package aggregator rolls the raw event log into hourly, daily and category buckets.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"wellbeing/internal/categories"
	"wellbeing/internal/clock"
	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
	"wellbeing/internal/metrics"
	"wellbeing/internal/repository"
	"wellbeing/internal/types"
)

// ErrRunInProgress is returned by Tick when another run holds the guard
var ErrRunInProgress = errors.New("aggregation run already in progress")

// State is the aggregator's position in its run lifecycle
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Store is the part of the event store the aggregator reads and writes
type Store interface {
	repository.RollupStore
	EventsInRange(ctx context.Context, r types.TimeRange) ([]types.Event, error)
	EarliestEventTime(ctx context.Context) (time.Time, error)
}

// RuleLoader supplies one consistent rule snapshot per run
type RuleLoader interface {
	Reload(ctx context.Context) (*categories.RuleSet, error)
}

// Config controls run cadence and bounds
type Config struct {
	Interval       time.Duration
	MaxRunDuration time.Duration
	Location       *time.Location
	// BackfillDays caps how far back the default range reaches; 0 means no cap
	BackfillDays int
}

// Aggregator recomputes bucket rows from events. At most one run executes at a time.
type Aggregator struct {
	store   Store
	rules   RuleLoader
	clock   clock.Clock
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Metrics

	// guard holds a token while a run executes
	guard chan struct{}

	mu      sync.Mutex
	state   State
	lastRun *types.AggregationRun
}

// New creates an aggregator. Zero config fields default to a 5m interval,
// a 2m run bound and the local time zone.
func New(store Store, rules RuleLoader, clk clock.Clock, cfg Config, logger logging.Logger, m *metrics.Metrics) *Aggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MaxRunDuration <= 0 {
		cfg.MaxRunDuration = 2 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Aggregator{
		store:   store,
		rules:   rules,
		clock:   clk,
		cfg:     cfg,
		logger:  logging.With(logger, "component", "aggregator"),
		metrics: m,
		guard:   make(chan struct{}, 1),
		state:   StateIdle,
	}
}

// Name identifies the aggregator task
func (a *Aggregator) Name() string { return "aggregator" }

// Interval returns the scheduled run interval
func (a *Aggregator) Interval() time.Duration { return a.cfg.Interval }

// State returns the current lifecycle state
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// LastRun returns the most recent run executed by this process, or nil
func (a *Aggregator) LastRun() *types.AggregationRun {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastRun == nil {
		return nil
	}
	run := *a.lastRun
	return &run
}

// Tick runs over the default range. It returns ErrRunInProgress without
// waiting when another run is executing, and (nil, nil) when there is
// nothing to aggregate.
func (a *Aggregator) Tick(ctx context.Context) (*types.AggregationRun, error) {
	select {
	case a.guard <- struct{}{}:
	default:
		a.logger.Debug("Skipping tick, run in progress")
		return nil, ErrRunInProgress
	}
	defer func() { <-a.guard }()

	r, err := a.DefaultRange(ctx)
	if err != nil {
		return nil, err
	}
	if r.IsZero() {
		a.logger.Debug("No events to aggregate")
		return nil, nil
	}
	return a.run(ctx, r)
}

// Run aggregates r, widened to whole local days. It waits for any run in
// progress to finish first.
func (a *Aggregator) Run(ctx context.Context, r types.TimeRange) (*types.AggregationRun, error) {
	if r.IsZero() {
		return nil, repoerrors.HandleValidationError("Aggregator.Run", "range", r.From.String(), "range end must be after start")
	}

	select {
	case a.guard <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-a.guard }()

	return a.run(ctx, r)
}

// Backfill re-aggregates the inclusive date span [fromDate, toDate], given as YYYY-MM-DD
func (a *Aggregator) Backfill(ctx context.Context, fromDate, toDate string) (*types.AggregationRun, error) {
	from, err := time.ParseInLocation(types.DateLayout, fromDate, a.cfg.Location)
	if err != nil {
		return nil, repoerrors.HandleValidationError("Aggregator.Backfill", "from", fromDate, "expected YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(types.DateLayout, toDate, a.cfg.Location)
	if err != nil {
		return nil, repoerrors.HandleValidationError("Aggregator.Backfill", "to", toDate, "expected YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, repoerrors.HandleValidationError("Aggregator.Backfill", "to", toDate, "must not be before from")
	}
	return a.Run(ctx, types.TimeRange{From: from, To: nextDay(to)})
}

// DefaultRange starts at the last day covered by a completed run, or at the
// earliest event's day, and ends at the end of today. A zero range means there
// are no events yet.
func (a *Aggregator) DefaultRange(ctx context.Context) (types.TimeRange, error) {
	r, err := a.defaultRange(ctx)
	if err != nil || r.IsZero() || a.cfg.BackfillDays <= 0 {
		return r, err
	}
	y, m, d := r.To.Date()
	if limit := time.Date(y, m, d-a.cfg.BackfillDays, 0, 0, 0, 0, a.cfg.Location); r.From.Before(limit) {
		r.From = limit
	}
	return r, nil
}

func (a *Aggregator) defaultRange(ctx context.Context) (types.TimeRange, error) {
	now := a.clock.Now().In(a.cfg.Location)
	end := nextDay(startOfDay(now))

	through, err := a.store.CoveredThrough(ctx)
	switch {
	case err == nil:
		// The last covered day may have been partial when that run finished
		from := startOfDay(through.Add(-time.Nanosecond).In(a.cfg.Location))
		if from.After(startOfDay(now)) {
			from = startOfDay(now)
		}
		return types.TimeRange{From: from, To: end}, nil
	case !repoerrors.IsNotFound(err):
		return types.TimeRange{}, err
	}

	earliest, err := a.store.EarliestEventTime(ctx)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return types.TimeRange{}, nil
		}
		return types.TimeRange{}, err
	}
	return types.TimeRange{From: startOfDay(earliest.In(a.cfg.Location)), To: end}, nil
}

func (a *Aggregator) run(ctx context.Context, requested types.TimeRange) (*types.AggregationRun, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.MaxRunDuration)
	defer cancel()

	started := a.clock.Now()
	r := a.widen(requested)
	run := &types.AggregationRun{
		ID:        uuid.NewString(),
		StartedAt: started,
		Range:     r,
	}
	a.setState(StateRunning, nil)

	log := logging.With(a.logger, "run_id", run.ID)
	log.Info("Aggregation run started",
		"from", r.From.Format(types.DateLayout),
		"to", r.To.Add(-time.Nanosecond).Format(types.DateLayout))

	rules, err := a.rules.Reload(ctx)
	if err != nil {
		return nil, a.fail(ctx, log, run, err)
	}
	run.RuleSnapshotLen = rules.Len()
	a.metrics.SetCategoryRules(rules.Len())

	events, err := a.store.EventsInRange(ctx, r)
	if err != nil {
		return nil, a.fail(ctx, log, run, repoerrors.AggregationFailure("Aggregator.ReadEvents", err, map[string]string{"run_id": run.ID}))
	}
	run.EventCount = int64(len(events))

	dates := datesIn(r)
	rollup := buildRollup(events, rules, a.cfg.Location)
	run.UnresolvedApps = int64(len(rollup.unresolved))

	err = a.store.WithRollupTx(ctx, func(w repository.RollupWriter) error {
		var err error
		if run.HourlyRows, err = w.ReplaceHourly(ctx, dates, rollup.hourly); err != nil {
			return err
		}
		if run.DailyRows, err = w.ReplaceDaily(ctx, dates); err != nil {
			return err
		}
		if run.CategoryRows, err = w.ReplaceDailyCategory(ctx, dates); err != nil {
			return err
		}
		if err := w.SyncCategoryMirror(ctx, rules.Categories(), rules.Rules()); err != nil {
			return err
		}

		run.Status = types.RunStatusCompleted
		run.CompletedAt = a.clock.Now()
		return w.RecordRun(ctx, run)
	})
	if err != nil {
		run.HourlyRows, run.DailyRows, run.CategoryRows = 0, 0, 0
		return nil, a.fail(ctx, log, run, repoerrors.AggregationFailure("Aggregator.Rollup", err, map[string]string{"run_id": run.ID}))
	}

	elapsed := run.CompletedAt.Sub(started)
	a.metrics.ObserveRun(string(types.RunStatusCompleted), elapsed, run.CompletedAt,
		run.HourlyRows, run.DailyRows, run.CategoryRows, run.UnresolvedApps)
	a.setState(StateCompleted, run)

	fields := []interface{}{
		"events", run.EventCount,
		"dates", len(dates),
		"hourly_rows", run.HourlyRows,
		"daily_rows", run.DailyRows,
		"category_rows", run.CategoryRows,
		"duration", elapsed,
	}
	if len(rollup.unresolved) > 0 {
		fields = append(fields, "uncategorized_apps", rollup.unresolved)
	}
	log.Info("Aggregation run completed", fields...)

	a.setState(StateIdle, nil)
	return run, nil
}

// fail records a failed run. Nothing from the run's transaction is visible.
func (a *Aggregator) fail(ctx context.Context, log logging.Logger, run *types.AggregationRun, err error) error {
	run.Status = types.RunStatusFailed
	run.Error = err.Error()
	run.CompletedAt = a.clock.Now()

	logging.LogError(log, err, "Aggregator.Run", map[string]interface{}{"run_id": run.ID})

	// The run context may be what expired
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if recErr := a.store.RecordRun(recordCtx, run); recErr != nil {
		log.Warn("Failed to record failed run", "error", recErr)
	}

	a.metrics.ObserveRun(string(types.RunStatusFailed), run.CompletedAt.Sub(run.StartedAt), run.CompletedAt, 0, 0, 0, run.UnresolvedApps)
	a.setState(StateFailed, run)
	a.setState(StateIdle, nil)
	return err
}

func (a *Aggregator) setState(s State, run *types.AggregationRun) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
	if run != nil {
		copied := *run
		a.lastRun = &copied
	}
}

// widen expands r to whole local days
func (a *Aggregator) widen(r types.TimeRange) types.TimeRange {
	from := startOfDay(r.From.In(a.cfg.Location))
	to := nextDay(startOfDay(r.To.Add(-time.Nanosecond).In(a.cfg.Location)))
	return types.TimeRange{From: from, To: to}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// nextDay is calendar-based so DST days keep their true length
func nextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
}

// datesIn lists every date key of a day-aligned range
func datesIn(r types.TimeRange) []string {
	var dates []string
	for day := r.From; day.Before(r.To); day = nextDay(day) {
		dates = append(dates, day.Format(types.DateLayout))
	}
	return dates
}

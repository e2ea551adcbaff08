package repository

import (
	"context"
	"time"

	"wellbeing/internal/types"
)

// EventStore is the append-only log of sampled activity. There is no update or delete.
type EventStore interface {
	AppendEvent(ctx context.Context, event *types.Event) error
	EventsInRange(ctx context.Context, r types.TimeRange) ([]types.Event, error)
	EventsForHour(ctx context.Context, date string, hour int) ([]types.Event, error)
	EventsForDate(ctx context.Context, date string) ([]types.Event, error)
	EarliestEventTime(ctx context.Context) (time.Time, error)
}

// RollupWriter replaces derived bucket rows inside one transaction.
// Each Replace call deletes every row for the given dates before inserting, so
// a date's rows always come from a single pass.
type RollupWriter interface {
	ReplaceHourly(ctx context.Context, dates []string, buckets []types.HourlyBucket) (int64, error)
	ReplaceDaily(ctx context.Context, dates []string) (int64, error)
	ReplaceDailyCategory(ctx context.Context, dates []string) (int64, error)
	SyncCategoryMirror(ctx context.Context, categories []types.CategoryInfo, rules []types.CategoryRule) error
	RecordRun(ctx context.Context, run *types.AggregationRun) error
}

// RollupStore owns the rollup transaction and the aggregation run history
type RollupStore interface {
	WithRollupTx(ctx context.Context, fn func(w RollupWriter) error) error
	RecordRun(ctx context.Context, run *types.AggregationRun) error
	LastSuccessfulRun(ctx context.Context) (*types.AggregationRun, error)
	LastRun(ctx context.Context) (*types.AggregationRun, error)
	CoveredThrough(ctx context.Context) (time.Time, error)
}

// UsageReader serves the query layer's read shapes from the bucket tables.
// An empty deviceType matches every device.
type UsageReader interface {
	DailyUsage(ctx context.Context, deviceType, date string) (*types.DailyUsage, error)
	WeeklyUsage(ctx context.Context, deviceType, startDate string) (*types.WeeklyUsage, error)
	HourlyUsage(ctx context.Context, deviceType, date string) (*types.HourlyUsage, error)
	TopApps(ctx context.Context, deviceType, endDate string, days, limit int) (*types.TopApps, error)
	CategoryMap(ctx context.Context) (*types.CategoryMap, error)
	SummaryStats(ctx context.Context, deviceType, endDate string, days int) (*types.SummaryStats, error)
}

// Repository is the full Event Store surface
type Repository interface {
	EventStore
	RollupStore
	UsageReader

	HourlyBuckets(ctx context.Context, date string) ([]types.HourlyBucket, error)
	DailyBuckets(ctx context.Context, date string) ([]types.DailyBucket, error)
	DailyCategoryBuckets(ctx context.Context, date string) ([]types.DailyCategoryBucket, error)
	Stats(ctx context.Context, since time.Time) (*types.StoreStats, error)
	HealthCheck(ctx context.Context) error
}

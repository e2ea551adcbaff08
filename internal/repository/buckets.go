package repository

import (
	"context"
	"database/sql"
	"time"

	"wellbeing/internal/types"
)

// HourlyBuckets returns the hourly rows of one date in key order
func (r *SQLiteRepository) HourlyBuckets(ctx context.Context, date string) ([]types.HourlyBucket, error) {
	if _, err := r.parseDate("HourlyBuckets", date); err != nil {
		return nil, err
	}

	buckets := []types.HourlyBucket{}
	err := r.withRetry(ctx, "HourlyBuckets", r.retryConfig, map[string]any{"date": date}, func() error {
		rows, err := r.db.QueryContext(ctx, `
			SELECT date, hour, device_type, app_name, category, total_seconds, event_count
			FROM hourly_usage WHERE date = ?
			ORDER BY hour, device_type, app_name`, date)
		if err != nil {
			return r.fail("HourlyBuckets", err, map[string]string{"date": date})
		}
		defer rows.Close()

		buckets = buckets[:0]
		for rows.Next() {
			var b types.HourlyBucket
			if err := rows.Scan(&b.Date, &b.Hour, &b.DeviceType, &b.AppName, &b.Category, &b.TotalSeconds, &b.EventCount); err != nil {
				return r.fail("HourlyBuckets.Scan", err, nil)
			}
			buckets = append(buckets, b)
		}
		return rows.Err()
	})
	return buckets, err
}

// DailyBuckets returns the daily app rows of one date in key order
func (r *SQLiteRepository) DailyBuckets(ctx context.Context, date string) ([]types.DailyBucket, error) {
	if _, err := r.parseDate("DailyBuckets", date); err != nil {
		return nil, err
	}

	buckets := []types.DailyBucket{}
	err := r.withRetry(ctx, "DailyBuckets", r.retryConfig, map[string]any{"date": date}, func() error {
		rows, err := r.db.QueryContext(ctx, `
			SELECT date, device_type, app_name, category, total_seconds, event_count
			FROM daily_usage WHERE date = ?
			ORDER BY device_type, app_name`, date)
		if err != nil {
			return r.fail("DailyBuckets", err, map[string]string{"date": date})
		}
		defer rows.Close()

		buckets = buckets[:0]
		for rows.Next() {
			var b types.DailyBucket
			if err := rows.Scan(&b.Date, &b.DeviceType, &b.AppName, &b.Category, &b.TotalSeconds, &b.EventCount); err != nil {
				return r.fail("DailyBuckets.Scan", err, nil)
			}
			buckets = append(buckets, b)
		}
		return rows.Err()
	})
	return buckets, err
}

// DailyCategoryBuckets returns the category rows of one date in key order
func (r *SQLiteRepository) DailyCategoryBuckets(ctx context.Context, date string) ([]types.DailyCategoryBucket, error) {
	if _, err := r.parseDate("DailyCategoryBuckets", date); err != nil {
		return nil, err
	}

	buckets := []types.DailyCategoryBucket{}
	err := r.withRetry(ctx, "DailyCategoryBuckets", r.retryConfig, map[string]any{"date": date}, func() error {
		rows, err := r.db.QueryContext(ctx, `
			SELECT date, device_type, category, total_seconds
			FROM daily_category_usage WHERE date = ?
			ORDER BY device_type, category`, date)
		if err != nil {
			return r.fail("DailyCategoryBuckets", err, map[string]string{"date": date})
		}
		defer rows.Close()

		buckets = buckets[:0]
		for rows.Next() {
			var b types.DailyCategoryBucket
			if err := rows.Scan(&b.Date, &b.DeviceType, &b.Category, &b.TotalSeconds); err != nil {
				return r.fail("DailyCategoryBuckets.Scan", err, nil)
			}
			buckets = append(buckets, b)
		}
		return rows.Err()
	})
	return buckets, err
}

// uncategorizedSampleSize caps the app names listed in StoreStats.UncategorizedApps
const uncategorizedSampleSize = 30

// Stats summarizes table contents. EventsSince and the uncategorized fields only consider data at or after since.
func (r *SQLiteRepository) Stats(ctx context.Context, since time.Time) (*types.StoreStats, error) {
	stats := &types.StoreStats{}

	err := r.withRetry(ctx, "Stats", r.retryConfig, nil, func() error {
		return r.readSnapshot(ctx, "Stats", func(q dbtx) error {
			var latest sql.NullInt64
			var latestDaily sql.NullString
			err := q.QueryRowContext(ctx, `
				SELECT
					(SELECT COUNT(*) FROM events),
					(SELECT COUNT(*) FROM hourly_usage),
					(SELECT COUNT(*) FROM daily_usage),
					(SELECT COUNT(*) FROM daily_category_usage),
					(SELECT MAX(timestamp) FROM events),
					(SELECT COUNT(*) FROM events WHERE timestamp >= ?),
					(SELECT COUNT(DISTINCT app_name) FROM events),
					(SELECT MAX(date) FROM daily_usage)`, toMillis(since)).
				Scan(&stats.EventCount, &stats.HourlyRows, &stats.DailyRows, &stats.CategoryRows,
					&latest, &stats.EventsSince, &stats.DistinctApps, &latestDaily)
			if err != nil {
				return r.fail("Stats.Counts", err, nil)
			}
			if latest.Valid {
				stats.LatestEvent = r.fromMillis(latest.Int64)
			}
			stats.LatestDailyDate = latestDaily.String

			sinceDate := since.In(r.location).Format(types.DateLayout)
			err = q.QueryRowContext(ctx, `
				SELECT COUNT(DISTINCT app_name) FROM daily_usage
				WHERE category = ? AND date >= ?`,
				types.UncategorizedCategory, sinceDate).Scan(&stats.UncategorizedCount)
			if err != nil {
				return r.fail("Stats.UncategorizedCount", err, nil)
			}

			rows, err := q.QueryContext(ctx, `
				SELECT DISTINCT app_name FROM daily_usage
				WHERE category = ? AND date >= ?
				ORDER BY app_name LIMIT ?`,
				types.UncategorizedCategory, sinceDate, uncategorizedSampleSize)
			if err != nil {
				return r.fail("Stats.Uncategorized", err, nil)
			}
			defer rows.Close()

			stats.UncategorizedApps = []string{}
			for rows.Next() {
				var app string
				if err := rows.Scan(&app); err != nil {
					return r.fail("Stats.Uncategorized.Scan", err, nil)
				}
				stats.UncategorizedApps = append(stats.UncategorizedApps, app)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

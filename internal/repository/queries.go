package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/types"
)

const (
	dailyTopAppsLimit = 10
	maxTopAppsLimit   = 100
	maxWindowDays     = 365
)

// productiveCategory is the category counted toward the most productive day
const productiveCategory = "Work"

const deviceFilter = `(? = '' OR device_type = ?)`

// DailyUsage returns category totals and the top apps for one date
func (r *SQLiteRepository) DailyUsage(ctx context.Context, deviceType, date string) (*types.DailyUsage, error) {
	if _, err := r.parseDate("DailyUsage", date); err != nil {
		return nil, err
	}

	var usage *types.DailyUsage
	err := r.withRetry(ctx, "DailyUsage", r.retryConfig, map[string]any{"date": date}, func() error {
		return r.readSnapshot(ctx, "DailyUsage", func(q dbtx) error {
			var err error
			usage, err = r.dailyUsage(ctx, q, "DailyUsage", deviceType, date)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// WeeklyUsage returns seven daily breakdowns starting at startDate plus category totals for the week
func (r *SQLiteRepository) WeeklyUsage(ctx context.Context, deviceType, startDate string) (*types.WeeklyUsage, error) {
	start, err := r.parseDate("WeeklyUsage", startDate)
	if err != nil {
		return nil, err
	}
	end := start.AddDate(0, 0, 6)

	var weekly *types.WeeklyUsage
	err = r.withRetry(ctx, "WeeklyUsage", r.retryConfig, map[string]any{"start_date": startDate}, func() error {
		return r.readSnapshot(ctx, "WeeklyUsage", func(q dbtx) error {
			w := &types.WeeklyUsage{
				StartDate:      startDate,
				EndDate:        end.Format(types.DateLayout),
				DailyBreakdown: make([]types.DailyUsage, 0, 7),
			}
			for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
				daily, err := r.dailyUsage(ctx, q, "WeeklyUsage", deviceType, day.Format(types.DateLayout))
				if err != nil {
					return err
				}
				w.DailyBreakdown = append(w.DailyBreakdown, *daily)
			}

			totals, err := r.categoryTotals(ctx, q, "WeeklyUsage", deviceType, w.StartDate, w.EndDate)
			if err != nil {
				return err
			}
			var total int64
			for _, t := range totals {
				total += t.TotalSeconds
			}
			for i := range totals {
				totals[i].Percentage = percentage(totals[i].TotalSeconds, total)
			}
			w.WeeklyTotals = totals
			weekly = w
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return weekly, nil
}

// dailyUsage reads one date's category and app totals through q, which
// must be a snapshot so the two agree with each other
func (r *SQLiteRepository) dailyUsage(ctx context.Context, q dbtx, op, deviceType, date string) (*types.DailyUsage, error) {
	categories, err := r.categoryTotals(ctx, q, op, deviceType, date, date)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range categories {
		total += c.TotalSeconds
	}
	for i := range categories {
		categories[i].Percentage = percentage(categories[i].TotalSeconds, total)
	}

	apps, err := r.appTotals(ctx, q, op, deviceType, date, date, dailyTopAppsLimit)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		apps[i].Percentage = percentage(apps[i].TotalSeconds, total)
	}

	return &types.DailyUsage{
		Date:            date,
		TotalScreenTime: total,
		Categories:      categories,
		TopApps:         apps,
	}, nil
}

// HourlyUsage returns all 24 hours of a date, with per-app shares of each hour
func (r *SQLiteRepository) HourlyUsage(ctx context.Context, deviceType, date string) (*types.HourlyUsage, error) {
	if _, err := r.parseDate("HourlyUsage", date); err != nil {
		return nil, err
	}

	usage := &types.HourlyUsage{Date: date}
	err := r.withRetry(ctx, "HourlyUsage", r.retryConfig, map[string]any{"date": date}, func() error {
		rows, err := r.db.QueryContext(ctx, `
			SELECT hour, app_name, category, SUM(total_seconds) AS seconds
			FROM hourly_usage
			WHERE date = ? AND `+deviceFilter+`
			GROUP BY hour, app_name, category
			ORDER BY hour, seconds DESC, app_name`, date, deviceType, deviceType)
		if err != nil {
			return r.fail("HourlyUsage", err, map[string]string{"date": date})
		}
		defer rows.Close()

		slots := make([]types.HourSlot, 24)
		for h := range slots {
			slots[h] = types.HourSlot{Hour: h, Apps: []types.UsageShare{}}
		}
		for rows.Next() {
			var hour int
			var share types.UsageShare
			if err := rows.Scan(&hour, &share.AppName, &share.Category, &share.TotalSeconds); err != nil {
				return r.fail("HourlyUsage.Scan", err, nil)
			}
			slots[hour].TotalSeconds += share.TotalSeconds
			slots[hour].Apps = append(slots[hour].Apps, share)
		}
		if err := rows.Err(); err != nil {
			return r.fail("HourlyUsage.Rows", err, nil)
		}

		for h := range slots {
			for i := range slots[h].Apps {
				slots[h].Apps[i].Percentage = percentage(slots[h].Apps[i].TotalSeconds, slots[h].TotalSeconds)
			}
		}
		usage.HourlyData = slots
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// TopApps returns the most used apps over the days ending at endDate inclusive
func (r *SQLiteRepository) TopApps(ctx context.Context, deviceType, endDate string, days, limit int) (*types.TopApps, error) {
	if limit < 1 || limit > maxTopAppsLimit {
		return nil, repoerrors.HandleValidationError("TopApps", "limit", fmt.Sprintf("%d", limit),
			fmt.Sprintf("must be between 1 and %d", maxTopAppsLimit))
	}
	startDate, err := r.windowStart("TopApps", endDate, days)
	if err != nil {
		return nil, err
	}

	result := &types.TopApps{}
	err = r.withRetry(ctx, "TopApps", r.retryConfig, map[string]any{"end_date": endDate, "days": days}, func() error {
		return r.readSnapshot(ctx, "TopApps", func(q dbtx) error {
			var total int64
			if err := q.QueryRowContext(ctx, `
				SELECT COALESCE(SUM(total_seconds), 0) FROM daily_usage
				WHERE date BETWEEN ? AND ? AND `+deviceFilter,
				startDate, endDate, deviceType, deviceType).Scan(&total); err != nil {
				return r.fail("TopApps.Total", err, nil)
			}

			apps, err := r.appTotals(ctx, q, "TopApps", deviceType, startDate, endDate, limit)
			if err != nil {
				return err
			}
			for i := range apps {
				apps[i].Percentage = percentage(apps[i].TotalSeconds, total)
			}
			result.Apps = apps
			result.TotalApps = len(apps)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CategoryMap returns the category mirror written by the last aggregation run
func (r *SQLiteRepository) CategoryMap(ctx context.Context) (*types.CategoryMap, error) {
	result := &types.CategoryMap{}
	err := r.withRetry(ctx, "CategoryMap", r.retryConfig, nil, func() error {
		return r.readSnapshot(ctx, "CategoryMap", func(q dbtx) error {
			categories := make(map[string]types.CategoryInfo)

			rows, err := q.QueryContext(ctx, `SELECT name, color, description FROM categories`)
			if err != nil {
				return r.fail("CategoryMap.Categories", err, nil)
			}
			for rows.Next() {
				var info types.CategoryInfo
				if err := rows.Scan(&info.Name, &info.Color, &info.Description); err != nil {
					rows.Close()
					return r.fail("CategoryMap.Categories.Scan", err, nil)
				}
				info.Apps = []string{}
				categories[info.Name] = info
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return r.fail("CategoryMap.Categories.Rows", err, nil)
			}

			rows, err = q.QueryContext(ctx, `SELECT app_name, category FROM app_categories ORDER BY app_name`)
			if err != nil {
				return r.fail("CategoryMap.Apps", err, nil)
			}
			defer rows.Close()
			for rows.Next() {
				var app, category string
				if err := rows.Scan(&app, &category); err != nil {
					return r.fail("CategoryMap.Apps.Scan", err, nil)
				}
				info, ok := categories[category]
				if !ok {
					info = types.CategoryInfo{Name: category, Apps: []string{}}
				}
				info.Apps = append(info.Apps, app)
				categories[category] = info
			}
			if err := rows.Err(); err != nil {
				return r.fail("CategoryMap.Apps.Rows", err, nil)
			}

			result.Categories = categories
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SummaryStats returns totals, daily averages and the most productive day over days ending at endDate
func (r *SQLiteRepository) SummaryStats(ctx context.Context, deviceType, endDate string, days int) (*types.SummaryStats, error) {
	startDate, err := r.windowStart("SummaryStats", endDate, days)
	if err != nil {
		return nil, err
	}

	summary := &types.SummaryStats{
		Period: types.SummaryPeriod{StartDate: startDate, EndDate: endDate, Days: days},
	}
	err = r.withRetry(ctx, "SummaryStats", r.retryConfig, map[string]any{"end_date": endDate, "days": days}, func() error {
		return r.readSnapshot(ctx, "SummaryStats", func(q dbtx) error {
			var total int64
			if err := q.QueryRowContext(ctx, `
				SELECT COALESCE(SUM(total_seconds), 0) FROM daily_category_usage
				WHERE date BETWEEN ? AND ? AND `+deviceFilter,
				startDate, endDate, deviceType, deviceType).Scan(&total); err != nil {
				return r.fail("SummaryStats.Total", err, nil)
			}

			avg := float64(total) / float64(days)
			summary.Totals = types.SummaryTotals{
				ScreenTimeSeconds:   total,
				ScreenTimeHours:     round2(float64(total) / 3600),
				AverageDailySeconds: int64(avg + 0.5),
				AverageDailyHours:   round2(avg / 3600),
			}

			if err := q.QueryRowContext(ctx, `
				SELECT COUNT(DISTINCT app_name) FROM daily_usage
				WHERE date BETWEEN ? AND ? AND `+deviceFilter,
				startDate, endDate, deviceType, deviceType).Scan(&summary.Insights.UniqueAppsUsed); err != nil {
				return r.fail("SummaryStats.UniqueApps", err, nil)
			}

			rows, err := q.QueryContext(ctx, `
				SELECT date, SUM(total_seconds) AS seconds FROM daily_category_usage
				WHERE date BETWEEN ? AND ? AND category = ? AND `+deviceFilter+`
				GROUP BY date
				ORDER BY seconds DESC, date
				LIMIT 1`, startDate, endDate, productiveCategory, deviceType, deviceType)
			if err != nil {
				return r.fail("SummaryStats.Productive", err, nil)
			}
			defer rows.Close()

			summary.Insights.MostProductiveDay = types.ProductiveDay{}
			if rows.Next() {
				var day types.ProductiveDay
				if err := rows.Scan(&day.Date, &day.WorkSeconds); err != nil {
					return r.fail("SummaryStats.Productive.Scan", err, nil)
				}
				summary.Insights.MostProductiveDay = day
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// readSnapshot runs fn inside one read-only transaction, so reads spanning
// several statements see a single state of the store even while the
// aggregator rewrites buckets
func (r *SQLiteRepository) readSnapshot(ctx context.Context, op string, fn func(q dbtx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return r.fail(op+".Begin", err, nil)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.Debug("Failed to rollback read transaction", "operation", op, "rollback_error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return r.fail(op+".Commit", err, nil)
	}
	return nil
}

// windowStart returns the first date of a days-long window ending at endDate
func (r *SQLiteRepository) windowStart(op, endDate string, days int) (string, error) {
	if days < 1 || days > maxWindowDays {
		return "", repoerrors.HandleValidationError(op, "days", fmt.Sprintf("%d", days),
			fmt.Sprintf("must be between 1 and %d", maxWindowDays))
	}
	end, err := r.parseDate(op, endDate)
	if err != nil {
		return "", err
	}
	return end.AddDate(0, 0, -(days - 1)).Format(types.DateLayout), nil
}

func (r *SQLiteRepository) categoryTotals(ctx context.Context, q dbtx, op, deviceType, from, to string) ([]types.UsageShare, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT category, SUM(total_seconds) AS seconds
		FROM daily_category_usage
		WHERE date BETWEEN ? AND ? AND `+deviceFilter+`
		GROUP BY category
		ORDER BY seconds DESC, category`, from, to, deviceType, deviceType)
	if err != nil {
		return nil, r.fail(op+".Categories", err, map[string]string{"from": from, "to": to})
	}
	defer rows.Close()

	shares := []types.UsageShare{}
	for rows.Next() {
		var s types.UsageShare
		if err := rows.Scan(&s.Category, &s.TotalSeconds); err != nil {
			return nil, r.fail(op+".Categories.Scan", err, nil)
		}
		if strings.TrimSpace(s.Category) == "" {
			s.Category = types.UncategorizedCategory
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(op+".Categories.Rows", err, nil)
	}
	return shares, nil
}

func (r *SQLiteRepository) appTotals(ctx context.Context, q dbtx, op, deviceType, from, to string, limit int) ([]types.UsageShare, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT app_name, category, SUM(total_seconds) AS seconds
		FROM daily_usage
		WHERE date BETWEEN ? AND ? AND `+deviceFilter+`
		GROUP BY app_name, category
		ORDER BY seconds DESC, app_name
		LIMIT ?`, from, to, deviceType, deviceType, limit)
	if err != nil {
		return nil, r.fail(op+".Apps", err, map[string]string{"from": from, "to": to})
	}
	defer rows.Close()

	shares := []types.UsageShare{}
	for rows.Next() {
		var s types.UsageShare
		if err := rows.Scan(&s.AppName, &s.Category, &s.TotalSeconds); err != nil {
			return nil, r.fail(op+".Apps.Scan", err, nil)
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(op+".Apps.Rows", err, nil)
	}
	return shares, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
	"wellbeing/internal/types"
)

// WithRollupTx runs fn inside one write transaction. Nothing fn writes is
// visible to readers unless fn returns nil and the commit succeeds.
// fn must only touch the store through w: with a single pooled connection any
// other call would wait on the connection the transaction holds.
func (r *SQLiteRepository) WithRollupTx(ctx context.Context, fn func(w RollupWriter) error) error {
	start := time.Now()

	err := repoerrors.WithRetryContext(ctx, r.retryConfig, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return r.fail("WithRollupTx.Begin", err, nil)
		}

		committed := false
		defer func() {
			if committed {
				return
			}
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Debug("Failed to rollback rollup transaction", "rollback_error", rbErr)
			}
		}()

		if err := fn(&rollupWriter{repo: r, tx: tx}); err != nil {
			r.logger.Debug("Rollup transaction function failed", "error", err)
			return err
		}

		if err := tx.Commit(); err != nil {
			return r.fail("WithRollupTx.Commit", err, nil)
		}
		committed = true
		return nil
	}, "WithRollupTx")

	if err == nil {
		logging.LogOperation(r.logger, "WithRollupTx", time.Since(start), nil)
	}
	return err
}

type rollupWriter struct {
	repo *SQLiteRepository
	tx   *sql.Tx
}

// ReplaceHourly deletes every hourly row for dates and inserts buckets.
// Buckets must all fall on one of dates.
func (w *rollupWriter) ReplaceHourly(ctx context.Context, dates []string, buckets []types.HourlyBucket) (int64, error) {
	dates = uniqueSorted(dates)
	for _, b := range buckets {
		if !slices.Contains(dates, b.Date) {
			return 0, repoerrors.HandleValidationError("ReplaceHourly", "date", b.Date, "bucket outside replaced dates")
		}
		if b.Hour < 0 || b.Hour > 23 {
			return 0, repoerrors.HandleValidationError("ReplaceHourly", "hour", fmt.Sprintf("%d", b.Hour), "must be 0-23")
		}
	}
	if len(dates) == 0 {
		return 0, nil
	}

	if err := w.deleteDates(ctx, "ReplaceHourly", "hourly_usage", dates); err != nil {
		return 0, err
	}

	stmt, err := w.tx.PrepareContext(ctx, `
		INSERT INTO hourly_usage (date, hour, device_type, app_name, category, total_seconds, event_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, w.repo.fail("ReplaceHourly.Prepare", err, nil)
	}
	defer stmt.Close()

	for _, b := range buckets {
		if _, err := stmt.ExecContext(ctx, b.Date, b.Hour, b.DeviceType, b.AppName, b.Category, b.TotalSeconds, b.EventCount); err != nil {
			return 0, w.repo.fail("ReplaceHourly.Insert", err, map[string]string{
				"date":     b.Date,
				"hour":     fmt.Sprintf("%d", b.Hour),
				"app_name": b.AppName,
			})
		}
	}
	return int64(len(buckets)), nil
}

// ReplaceDaily recomputes daily rows for dates from the hourly rows in the same transaction
func (w *rollupWriter) ReplaceDaily(ctx context.Context, dates []string) (int64, error) {
	return w.rebuild(ctx, "ReplaceDaily", "daily_usage", dates, `
		INSERT INTO daily_usage (date, device_type, app_name, category, total_seconds, event_count)
		SELECT date, device_type, app_name, MIN(category), SUM(total_seconds), SUM(event_count)
		FROM hourly_usage
		WHERE date IN (%s)
		GROUP BY date, device_type, app_name`)
}

// ReplaceDailyCategory recomputes category rows for dates from the daily rows in the same transaction
func (w *rollupWriter) ReplaceDailyCategory(ctx context.Context, dates []string) (int64, error) {
	return w.rebuild(ctx, "ReplaceDailyCategory", "daily_category_usage", dates, `
		INSERT INTO daily_category_usage (date, device_type, category, total_seconds)
		SELECT date, device_type, category, SUM(total_seconds)
		FROM daily_usage
		WHERE date IN (%s)
		GROUP BY date, device_type, category`)
}

func (w *rollupWriter) rebuild(ctx context.Context, op, table string, dates []string, insertSQL string) (int64, error) {
	dates = uniqueSorted(dates)
	if len(dates) == 0 {
		return 0, nil
	}
	if err := w.deleteDates(ctx, op, table, dates); err != nil {
		return 0, err
	}

	res, err := w.tx.ExecContext(ctx, fmt.Sprintf(insertSQL, placeholders(len(dates))), stringArgs(dates)...)
	if err != nil {
		return 0, w.repo.fail(op+".Insert", err, map[string]string{"dates": strings.Join(dates, ",")})
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, w.repo.fail(op+".RowsAffected", err, nil)
	}
	return n, nil
}

func (w *rollupWriter) deleteDates(ctx context.Context, op, table string, dates []string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE date IN (%s)", table, placeholders(len(dates)))
	if _, err := w.tx.ExecContext(ctx, query, stringArgs(dates)...); err != nil {
		return w.repo.fail(op+".Delete", err, map[string]string{"table": table})
	}
	return nil
}

// SyncCategoryMirror replaces the categories and app_categories tables with one rule snapshot.
// Rules are expected in precedence order; the first rule for a literal wins.
func (w *rollupWriter) SyncCategoryMirror(ctx context.Context, categories []types.CategoryInfo, rules []types.CategoryRule) error {
	for _, table := range []string{"app_categories", "categories"} {
		if _, err := w.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return w.repo.fail("SyncCategoryMirror.Delete", err, map[string]string{"table": table})
		}
	}

	for _, c := range categories {
		if _, err := w.tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO categories (name, color, description) VALUES (?, ?, ?)`,
			c.Name, c.Color, c.Description); err != nil {
			return w.repo.fail("SyncCategoryMirror.Category", err, map[string]string{"category": c.Name})
		}
	}

	for _, rule := range rules {
		if _, err := w.tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO app_categories (app_name, category) VALUES (?, ?)`,
			strings.ToLower(rule.Pattern), rule.Category); err != nil {
			return w.repo.fail("SyncCategoryMirror.Rule", err, map[string]string{"pattern": rule.Pattern})
		}
	}
	return nil
}

// RecordRun records a run in the same transaction as its bucket writes
func (w *rollupWriter) RecordRun(ctx context.Context, run *types.AggregationRun) error {
	return w.repo.insertRun(ctx, w.tx, run)
}

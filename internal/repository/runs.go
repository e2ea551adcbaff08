package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/types"
)

const runColumns = `id, started_at, completed_at, range_from, range_to, status, error,
	event_count, hourly_rows, daily_rows, category_rows, unresolved_apps, rule_count`

// RecordRun records a run outside any rollup transaction, used for failed runs
func (r *SQLiteRepository) RecordRun(ctx context.Context, run *types.AggregationRun) error {
	return r.withRetry(ctx, "RecordRun", r.retryConfig, nil, func() error {
		return r.insertRun(ctx, r.db, run)
	})
}

func (r *SQLiteRepository) insertRun(ctx context.Context, q dbtx, run *types.AggregationRun) error {
	if run == nil || run.ID == "" {
		return repoerrors.HandleValidationError("RecordRun", "id", "", "run id cannot be empty")
	}
	switch run.Status {
	case types.RunStatusCompleted, types.RunStatusFailed:
	default:
		return repoerrors.HandleValidationError("RecordRun", "status", string(run.Status), "must be completed or failed")
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO aggregation_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, toMillis(run.StartedAt), toMillis(run.CompletedAt),
		toMillis(run.Range.From), toMillis(run.Range.To), string(run.Status), run.Error,
		run.EventCount, run.HourlyRows, run.DailyRows, run.CategoryRows, run.UnresolvedApps, run.RuleSnapshotLen)
	if err != nil {
		return r.fail("RecordRun", err, map[string]string{"run_id": run.ID, "status": string(run.Status)})
	}
	return nil
}

// LastSuccessfulRun returns the most recently completed run
func (r *SQLiteRepository) LastSuccessfulRun(ctx context.Context) (*types.AggregationRun, error) {
	return r.latestRun(ctx, "LastSuccessfulRun", `WHERE status = 'completed'`)
}

// LastRun returns the most recent run of any status
func (r *SQLiteRepository) LastRun(ctx context.Context) (*types.AggregationRun, error) {
	return r.latestRun(ctx, "LastRun", "")
}

func (r *SQLiteRepository) latestRun(ctx context.Context, op, where string) (*types.AggregationRun, error) {
	var run *types.AggregationRun
	err := r.withRetry(ctx, op, r.retryConfig, nil, func() error {
		row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM aggregation_runs `+where+`
			ORDER BY completed_at DESC, started_at DESC LIMIT 1`)

		var (
			got                                    types.AggregationRun
			started, completed, rangeFrom, rangeTo int64
			status                                 string
		)
		err := row.Scan(&got.ID, &started, &completed, &rangeFrom, &rangeTo, &status, &got.Error,
			&got.EventCount, &got.HourlyRows, &got.DailyRows, &got.CategoryRows, &got.UnresolvedApps, &got.RuleSnapshotLen)
		if errors.Is(err, sql.ErrNoRows) {
			return repoerrors.HandleNotFound(op, "aggregation_run", "latest")
		}
		if err != nil {
			return r.fail(op, err, nil)
		}

		got.StartedAt = r.fromMillis(started)
		got.CompletedAt = r.fromMillis(completed)
		got.Range = types.TimeRange{From: r.fromMillis(rangeFrom), To: r.fromMillis(rangeTo)}
		got.Status = types.RunStatus(status)
		run = &got
		return nil
	})
	return run, err
}

// CoveredThrough returns the latest range end of any completed run.
// A backfill over old dates completing late does not move this backwards.
func (r *SQLiteRepository) CoveredThrough(ctx context.Context) (time.Time, error) {
	var through time.Time
	err := r.withRetry(ctx, "CoveredThrough", r.retryConfig, nil, func() error {
		var ms sql.NullInt64
		if err := r.db.QueryRowContext(ctx,
			`SELECT MAX(range_to) FROM aggregation_runs WHERE status = 'completed'`).Scan(&ms); err != nil {
			return r.fail("CoveredThrough", err, nil)
		}
		if !ms.Valid {
			return repoerrors.HandleNotFound("CoveredThrough", "aggregation_run", "completed")
		}
		through = r.fromMillis(ms.Int64)
		return nil
	})
	return through, err
}

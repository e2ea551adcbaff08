package repository

import (
	"context"
	"testing"
	"time"

	"wellbeing/internal/database"
	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
	"wellbeing/internal/types"
)

func setupTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	dbService, err := database.Open(ctx, database.TestConfig(), logging.NopLogger{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		dbService.Close()
	})

	retry := &repoerrors.RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2,
		RetryableErrors: []repoerrors.ErrorCode{repoerrors.ErrCodeBusy},
	}
	return NewSQLiteRepositoryWithConfig(dbService, retry, time.UTC, logging.NopLogger{})
}

// seedEvent appends an event at the given UTC time
func seedEvent(t *testing.T, repo *SQLiteRepository, at time.Time, app string, seconds int64) *types.Event {
	t.Helper()

	e := &types.Event{
		Timestamp:       at,
		DeviceType:      types.DefaultDeviceType,
		AppName:         app,
		ProcessName:     app,
		DurationSeconds: seconds,
	}
	if err := repo.AppendEvent(context.Background(), e); err != nil {
		t.Fatalf("AppendEvent(%s) failed: %v", app, err)
	}
	return e
}

// seedRollup writes hourly rows for the buckets' dates and derives daily and category rows
func seedRollup(t *testing.T, repo *SQLiteRepository, buckets ...types.HourlyBucket) {
	t.Helper()

	var dates []string
	for _, b := range buckets {
		dates = append(dates, b.Date)
	}
	err := repo.WithRollupTx(context.Background(), func(w RollupWriter) error {
		if _, err := w.ReplaceHourly(context.Background(), dates, buckets); err != nil {
			return err
		}
		if _, err := w.ReplaceDaily(context.Background(), dates); err != nil {
			return err
		}
		_, err := w.ReplaceDailyCategory(context.Background(), dates)
		return err
	})
	if err != nil {
		t.Fatalf("seedRollup failed: %v", err)
	}
}

func TestNewSQLiteRepository(t *testing.T) {
	repo := setupTestRepository(t)

	if repo.db == nil {
		t.Error("Repository db is nil")
	}
	if repo.logger == nil {
		t.Error("Repository logger is nil")
	}
	if repo.retryConfig == nil || repo.appendRetry == nil {
		t.Error("Repository retry configs should be set")
	}
	if repo.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", repo.Location())
	}
}

func TestNewSQLiteRepositoryWithConfig_Defaults(t *testing.T) {
	base := setupTestRepository(t)

	repo := NewSQLiteRepositoryWithConfig(base.dbService, nil, nil, nil)
	if repo.retryConfig == nil {
		t.Error("Repository should have default retry config when nil is passed")
	}
	if repo.location != time.Local {
		t.Error("Repository should default to the local time zone")
	}
	if repo.logger == nil {
		t.Error("Repository should have default logger when nil is passed")
	}
	if repo.appendRetry.MaxAttempts != repoerrors.QuickRetryConfig().MaxAttempts {
		t.Error("Appends should use the quick retry policy")
	}
}

func TestSQLiteRepository_HealthCheck(t *testing.T) {
	repo := setupTestRepository(t)

	if err := repo.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestSQLiteRepository_HealthCheckAfterClose(t *testing.T) {
	repo := setupTestRepository(t)
	repo.dbService.Close()

	if err := repo.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck should fail on a closed database")
	}
}

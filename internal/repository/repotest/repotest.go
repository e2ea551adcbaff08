// Package repotest opens throwaway repositories for tests of the packages
// built on the event store.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wellbeing/internal/database"
	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
	"wellbeing/internal/repository"
	"wellbeing/internal/types"
)

// FastRetry retries busy errors with millisecond delays
func FastRetry() *repoerrors.RetryConfig {
	return &repoerrors.RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2,
		RetryableErrors: []repoerrors.ErrorCode{repoerrors.ErrCodeBusy},
	}
}

// Open returns a migrated in-memory repository that is closed when the test ends
func Open(t testing.TB, loc *time.Location) *repository.SQLiteRepository {
	t.Helper()

	dbService, err := database.Open(context.Background(), database.TestConfig(), logging.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { dbService.Close() })

	return repository.NewSQLiteRepositoryWithConfig(dbService, FastRetry(), loc, logging.NopLogger{})
}

// AppendEvent stores one event whose process name equals its app name
func AppendEvent(t testing.TB, repo *repository.SQLiteRepository, at time.Time, app string, seconds int64) *types.Event {
	t.Helper()

	event := &types.Event{
		Timestamp:       at,
		DeviceType:      types.DefaultDeviceType,
		AppName:         app,
		ProcessName:     app,
		DurationSeconds: seconds,
	}
	require.NoError(t, repo.AppendEvent(context.Background(), event))
	return event
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"wellbeing/internal/database"
	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepository implements Repository on SQLite
type SQLiteRepository struct {
	db          *sql.DB
	dbService   database.Service
	retryConfig *repoerrors.RetryConfig
	appendRetry *repoerrors.RetryConfig
	location    *time.Location
	logger      logging.Logger
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a repository that buckets dates in the local time zone
func NewSQLiteRepository(dbService database.Service, logger logging.Logger) *SQLiteRepository {
	return NewSQLiteRepositoryWithConfig(dbService, nil, time.Local, logger)
}

// NewSQLiteRepositoryWithConfig creates a repository with a custom retry policy and time zone
func NewSQLiteRepositoryWithConfig(dbService database.Service, retryConfig *repoerrors.RetryConfig, location *time.Location, logger logging.Logger) *SQLiteRepository {
	if retryConfig == nil {
		retryConfig = repoerrors.DefaultRetryConfig()
	}
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	appendRetry := repoerrors.QuickRetryConfig()
	appendRetry.Logger = logger
	if retryConfig.Logger == nil {
		retryConfig.Logger = logger
	}

	return &SQLiteRepository{
		db:          dbService.DB(),
		dbService:   dbService,
		retryConfig: retryConfig,
		appendRetry: appendRetry,
		location:    location,
		logger:      logger,
	}
}

// SetRetryConfig updates the retry configuration for the repository
func (r *SQLiteRepository) SetRetryConfig(config *repoerrors.RetryConfig) {
	if config != nil {
		r.retryConfig = config
	}
}

// SetLogger updates the logger for the repository
func (r *SQLiteRepository) SetLogger(logger logging.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Location returns the time zone used to derive bucket dates and hours
func (r *SQLiteRepository) Location() *time.Location {
	return r.location
}

// HealthCheck verifies connectivity and that the schema is readable
func (r *SQLiteRepository) HealthCheck(ctx context.Context) error {
	return r.withRetry(ctx, "HealthCheck", r.retryConfig, nil, func() error {
		if err := r.db.PingContext(ctx); err != nil {
			return r.fail("HealthCheck.Ping", err, nil)
		}
		var count int
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&count); err != nil {
			return r.fail("HealthCheck.Query", err, nil)
		}
		if count == 0 {
			return repoerrors.New("HealthCheck.Query", sql.ErrNoRows, repoerrors.ErrCodeSchema)
		}
		return nil
	})
}

// withRetry runs fn under the retry policy and logs the operation on success
func (r *SQLiteRepository) withRetry(ctx context.Context, op string, cfg *repoerrors.RetryConfig, logCtx map[string]any, fn func() error) error {
	start := time.Now()

	err := repoerrors.WithRetryContext(ctx, cfg, fn, op)
	if err == nil {
		logging.LogOperation(r.logger, op, time.Since(start), logCtx)
	}
	return err
}

// fail classifies a driver error and logs it; retryable errors are logged at debug only
func (r *SQLiteRepository) fail(op string, err error, errCtx map[string]string) error {
	repoErr := repoerrors.NewWithContext(op, err, repoerrors.ClassifyError(err), errCtx)
	if repoErr.IsRetryable() {
		r.logger.Debug("Retryable error in "+op, "error", err)
	} else {
		fields := make(map[string]interface{}, len(errCtx))
		for k, v := range errCtx {
			fields[k] = v
		}
		logging.LogError(r.logger, repoErr, op, fields)
	}
	return repoErr
}

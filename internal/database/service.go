package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	dberrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
)

// SQLiteService implements the Service interface for SQLite.
//
// Lifecycle: NewSQLiteService, Connect, optionally Migrate, then Close.
// Open combines the first three steps.
type SQLiteService struct {
	db              *sql.DB
	config          *Config
	migrationRunner MigrationManager
	logger          logging.Logger
}

var _ Service = (*SQLiteService)(nil)

// NewSQLiteService creates a new SQLite database service
func NewSQLiteService(logger logging.Logger) *SQLiteService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteService{
		logger: logger,
	}
}

// Open validates config, connects and migrates when AutoMigrate is set
func Open(ctx context.Context, config *Config, logger logging.Logger) (*SQLiteService, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, dberrors.HandleValidationError("Open", "config", config.Path, err.Error())
	}

	svc := NewSQLiteService(logger)
	if err := svc.Connect(ctx, config); err != nil {
		return nil, err
	}

	if config.AutoMigrate {
		if err := svc.Migrate(ctx); err != nil {
			svc.Close()
			return nil, err
		}
		return svc, nil
	}

	// Without auto-migration, queries against an old schema fail later with less context
	if pending, err := svc.migrationRunner.HasPending(ctx); err != nil {
		svc.logger.Warn("Could not check schema version", "error", err)
	} else if pending {
		svc.logger.Warn("Database schema is behind; enable database.auto_migrate or migrate manually", "path", config.Path)
	}

	return svc, nil
}

// Connect establishes a connection to the SQLite database
func (s *SQLiteService) Connect(ctx context.Context, config *Config) error {
	s.config = config

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close existing database connection", "error", err)
		}
		s.db = nil
		s.migrationRunner = nil
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return dberrors.HandleConnectionError("Connect", fmt.Sprintf("failed to open database: %v", err))
	}

	s.configureConnectionPool(db, config)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return dberrors.HandleConnectionError("Connect", fmt.Sprintf("failed to ping database: %v", err))
	}

	s.db = db
	s.migrationRunner = NewMigrationRunner(db, s.logger)

	s.logger.Info("Connected to SQLite database", "path", config.Path)
	return nil
}

// Close closes the database connection
func (s *SQLiteService) Close() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return dberrors.HandleConnectionError("Close", fmt.Sprintf("failed to close database: %v", err))
	}

	s.db = nil
	s.migrationRunner = nil

	s.logger.Info("Closed SQLite database connection")
	return nil
}

// Migrate runs the embedded migrations
func (s *SQLiteService) Migrate(ctx context.Context) error {
	if s.db == nil {
		return dberrors.HandleConnectionError("Migrate", "database not connected")
	}
	if s.migrationRunner == nil {
		return dberrors.HandleValidationError("Migrate", "migrationRunner", "nil", "migration runner not initialized")
	}

	if err := s.migrationRunner.ValidateMigrations(); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Migrate", err, map[string]string{
			"phase": "validation",
		})
	}

	if err := s.migrationRunner.RunMigrations(ctx); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Migrate", err, map[string]string{
			"phase": "execution",
		})
	}

	return nil
}

// Health checks the database connection health
func (s *SQLiteService) Health(ctx context.Context) error {
	if s.db == nil {
		return dberrors.HandleConnectionError("Health", "database not connected")
	}

	if err := s.db.PingContext(ctx); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Health", err, map[string]string{
			"phase": "ping",
		})
	}

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Health", err, map[string]string{
			"phase": "query",
		})
	}

	if result != 1 {
		return dberrors.HandleValidationError("Health", "query_result", fmt.Sprintf("%d", result), "expected result 1")
	}

	return nil
}

// DB returns the underlying connection pool for the repository
func (s *SQLiteService) DB() *sql.DB {
	return s.db
}

// GetMigrationVersion returns the current migration version
func (s *SQLiteService) GetMigrationVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, dberrors.HandleConnectionError("GetMigrationVersion", "database not connected")
	}
	if s.migrationRunner == nil {
		return 0, dberrors.HandleValidationError("GetMigrationVersion", "migrationRunner", "nil", "migration runner not initialized")
	}

	version, err := s.migrationRunner.GetCurrentVersion(ctx)
	if err != nil {
		return 0, dberrors.WrapDatabaseError("GetMigrationVersion", err)
	}
	return version, nil
}

// GetStats returns connection pool statistics
func (s *SQLiteService) GetStats() sql.DBStats {
	if s.db == nil {
		return sql.DBStats{}
	}
	return s.db.Stats()
}

// Optimize runs ANALYZE and VACUUM
func (s *SQLiteService) Optimize(ctx context.Context) error {
	if s.db == nil {
		return dberrors.HandleConnectionError("Optimize", "database not connected")
	}

	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Optimize", err, map[string]string{
			"phase": "analyze",
		})
	}

	// Ignored on non-WAL journals
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn("wal_checkpoint failed", "error", err)
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return dberrors.WrapDatabaseErrorWithContext("Optimize", err, map[string]string{
			"phase": "vacuum",
		})
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		s.logger.Warn("PRAGMA optimize failed", "error", err)
	}

	s.logger.Info("Database optimization completed")
	return nil
}

// configureConnectionPool limits the pool to what SQLite can serve
func (s *SQLiteService) configureConnectionPool(db *sql.DB, config *Config) {
	// An in-memory database exists per connection, so it must stay on one
	if config.ForceSingleConnection || config.IsInMemory() || !strings.EqualFold(config.JournalMode, "WAL") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		s.logger.Debug("Configured SQLite for single connection mode", "journalMode", config.JournalMode)
	} else {
		maxConns := min(max(config.MaxConnections, 1), 4)
		idleConns := max(min(config.MaxIdleConns, maxConns), 1)

		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(idleConns)
		s.logger.Debug("Configured SQLite connection pool (WAL mode)",
			"maxOpenConns", maxConns, "maxIdleConns", idleConns)
	}

	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
}

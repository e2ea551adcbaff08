package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pressly/goose/v3"

	"wellbeing/internal/infrastructure/logging"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

var errNilDB = errors.New("database connection is nil")

// MigrationRunner applies the embedded schema migrations. Each call builds its
// own goose Provider, so runners share no global state.
type MigrationRunner struct {
	db     *sql.DB
	logger logging.Logger
}

var _ MigrationManager = (*MigrationRunner)(nil)

// NewMigrationRunner creates a runner for db
func NewMigrationRunner(db *sql.DB, logger logging.Logger) *MigrationRunner {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &MigrationRunner{db: db, logger: logger}
}

func (mr *MigrationRunner) provider() (*goose.Provider, error) {
	if mr.db == nil {
		return nil, errNilDB
	}
	fsys, err := fs.Sub(embedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, mr.db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return p, nil
}

// RunMigrations applies every pending migration
func (mr *MigrationRunner) RunMigrations(ctx context.Context) error {
	p, err := mr.provider()
	if err != nil {
		return err
	}

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, res := range results {
		mr.logger.Info("Applied migration",
			"version", res.Source.Version,
			"file", path.Base(res.Source.Path),
			"duration_ms", res.Duration.Milliseconds())
	}

	if version, err := p.GetDBVersion(ctx); err == nil {
		mr.logger.Debug("Database schema current", "version", version)
	}
	return nil
}

// GetCurrentVersion returns the highest applied migration version
func (mr *MigrationRunner) GetCurrentVersion(ctx context.Context) (int64, error) {
	p, err := mr.provider()
	if err != nil {
		return 0, err
	}
	version, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

// HasPending reports whether embedded migrations remain unapplied
func (mr *MigrationRunner) HasPending(ctx context.Context) (bool, error) {
	p, err := mr.provider()
	if err != nil {
		return false, err
	}
	return p.HasPending(ctx)
}

// ValidateMigrations checks the embedded files without touching a database:
// versions must be unique and start at 1 with no gaps, and every file needs an
// Up section.
func (mr *MigrationRunner) ValidateMigrations() error {
	names, err := fs.Glob(embedMigrations, migrationsDir+"/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations found in embedded filesystem")
	}

	versions := make([]int64, 0, len(names))
	seen := make(map[int64]string, len(names))
	for _, name := range names {
		version, err := goose.NumericComponent(name)
		if err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if prev, dup := seen[version]; dup {
			return fmt.Errorf("migrations %s and %s share version %d", prev, name, version)
		}
		seen[version] = name

		body, err := embedMigrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if !strings.Contains(string(body), "-- +goose Up") {
			return fmt.Errorf("migration %s has no '-- +goose Up' section", name)
		}
		versions = append(versions, version)
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	for i, v := range versions {
		if v != int64(i+1) {
			return fmt.Errorf("migration versions must be contiguous from 1, found %d at position %d", v, i+1)
		}
	}

	mr.logger.Debug("Validated embedded migrations", "count", len(versions))
	return nil
}

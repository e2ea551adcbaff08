package database

import (
	"context"
	"database/sql"
)

// Service is the storage handle the repository is built on
type Service interface {
	Connect(ctx context.Context, config *Config) error
	Close() error
	Health(ctx context.Context) error
	DB() *sql.DB

	Migrator
	Maintainer
}

// Migrator exposes schema state
type Migrator interface {
	Migrate(ctx context.Context) error
	GetMigrationVersion(ctx context.Context) (int64, error)
}

// Maintainer covers housekeeping run from the optimize command
type Maintainer interface {
	Optimize(ctx context.Context) error
	GetStats() sql.DBStats
}

// MigrationManager applies the embedded migrations to one connection
type MigrationManager interface {
	RunMigrations(ctx context.Context) error
	GetCurrentVersion(ctx context.Context) (int64, error)
	HasPending(ctx context.Context) (bool, error)
	ValidateMigrations() error
}

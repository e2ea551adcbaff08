package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"wellbeing/internal/infrastructure/logging"
)

var schemaTables = []string{
	"events",
	"hourly_usage",
	"daily_usage",
	"daily_category_usage",
	"aggregation_runs",
	"app_categories",
	"categories",
	"goose_db_version",
}

func openFileDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_RunMigrations(t *testing.T) {
	db := openFileDB(t, "test_migrations.db")
	runner := NewMigrationRunner(db, logging.NopLogger{})
	ctx := context.Background()

	if err := runner.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	for _, table := range schemaTables {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}

	// website_url arrives in the second migration
	if _, err := db.ExecContext(ctx, `INSERT INTO events (timestamp, app_name, duration_seconds, website_url)
		VALUES (0, 'firefox', 10, 'github.com')`); err != nil {
		t.Errorf("events.website_url missing: %v", err)
	}
}

func TestMigrationRunner_RunMigrations_NilDB(t *testing.T) {
	runner := NewMigrationRunner(nil, nil)

	err := runner.RunMigrations(context.Background())
	if err == nil || err.Error() != "database connection is nil" {
		t.Errorf("Expected nil database error, got %v", err)
	}

	if _, err := runner.GetCurrentVersion(context.Background()); err == nil {
		t.Error("Expected error for nil database")
	}
}

func TestMigrationRunner_GetCurrentVersion(t *testing.T) {
	db := openFileDB(t, "test_version.db")
	runner := NewMigrationRunner(db, nil)
	ctx := context.Background()

	if err := runner.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	version, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != 2 {
		t.Errorf("Expected version 2, got %d", version)
	}
}

func TestMigrationRunner_ValidateMigrations(t *testing.T) {
	runner := NewMigrationRunner(nil, nil)
	if err := runner.ValidateMigrations(); err != nil {
		t.Errorf("Embedded migrations should validate: %v", err)
	}
}

func TestMigrationRunner_MultipleRuns(t *testing.T) {
	db := openFileDB(t, "test_multiple.db")
	runner := NewMigrationRunner(db, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := runner.RunMigrations(ctx); err != nil {
			t.Fatalf("Run %d failed: %v", i+1, err)
		}
	}
}

func TestMigrationRunner_ConcurrentConstruction(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner := NewMigrationRunner(nil, nil)
			if err := runner.ValidateMigrations(); err != nil {
				t.Errorf("ValidateMigrations failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestMigrationRunner_HasPending(t *testing.T) {
	db := openFileDB(t, "test_pending.db")
	runner := NewMigrationRunner(db, nil)
	ctx := context.Background()

	pending, err := runner.HasPending(ctx)
	if err != nil {
		t.Fatalf("HasPending failed: %v", err)
	}
	if !pending {
		t.Error("Expected pending migrations on a fresh database")
	}

	if err := runner.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	pending, err = runner.HasPending(ctx)
	if err != nil {
		t.Fatalf("HasPending failed: %v", err)
	}
	if pending {
		t.Error("Expected no pending migrations after RunMigrations")
	}
}

func TestOpen_WithoutAutoMigrateLeavesSchemaAlone(t *testing.T) {
	config := newFileConfig(t, "no_migrate.db")
	config.AutoMigrate = false

	svc, err := Open(context.Background(), config, logging.NopLogger{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer svc.Close()

	var count int
	err = svc.DB().QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'events'").Scan(&count)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if count != 0 {
		t.Error("events table should not exist without migration")
	}
}

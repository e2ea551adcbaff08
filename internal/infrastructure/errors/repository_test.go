package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ErrCodeUnknown},
		{"no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"wrapped no rows", fmt.Errorf("query: %w", sql.ErrNoRows), ErrCodeNotFound},
		{"conn done", sql.ErrConnDone, ErrCodeConnection},
		{"tx done", sql.ErrTxDone, ErrCodeTransaction},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"unique", errors.New("UNIQUE constraint failed: events.id"), ErrCodeDuplicate},
		{"not null", errors.New("NOT NULL constraint failed: events.app_name"), ErrCodeConstraint},
		{"locked", errors.New("database is locked"), ErrCodeBusy},
		{"malformed", errors.New("database disk image is malformed"), ErrCodeCorruption},
		{"no table", errors.New("no such table: hourly_usage"), ErrCodeSchema},
		{"no column", errors.New("no such column: website_url"), ErrCodeSchema},
		{"permission", errors.New("open wellbeing.db: permission denied"), ErrCodePermission},
		{"disk", errors.New("write: no space left on device"), ErrCodeDiskSpace},
		{"cant open", errors.New("unable to open database file"), ErrCodeConnection},
		{"closed", errors.New("sql: database is closed"), ErrCodeConnection},
		{"timeout", errors.New("i/o timeout"), ErrCodeTimeout},
		{"other", errors.New("something else"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifySQLiteError_PrimaryCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, ErrCodeBusy},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, ErrCodeBusy},
		{"corrupt", sqlite3.Error{Code: sqlite3.ErrCorrupt}, ErrCodeCorruption},
		{"not a db", sqlite3.Error{Code: sqlite3.ErrNotADB}, ErrCodeCorruption},
		{"readonly", sqlite3.Error{Code: sqlite3.ErrReadonly}, ErrCodePermission},
		{"cant open", sqlite3.Error{Code: sqlite3.ErrCantOpen}, ErrCodeConnection},
		{"ioerr", sqlite3.Error{Code: sqlite3.ErrIoErr}, ErrCodeConnection},
		{"full", sqlite3.Error{Code: sqlite3.ErrFull}, ErrCodeDiskSpace},
		{"misuse", sqlite3.Error{Code: sqlite3.ErrMisuse}, ErrCodeInternal},
		{"schema", sqlite3.Error{Code: sqlite3.ErrSchema}, ErrCodeSchema},
		{"primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, ErrCodeDuplicate},
		{"unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, ErrCodeDuplicate},
		{"not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, ErrCodeConstraint},
		{"wrapped", fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), ErrCodeBusy},
		{"not sqlite", errors.New("database is locked"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySQLiteError(tt.err); got != tt.want {
				t.Errorf("classifySQLiteError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapDatabaseError(t *testing.T) {
	if WrapDatabaseError("op", nil) != nil {
		t.Error("expected nil for nil error")
	}

	err := WrapDatabaseError("append_event", errors.New("database is locked"))
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected *PipelineError, got %T", err)
	}
	if pErr.Code != ErrCodeBusy || !pErr.Retryable {
		t.Errorf("got code=%v retryable=%v, want BUSY retryable", pErr.Code, pErr.Retryable)
	}

	err = WrapDatabaseErrorWithContext("events_in_range", sql.ErrNoRows, map[string]string{"from": "2024-01-01"})
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if WrapDatabaseErrorWithContext("op", nil, nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestHandleHelpers(t *testing.T) {
	if err := HandleValidationError("append_event", "app_name", "", "must not be empty"); !IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := HandleConnectionError("ping", "closed"); CodeOf(err) != ErrCodeConnection {
		t.Errorf("expected connection error, got %v", err)
	}
	err := HandleNotFound("last_run", "aggregation_run", "completed")
	if !IsNotFound(err) || !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected not found wrapping sql.ErrNoRows, got %v", err)
	}
	if err := SourceUnavailable("active_window", errors.New("no focus")); !IsSourceUnavailable(err) {
		t.Errorf("expected source unavailable, got %v", err)
	}
}

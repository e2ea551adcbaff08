package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeUnknown, "UNKNOWN"},
		{ErrCodeNotFound, "NOT_FOUND"},
		{ErrCodeBusy, "BUSY"},
		{ErrCodeSourceUnavailable, "SOURCE_UNAVAILABLE"},
		{ErrCodeStoreUnavailable, "STORE_UNAVAILABLE"},
		{ErrCodeAggregation, "AGGREGATION_FAILURE"},
		{ErrCodeCategoryLoad, "CATEGORY_LOAD_FAILURE"},
		{ErrorCode(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.code.String(); got != tt.expected {
				t.Errorf("ErrorCode.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPipelineError_Error(t *testing.T) {
	err := NewWithContext("append_event", errors.New("disk I/O error"), ErrCodeConnection, map[string]string{
		"table": "events",
		"app":   "firefox",
	})

	got := err.Error()
	want := "disk I/O error [op=append_event code=CONNECTION retryable=true app=firefox table=events]"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestPipelineError_ErrorWithoutCause(t *testing.T) {
	err := &PipelineError{Op: "status"}
	if got := err.Error(); got != "pipeline error [op=status]" {
		t.Errorf("Error() = %q", got)
	}

	var nilErr *PipelineError
	if got := nilErr.Error(); got != "pipeline error" {
		t.Errorf("nil Error() = %q", got)
	}
}

func TestPipelineError_UnwrapAndIs(t *testing.T) {
	cause := errors.New("boom")
	err := New("run", cause, ErrCodeAggregation)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if !errors.Is(err, &PipelineError{Code: ErrCodeAggregation}) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(err, &PipelineError{Code: ErrCodeTimeout}) {
		t.Error("expected errors.Is not to match a different code")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var pErr *PipelineError
	if !errors.As(wrapped, &pErr) || pErr.Op != "run" {
		t.Errorf("errors.As failed to extract pipeline error: %v", pErr)
	}
}

func TestNewWithContext_CopiesMap(t *testing.T) {
	ctx := map[string]string{"k": "v"}
	err := NewWithContext("op", errors.New("x"), ErrCodeValidation, ctx)
	ctx["k"] = "changed"

	if err.GetContext()["k"] != "v" {
		t.Errorf("context was not copied, got %q", err.GetContext()["k"])
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		code ErrorCode
		err  error
		want bool
	}{
		{"connection", ErrCodeConnection, errors.New("x"), true},
		{"busy", ErrCodeBusy, errors.New("x"), true},
		{"store unavailable", ErrCodeStoreUnavailable, errors.New("x"), true},
		{"validation", ErrCodeValidation, errors.New("x"), false},
		{"corruption", ErrCodeCorruption, errors.New("x"), false},
		{"source unavailable", ErrCodeSourceUnavailable, errors.New("x"), false},
		{"aggregation", ErrCodeAggregation, errors.New("x"), false},
		{"unknown temporary", ErrCodeUnknown, errors.New("temporary glitch"), true},
		{"unknown locked", ErrCodeUnknown, errors.New("table is LOCKED"), true},
		{"unknown other", ErrCodeUnknown, errors.New("bad input"), false},
		{"unknown nil", ErrCodeUnknown, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.code, tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v, %v) = %v, want %v", tt.code, tt.err, got, tt.want)
			}
		})
	}
}

func TestPredicates_WalkChain(t *testing.T) {
	inner := StoreUnavailable("append_event", errors.New("unable to open database file"))
	outer := AggregationFailure("run", inner, map[string]string{"run_id": "abc"})
	wrapped := fmt.Errorf("tick: %w", outer)

	if !IsAggregationFailure(wrapped) {
		t.Error("expected aggregation failure")
	}
	if !IsStoreUnavailable(wrapped) {
		t.Error("expected store unavailable to be found through the chain")
	}
	if IsSourceUnavailable(wrapped) {
		t.Error("did not expect source unavailable")
	}
	if CodeOf(wrapped) != ErrCodeAggregation {
		t.Errorf("CodeOf = %v, want outermost code", CodeOf(wrapped))
	}
	if IsRetryable(wrapped) {
		t.Error("outermost aggregation failure should not be retryable")
	}
}

func TestPredicates_PlainErrors(t *testing.T) {
	plain := errors.New("plain")

	if IsNotFound(plain) || IsValidation(plain) || IsTimeout(plain) || IsCategoryLoad(plain) {
		t.Error("plain errors must not match any predicate")
	}
	if CodeOf(plain) != ErrCodeUnknown {
		t.Errorf("CodeOf(plain) = %v", CodeOf(plain))
	}
	if HasCode(nil, ErrCodeUnknown) {
		t.Error("HasCode(nil) should be false")
	}
}

func TestCategoryLoadFailure(t *testing.T) {
	err := CategoryLoadFailure("load_rules", errors.New("invalid character"), "/tmp/categories.json")

	if !IsCategoryLoad(err) {
		t.Fatal("expected category load failure")
	}
	if !strings.Contains(err.Error(), "source=/tmp/categories.json") {
		t.Errorf("expected source in message, got %q", err.Error())
	}
}

package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorCode represents the classification of a pipeline error
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeNotFound
	ErrCodeDuplicate
	ErrCodeConstraint
	ErrCodeConnection
	ErrCodeTransaction
	ErrCodeTimeout
	ErrCodeValidation
	ErrCodePermission
	ErrCodeDiskSpace
	ErrCodeCorruption
	ErrCodeInternal
	ErrCodeBusy
	ErrCodeSchema

	// Pipeline-level codes
	ErrCodeSourceUnavailable
	ErrCodeStoreUnavailable
	ErrCodeAggregation
	ErrCodeCategoryLoad
)

var codeNames = map[ErrorCode]string{
	ErrCodeNotFound:          "NOT_FOUND",
	ErrCodeDuplicate:         "DUPLICATE",
	ErrCodeConstraint:        "CONSTRAINT",
	ErrCodeConnection:        "CONNECTION",
	ErrCodeTransaction:       "TRANSACTION",
	ErrCodeTimeout:           "TIMEOUT",
	ErrCodeValidation:        "VALIDATION",
	ErrCodePermission:        "PERMISSION",
	ErrCodeDiskSpace:         "DISK_SPACE",
	ErrCodeCorruption:        "CORRUPTION",
	ErrCodeInternal:          "INTERNAL",
	ErrCodeBusy:              "BUSY",
	ErrCodeSchema:            "SCHEMA",
	ErrCodeSourceUnavailable: "SOURCE_UNAVAILABLE",
	ErrCodeStoreUnavailable:  "STORE_UNAVAILABLE",
	ErrCodeAggregation:       "AGGREGATION_FAILURE",
	ErrCodeCategoryLoad:      "CATEGORY_LOAD_FAILURE",
}

// String returns a string representation of the error code
func (e ErrorCode) String() string {
	if name, ok := codeNames[e]; ok {
		return name
	}
	return "UNKNOWN"
}

// PipelineError carries an operation name, a classification and retry information
type PipelineError struct {
	Op        string            // operation name
	Err       error             // underlying error
	Code      ErrorCode         // error classification
	Retryable bool              // whether the error is retryable
	Context   map[string]string // additional context information
	Timestamp time.Time         // when the error occurred
}

func (e *PipelineError) Error() string {
	if e == nil {
		return "pipeline error"
	}

	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.Code != ErrCodeUnknown {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code.String()))
	}

	if e.Retryable {
		parts = append(parts, "retryable=true")
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, e.Context[k]))
		}
	}

	contextStr := ""
	if len(parts) > 0 {
		contextStr = fmt.Sprintf(" [%s]", strings.Join(parts, " "))
	}

	if e.Err != nil {
		return e.Err.Error() + contextStr
	}
	return "pipeline error" + contextStr
}

func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *PipelineError by code, otherwise defers to the wrapped error
func (e *PipelineError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*PipelineError); ok {
		return e.Code == t.Code
	}
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// IsRetryable returns whether the error is retryable
func (e *PipelineError) IsRetryable() bool {
	if e == nil {
		return false
	}
	return e.Retryable
}

// GetCode returns the error code as a string (for logging interface compatibility)
func (e *PipelineError) GetCode() string {
	if e == nil {
		return ErrCodeUnknown.String()
	}
	return e.Code.String()
}

// GetContext returns the error context (for logging interface compatibility)
func (e *PipelineError) GetContext() map[string]string {
	if e == nil || e.Context == nil {
		return make(map[string]string)
	}
	return e.Context
}

// GetTimestamp returns the error timestamp (for logging interface compatibility)
func (e *PipelineError) GetTimestamp() time.Time {
	if e == nil {
		return time.Time{}
	}
	return e.Timestamp
}

// New creates a pipeline error with the given parameters
func New(op string, err error, code ErrorCode) *PipelineError {
	return &PipelineError{
		Op:        op,
		Err:       err,
		Code:      code,
		Retryable: isRetryableError(code, err),
		Context:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// NewWithContext creates a pipeline error with additional context.
// The context map is copied so callers may keep mutating their own.
func NewWithContext(op string, err error, code ErrorCode, context map[string]string) *PipelineError {
	pErr := New(op, err, code)
	for k, v := range context {
		pErr.Context[k] = v
	}
	return pErr
}

// isRetryableError determines if an error is retryable based on its code
func isRetryableError(code ErrorCode, err error) bool {
	switch code {
	case ErrCodeConnection, ErrCodeTimeout, ErrCodeTransaction, ErrCodeBusy, ErrCodeStoreUnavailable:
		return true
	case ErrCodeUnknown:
		if err != nil {
			errStr := strings.ToLower(err.Error())
			return strings.Contains(errStr, "temporary") ||
				strings.Contains(errStr, "busy") ||
				strings.Contains(errStr, "locked")
		}
		return false
	default:
		// Disk space, corruption and schema problems need external intervention.
		// Source, aggregation and category failures are retried by the next tick, not inline.
		return false
	}
}

// CodeOf returns the code of the first PipelineError in err's chain
func CodeOf(err error) ErrorCode {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return ErrCodeUnknown
}

// HasCode reports whether any PipelineError in err's chain carries the given code
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var pErr *PipelineError
		if !errors.As(err, &pErr) {
			return false
		}
		if pErr.Code == code {
			return true
		}
		err = pErr.Err
	}
	return false
}

// IsNotFound checks if the error is a "not found" error
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

// IsConnection checks if the error is a connection error
func IsConnection(err error) bool {
	return HasCode(err, ErrCodeConnection)
}

// IsTimeout checks if the error is a timeout error
func IsTimeout(err error) bool {
	return HasCode(err, ErrCodeTimeout)
}

// IsSourceUnavailable checks if the window-state source failed
func IsSourceUnavailable(err error) bool {
	return HasCode(err, ErrCodeSourceUnavailable)
}

// IsStoreUnavailable checks if the storage layer could not be reached
func IsStoreUnavailable(err error) bool {
	return HasCode(err, ErrCodeStoreUnavailable) || HasCode(err, ErrCodeConnection)
}

// IsAggregationFailure checks if an aggregation run aborted
func IsAggregationFailure(err error) bool {
	return HasCode(err, ErrCodeAggregation)
}

// IsCategoryLoad checks if the category rules could not be loaded
func IsCategoryLoad(err error) bool {
	return HasCode(err, ErrCodeCategoryLoad)
}

// IsRetryable checks if the outermost pipeline error is retryable
func IsRetryable(err error) bool {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Retryable
	}
	return false
}

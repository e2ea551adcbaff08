package errors

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ClassifyError classifies storage errors into pipeline error codes
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}

	// Driver-specific classification is more accurate than string matching
	if code := classifySQLiteError(err); code != ErrCodeUnknown {
		return code
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrCodeNotFound
	case errors.Is(err, sql.ErrConnDone):
		return ErrCodeConnection
	case errors.Is(err, sql.ErrTxDone):
		return ErrCodeTransaction
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrCodeTimeout
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "unique constraint"):
		return ErrCodeDuplicate
	case strings.Contains(errStr, "constraint failed"):
		return ErrCodeConstraint
	case strings.Contains(errStr, "database is locked"), strings.Contains(errStr, "database is busy"):
		return ErrCodeBusy
	case strings.Contains(errStr, "database disk image is malformed"):
		return ErrCodeCorruption
	case strings.Contains(errStr, "no such table"), strings.Contains(errStr, "no such column"):
		return ErrCodeSchema
	case strings.Contains(errStr, "permission denied"), strings.Contains(errStr, "access denied"):
		return ErrCodePermission
	case strings.Contains(errStr, "disk full"), strings.Contains(errStr, "no space left"):
		return ErrCodeDiskSpace
	case strings.Contains(errStr, "unable to open database"), strings.Contains(errStr, "sql: database is closed"):
		return ErrCodeConnection
	case strings.Contains(errStr, "timeout"):
		return ErrCodeTimeout
	default:
		return ErrCodeUnknown
	}
}

// WrapDatabaseError wraps a storage error with its classification
func WrapDatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return New(op, err, ClassifyError(err))
}

// WrapDatabaseErrorWithContext wraps a storage error with its classification and context
func WrapDatabaseErrorWithContext(op string, err error, contextMap map[string]string) error {
	if err == nil {
		return nil
	}
	return NewWithContext(op, err, ClassifyError(err), contextMap)
}

// HandleValidationError creates a standardized validation error
func HandleValidationError(op string, field string, value string, reason string) error {
	return NewWithContext(op, errors.New("validation failed"), ErrCodeValidation, map[string]string{
		"field":  field,
		"value":  value,
		"reason": reason,
	})
}

// HandleConnectionError creates a standardized connection error
func HandleConnectionError(op string, details string) error {
	return NewWithContext(op, errors.New("connection error"), ErrCodeConnection, map[string]string{
		"details": details,
	})
}

// HandleNotFound creates a standardized not found error
func HandleNotFound(op string, resource string, identifier string) error {
	return NewWithContext(op, sql.ErrNoRows, ErrCodeNotFound, map[string]string{
		"resource":   resource,
		"identifier": identifier,
	})
}

// SourceUnavailable wraps a window-state source failure
func SourceUnavailable(op string, err error) error {
	return New(op, err, ErrCodeSourceUnavailable)
}

// StoreUnavailable wraps a storage failure that persisted through retries
func StoreUnavailable(op string, err error) error {
	return New(op, err, ErrCodeStoreUnavailable)
}

// AggregationFailure wraps any error that aborted an aggregation run
func AggregationFailure(op string, err error, contextMap map[string]string) error {
	return NewWithContext(op, err, ErrCodeAggregation, contextMap)
}

// CategoryLoadFailure wraps a failure to read the category rule set
func CategoryLoadFailure(op string, err error, source string) error {
	return NewWithContext(op, err, ErrCodeCategoryLoad, map[string]string{
		"source": source,
	})
}

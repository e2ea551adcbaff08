package errors

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// extendedCodes take precedence over primaryCodes
var extendedCodes = map[sqlite3.ErrNoExtended]ErrorCode{
	sqlite3.ErrConstraintUnique:     ErrCodeDuplicate,
	sqlite3.ErrConstraintPrimaryKey: ErrCodeDuplicate,
	sqlite3.ErrConstraintForeignKey: ErrCodeConstraint,
	sqlite3.ErrConstraintCheck:      ErrCodeConstraint,
	sqlite3.ErrConstraintNotNull:    ErrCodeConstraint,
	sqlite3.ErrConstraintTrigger:    ErrCodeConstraint,
	sqlite3.ErrConstraintRowID:      ErrCodeConstraint,
}

var primaryCodes = map[sqlite3.ErrNo]ErrorCode{
	sqlite3.ErrCorrupt:  ErrCodeCorruption,
	sqlite3.ErrNotADB:   ErrCodeCorruption,
	sqlite3.ErrPerm:     ErrCodePermission,
	sqlite3.ErrAuth:     ErrCodePermission,
	sqlite3.ErrReadonly: ErrCodePermission,
	// transient while the sampler and an aggregation run write concurrently
	sqlite3.ErrBusy:     ErrCodeBusy,
	sqlite3.ErrLocked:   ErrCodeBusy,
	sqlite3.ErrCantOpen: ErrCodeConnection,
	sqlite3.ErrIoErr:    ErrCodeConnection,
	sqlite3.ErrFull:     ErrCodeDiskSpace,
	sqlite3.ErrMisuse:   ErrCodeInternal,
	sqlite3.ErrSchema:   ErrCodeSchema,
}

// classifySQLiteError maps a go-sqlite3 error to an ErrorCode. Anything that
// is not a driver error yields ErrCodeUnknown and is left to message matching.
func classifySQLiteError(err error) ErrorCode {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return ErrCodeUnknown
	}

	if code, ok := extendedCodes[sqliteErr.ExtendedCode]; ok {
		return code
	}
	if sqliteErr.Code == sqlite3.ErrConstraint {
		if strings.Contains(strings.ToLower(sqliteErr.Error()), "unique") {
			return ErrCodeDuplicate
		}
		return ErrCodeConstraint
	}
	if code, ok := primaryCodes[sqliteErr.Code]; ok {
		return code
	}
	return ErrCodeUnknown
}

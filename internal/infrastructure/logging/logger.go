package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger interface for pipeline components
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Level is a minimum severity filter
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a config string to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// DefaultLogger writes one JSON object per line
type DefaultLogger struct {
	mu    sync.Mutex
	out   *log.Logger
	level Level
	nowFn func() time.Time
}

// NewDefaultLogger creates a logger at info level writing to stderr
func NewDefaultLogger() Logger {
	return NewLogger(os.Stderr, LevelInfo)
}

// NewLogger creates a logger writing to w, dropping entries below level
func NewLogger(w io.Writer, level Level) *DefaultLogger {
	if w == nil {
		w = os.Stderr
	}
	return &DefaultLogger{
		out:   log.New(w, "", 0),
		level: level,
		nowFn: time.Now,
	}
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

// logEntry represents a structured log entry
type logEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
}

// fieldsToMap converts the variadic fields slice to a map
// Expected format: key1, value1, key2, value2, ...
func fieldsToMap(fields []interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			if key, ok := fields[i].(string); ok {
				result[key] = normalizeValue(fields[i+1])
			} else {
				result[fmt.Sprintf("field_%d", i/2)] = fields[i]
				result[fmt.Sprintf("field_%d_value", i/2)] = normalizeValue(fields[i+1])
			}
		} else {
			// Odd number of fields, add the last one with an index key
			result[fmt.Sprintf("field_%d", i/2)] = fields[i]
		}
	}

	return result
}

// errors and durations marshal poorly as-is
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case error:
		return val.Error()
	case time.Duration:
		return val.String()
	default:
		return v
	}
}

func (l *DefaultLogger) logStructured(level Level, msg string, fields []interface{}) {
	if level < l.level {
		return
	}

	entry := logEntry{
		Timestamp: l.nowFn().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   msg,
		Fields:    fieldsToMap(fields),
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		fallbackFields := fmt.Sprintf("%v", fields)
		fallbackEntry := logEntry{
			Timestamp: entry.Timestamp,
			Level:     entry.Level,
			Message:   msg,
			Fields: map[string]interface{}{
				"original_fields": fallbackFields,
				"marshal_error":   err.Error(),
			},
		}

		if jsonBytes, err = json.Marshal(fallbackEntry); err != nil {
			l.mu.Lock()
			l.out.Printf("[%s] %s %s", entry.Level, msg, fallbackFields)
			l.mu.Unlock()
			return
		}
	}

	l.mu.Lock()
	l.out.Println(string(jsonBytes))
	l.mu.Unlock()
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) {
	l.logStructured(LevelDebug, msg, fields)
}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	l.logStructured(LevelInfo, msg, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	l.logStructured(LevelWarn, msg, fields)
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	l.logStructured(LevelError, msg, fields)
}

// With returns a logger that prepends fields to every entry
func With(logger Logger, fields ...interface{}) Logger {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &fieldLogger{base: logger, fields: fields}
}

type fieldLogger struct {
	base   Logger
	fields []interface{}
}

func (f *fieldLogger) merge(fields []interface{}) []interface{} {
	out := make([]interface{}, 0, len(f.fields)+len(fields))
	out = append(out, f.fields...)
	return append(out, fields...)
}

func (f *fieldLogger) Debug(msg string, fields ...interface{}) { f.base.Debug(msg, f.merge(fields)...) }
func (f *fieldLogger) Info(msg string, fields ...interface{})  { f.base.Info(msg, f.merge(fields)...) }
func (f *fieldLogger) Warn(msg string, fields ...interface{})  { f.base.Warn(msg, f.merge(fields)...) }
func (f *fieldLogger) Error(msg string, fields ...interface{}) { f.base.Error(msg, f.merge(fields)...) }

// ClassifiedError is satisfied by the pipeline error type without importing it
type ClassifiedError interface {
	Error() string
	GetCode() string
	IsRetryable() bool
	GetContext() map[string]string
	GetTimestamp() time.Time
}

// LogError logs err with its classification when available
func LogError(logger Logger, err error, operation string, context map[string]interface{}) {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if err == nil {
		return
	}

	var cErr ClassifiedError
	if errors.As(err, &cErr) {
		fields := []interface{}{
			"operation", operation,
			"error_code", cErr.GetCode(),
			"retryable", cErr.IsRetryable(),
			"timestamp", cErr.GetTimestamp(),
		}

		for k, v := range cErr.GetContext() {
			fields = append(fields, k, v)
		}
		for k, v := range context {
			fields = append(fields, k, v)
		}

		logger.Error(fmt.Sprintf("Pipeline error: %s", err.Error()), fields...)
		return
	}

	fields := []interface{}{
		"operation", operation,
		"error_type", fmt.Sprintf("%T", err),
	}
	for k, v := range context {
		fields = append(fields, k, v)
	}

	logger.Error(fmt.Sprintf("Unexpected error: %s", err.Error()), fields...)
}

// LogOperation logs a completed operation with its duration
func LogOperation(logger Logger, operation string, duration time.Duration, context map[string]interface{}) {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	fields := []interface{}{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}
	for k, v := range context {
		fields = append(fields, k, v)
	}

	logger.Debug(fmt.Sprintf("Operation completed: %s", operation), fields...)
}

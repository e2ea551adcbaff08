package errors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"wellbeing/internal/infrastructure/logging"
)

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	MaxAttempts     int           // Maximum number of attempts, including the first
	InitialDelay    time.Duration // Initial delay between retries
	MaxDelay        time.Duration // Maximum delay between retries
	BackoffFactor   float64       // Exponential backoff factor
	Jitter          bool          // Whether to add jitter to delays
	RetryableErrors []ErrorCode   // Specific error codes to retry
	Logger          logging.Logger
}

// DefaultRetryConfig returns a retry configuration with sensible defaults
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeTimeout,
			ErrCodeTransaction,
			ErrCodeBusy,
		},
	}
}

// QuickRetryConfig is used on the sampling path, which must finish well within one tick
func QuickRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        false,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeBusy,
		},
	}
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func() error

// WithRetry executes an operation with retry logic
func WithRetry(ctx context.Context, config *RetryConfig, operation RetryableOperation) error {
	return WithRetryContext(ctx, config, operation, "")
}

// WithRetryContext runs operation until it succeeds, returns a non-retryable
// error, exhausts MaxAttempts or ctx is done. operationName labels log output.
func WithRetryContext(ctx context.Context, config *RetryConfig, operation RetryableOperation, operationName string) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if operationName == "" {
		operationName = "unnamed"
	}
	attempts := max(config.MaxAttempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		if err = operation(); err == nil {
			if attempt > 1 {
				logRetry(config, "Operation succeeded after retries", "operation", operationName, "attempts", attempt)
			}
			return nil
		}
		if !shouldRetry(err, config) {
			return err
		}
		if attempt == attempts {
			return fmt.Errorf("operation '%s' failed after %d attempts: %w", operationName, attempts, err)
		}

		delay := calculateDelay(attempt-1, config)
		logRetry(config, "Operation failed, retrying",
			"operation", operationName,
			"attempt", attempt,
			"max_attempts", attempts,
			"delay_ms", delay.Milliseconds(),
			"error", err.Error())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("operation '%s' cancelled during retry: %w", operationName, ctx.Err())
		case <-timer.C:
		}
	}
}

func logRetry(config *RetryConfig, msg string, fields ...interface{}) {
	if config.Logger != nil {
		config.Logger.Debug(msg, fields...)
	}
}

// shouldRetry reports whether err is a retryable PipelineError whose code is listed in config
func shouldRetry(err error, config *RetryConfig) bool {
	var pErr *PipelineError
	return errors.As(err, &pErr) && pErr.IsRetryable() && slices.Contains(config.RetryableErrors, pErr.Code)
}

// calculateDelay grows InitialDelay by BackoffFactor per attempt, adds up to
// 25% jitter when enabled, and caps the result at MaxDelay
func calculateDelay(attempt int, config *RetryConfig) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))

	if config.Jitter && delay > 0 {
		if spread := int64(delay) / 4; spread > 0 {
			delay += time.Duration(rand.Int64N(spread))
		}
	}

	return min(delay, config.MaxDelay)
}

package retry

import (
	"context"
	"fmt"
	"time"

	"imgharvest/pkg/logger"
)

// Result is the explicit outcome of a single attempt
type Result[T any] struct {
	Value     T
	Err       error
	Retryable bool
}

// OK reports whether the attempt succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Success wraps a successful attempt
func Success[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

// Failure wraps a failed attempt that may be retried
func Failure[T any](err error) Result[T] {
	return Result[T]{Err: err, Retryable: true}
}

// Permanent wraps a failed attempt that must not be retried
func Permanent[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Outcome is the final result of a bounded retry loop
type Outcome[T any] struct {
	Result[T]
	// Attempts is the number of attempts that ran
	Attempts int
	// Exhausted is true when every attempt failed with a retryable error
	Exhausted bool
}

// Attempt performs one attempt; attempt is 1-based
type Attempt[T any] func(ctx context.Context, attempt int) Result[T]

// Config holds retry configuration
type Config struct {
	// MaxAttempts bounds the loop; values below 1 mean a single attempt
	MaxAttempts int
	// Backoff computes the delay after a failed attempt
	Backoff BackoffStrategy
	// Sleep waits between attempts; defaults to Wait
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns three attempts with a one second linear backoff
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultLinearBackoff(),
		Logger:      logger.NewNopLogger(),
	}
}

// Run executes op until it succeeds, fails permanently, the attempts are
// exhausted or ctx is cancelled. The returned Outcome always carries the
// result of the last attempt that ran.
func Run[T any](ctx context.Context, cfg *Config, op Attempt[T]) Outcome[T] {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Wait
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var out Outcome[T]
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out.Result = op(ctx, attempt)
		out.Attempts = attempt

		if out.OK() {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return out
		}
		if !out.Retryable {
			return out
		}
		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, out.Err, delay)
		}
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        out.Err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": maxAttempts,
		})

		if err := sleep(ctx, delay); err != nil {
			out.Err = fmt.Errorf("retry cancelled: %w", err)
			out.Retryable = false
			return out
		}
	}

	out.Exhausted = true
	log.WarnWithFields("max retry attempts exceeded", map[string]interface{}{
		"attempts":   out.Attempts,
		"last_error": out.Err.Error(),
	})
	return out
}

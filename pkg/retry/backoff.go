package retry

import (
	"context"
	"time"
)

// BackoffStrategy computes the wait after a failed attempt
type BackoffStrategy interface {
	// NextDelay returns the delay to wait after the given (1-based) attempt failed
	NextDelay(attempt int) time.Duration
}

// LinearBackoff waits BaseDelay * attempt, capped at MaxDelay when MaxDelay is set
type LinearBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultLinearBackoff returns a linear backoff with a one second base
func DefaultLinearBackoff() *LinearBackoff {
	return &LinearBackoff{BaseDelay: time.Second}
}

// NextDelay calculates the next delay with linear backoff
func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := lb.BaseDelay * time.Duration(attempt)
	if lb.MaxDelay > 0 && delay > lb.MaxDelay {
		delay = lb.MaxDelay
	}
	return delay
}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

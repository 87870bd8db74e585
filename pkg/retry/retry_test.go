package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgharvest/pkg/logger"
)

// recordSleeps replaces the real wait so tests run instantly
func recordSleeps(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestLinearBackoff(t *testing.T) {
	backoff := &LinearBackoff{BaseDelay: 100 * time.Millisecond}

	assert.Equal(t, time.Duration(0), backoff.NextDelay(0))
	assert.Equal(t, 100*time.Millisecond, backoff.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, backoff.NextDelay(2))
	assert.Equal(t, 300*time.Millisecond, backoff.NextDelay(3))

	capped := &LinearBackoff{BaseDelay: time.Second, MaxDelay: 2 * time.Second}
	assert.Equal(t, 2*time.Second, capped.NextDelay(5))
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 50 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, backoff.NextDelay(1))
	assert.Equal(t, 50*time.Millisecond, backoff.NextDelay(7))
}

func TestRunFailsTwiceThenSucceeds(t *testing.T) {
	var delays []time.Duration
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &LinearBackoff{BaseDelay: time.Second},
		Sleep:       recordSleeps(&delays),
	}

	calls := 0
	out := Run(context.Background(), cfg, func(ctx context.Context, attempt int) Result[string] {
		calls++
		if attempt < 3 {
			return Failure[string](errors.New("temporary"))
		}
		return Success("third")
	})

	require.True(t, out.OK())
	assert.Equal(t, "third", out.Value)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, calls)
	assert.False(t, out.Exhausted)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestRunExhausted(t *testing.T) {
	var delays []time.Duration
	log := logger.NewTestLogger()
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &LinearBackoff{BaseDelay: 10 * time.Millisecond},
		Sleep:       recordSleeps(&delays),
		Logger:      log,
	}

	out := Run(context.Background(), cfg, func(ctx context.Context, attempt int) Result[int] {
		return Failure[int](errors.New("persistent"))
	})

	assert.False(t, out.OK())
	assert.True(t, out.Exhausted)
	assert.Equal(t, 3, out.Attempts)
	assert.EqualError(t, out.Err, "persistent")
	// No wait after the final attempt
	assert.Len(t, delays, 2)
	assert.True(t, log.HasMessage("max retry attempts exceeded"))
}

func TestRunPermanentStopsImmediately(t *testing.T) {
	calls := 0
	out := Run(context.Background(), &Config{MaxAttempts: 5}, func(ctx context.Context, attempt int) Result[int] {
		calls++
		return Permanent[int](errors.New("not an image"))
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, out.Attempts)
	assert.False(t, out.Exhausted)
	assert.EqualError(t, out.Err, "not an image")
}

func TestRunSingleAttempt(t *testing.T) {
	out := Run(context.Background(), &Config{MaxAttempts: 0}, func(ctx context.Context, attempt int) Result[int] {
		return Failure[int](errors.New("once"))
	})

	assert.Equal(t, 1, out.Attempts)
	assert.True(t, out.Exhausted)
}

func TestRunContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
	}

	calls := 0
	out := Run(ctx, cfg, func(ctx context.Context, attempt int) Result[int] {
		calls++
		cancel()
		return Failure[int](errors.New("temporary"))
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.False(t, out.Exhausted)
}

func TestOnRetryCallback(t *testing.T) {
	var seen []int
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			seen = append(seen, attempt)
		},
	}

	Run(context.Background(), cfg, func(ctx context.Context, attempt int) Result[int] {
		return Failure[int](errors.New("x"))
	})

	assert.Equal(t, []int{1, 2}, seen)
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

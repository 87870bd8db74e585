package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests
type Limiter interface {
	// Wait blocks until the next request may start or ctx is done
	Wait(ctx context.Context) error
	// Reset forgets previous requests so the next Wait returns immediately
	Reset()
}

// Pacer enforces a fixed minimum interval between consecutive requests.
// The first Wait returns immediately. A zero interval never waits.
type Pacer struct {
	interval time.Duration
	limiter  *rate.Limiter
}

// NewPacer creates a pacer with the given minimum interval
func NewPacer(interval time.Duration) *Pacer {
	p := &Pacer{interval: interval}
	p.Reset()
	return p
}

// Interval returns the configured minimum interval
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the interval since the previous request has elapsed
func (p *Pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Reset restores a full token so the next Wait does not block
func (p *Pacer) Reset() {
	if p.interval <= 0 {
		p.limiter = nil
		return
	}
	p.limiter = rate.NewLimiter(rate.Every(p.interval), 1)
}

// Nop returns a limiter that never waits
func Nop() Limiter {
	return NewPacer(0)
}

package ratelimit

import (
	"context"
	"sync"
	"time"

	"teepress/internal/ports"
)

// safetyMargin pads the computed wait so the oldest call is comfortably
// outside the window when we wake up, not exactly on its edge.
const safetyMargin = time.Second

// Limiter enforces a sliding-window request budget plus a minimum spacing
// between consecutive calls, mirroring how the fulfillment platform meters
// requests over a trailing window.
type Limiter struct {
	maxRequests int
	window      time.Duration
	minInterval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	calls []time.Time
	last  time.Time
}

var _ ports.Limiter = (*Limiter)(nil)

// New builds a limiter allowing maxRequests per trailing window, with at
// least minInterval between consecutive calls.
func New(maxRequests int, window, minInterval time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		minInterval: minInterval,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Wait blocks until one more call fits the budget, then records that call.
// It returns early only when ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		var d time.Duration
		if l.maxRequests > 0 && len(l.calls) >= l.maxRequests {
			d = l.window - now.Sub(l.calls[0]) + safetyMargin
		} else if l.minInterval > 0 && !l.last.IsZero() {
			if since := now.Sub(l.last); since < l.minInterval {
				d = l.minInterval - since
			}
		}

		if d <= 0 {
			l.calls = append(l.calls, now)
			l.last = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if err := l.sleep(ctx, d); err != nil {
			return err
		}
	}
}

// prune drops timestamps that have slid out of the window.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

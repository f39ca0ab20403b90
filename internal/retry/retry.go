package retry

import (
	"context"
	"math/rand"
	"time"

	"teepress/internal/domain"
)

// Policy bounds repeated attempts with exponential backoff and jitter.
// Only transient failures are retried; anything else stops immediately.
// A Retry-After hint on the error replaces the computed delay, capped at
// MaxDelay like everything else.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(d time.Duration) time.Duration
}

// Do runs fn until it succeeds, fails non-transiently, or uses up
// MaxAttempts. The last error is returned unwrapped so callers can still
// classify it.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	jitter := p.jitter
	if jitter == nil {
		jitter = fullJitter
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !domain.IsTransient(err) || attempt == attempts {
			return err
		}

		delay, hinted := domain.RetryAfterHint(err)
		if !hinted {
			delay = jitter(p.backoff(attempt))
		}
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}

		if sErr := sleep(ctx, delay); sErr != nil {
			return sErr
		}
	}

	return err
}

// backoff doubles the base delay per completed attempt.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// fullJitter spreads sleeps across [d/2, d).
func fullJitter(d time.Duration) time.Duration {
	if d <= time.Millisecond {
		return d
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)))
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

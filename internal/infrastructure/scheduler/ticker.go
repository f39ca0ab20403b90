package scheduler

import (
	"context"
	"fmt"
	"time"

	"teepress/internal/ports"
)

// Interval fires a job immediately and then on a fixed period. It is the
// polling counterpart to the filesystem watcher for staging directories
// where inotify events never arrive, network mounts mostly.
type Interval struct {
	period time.Duration
	stop   chan struct{}
}

var _ ports.Scheduler = (*Interval)(nil)

// NewInterval builds a scheduler firing every period.
func NewInterval(period time.Duration) *Interval {
	return &Interval{period: period}
}

// Start runs job once right away and then on every tick until ctx ends or
// Stop is called. Starting an already running scheduler is a no-op.
func (s *Interval) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if s.period <= 0 {
		return fmt.Errorf("rescan period must be positive, got %s", s.period)
	}
	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.period)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine. Safe to call more than once.
func (s *Interval) Stop() error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}

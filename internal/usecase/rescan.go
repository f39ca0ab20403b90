package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"teepress/internal/ports"
)

// DesignSource lists the design files currently staged on disk.
type DesignSource interface {
	Collect() ([]string, error)
}

// Rescanner sweeps the staging directory on a fixed cadence and drives
// whatever it finds through the pipeline. The fingerprint ledger keeps
// repeat passes cheap, already-published designs are skipped.
type Rescanner struct {
	driver   ports.Scheduler
	source   DesignSource
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewRescanner(driver ports.Scheduler, source DesignSource, pipeline *Pipeline, logger *slog.Logger) *Rescanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rescanner{driver: driver, source: source, pipeline: pipeline, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping the directory on every pass.
// Per-design failures are tracked, never fatal.
func (r *Rescanner) Run(ctx context.Context) error {
	job := func(trigger time.Time) {
		paths, err := r.source.Collect()
		if err != nil {
			r.logger.Error("scan designs", "error", err)
			return
		}
		if len(paths) == 0 {
			return
		}
		r.logger.Debug("rescan pass", "designs", len(paths), "trigger", trigger.Format(time.RFC3339))
		if _, err := r.pipeline.ProcessBatch(ctx, paths); err != nil && ctx.Err() == nil {
			r.logger.Error("process rescanned designs", "error", err)
		}
	}

	if err := r.driver.Start(ctx, job); err != nil {
		return fmt.Errorf("start rescan schedule: %w", err)
	}
	r.logger.Info("rescanning for new designs")

	<-ctx.Done()
	if err := r.driver.Stop(); err != nil {
		r.logger.Warn("stop rescan schedule", "error", err)
	}
	r.logger.Info("rescan stopped")
	return nil
}

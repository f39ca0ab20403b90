package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"teepress/internal/ports"
)

// Watcher feeds filesystem events into the pipeline so freshly staged
// designs get published without a manual run.
type Watcher struct {
	source   ports.DirWatcher
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewWatcher(source ports.DirWatcher, pipeline *Pipeline, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{source: source, pipeline: pipeline, logger: logger}
}

// Run blocks until ctx is cancelled, processing each new design as it
// settles on disk. Per-design failures are tracked, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	paths, err := w.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("start directory watch: %w", err)
	}

	w.logger.Info("watching for new designs")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return nil
		case path := <-paths:
			if _, err := w.pipeline.ProcessBatch(ctx, []string{path}); err != nil {
				if ctx.Err() != nil {
					w.logger.Info("watch stopped")
					return nil
				}
				w.logger.Error("process watched design", "file", path, "error", err)
			}
		}
	}
}

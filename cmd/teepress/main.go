package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"teepress/internal/app"
	"teepress/internal/config"
	"teepress/internal/logging"
)

func main() {
	var (
		configPath     = flag.String("config", "", "path to YAML config (default $TEEPRESS_CONFIG)")
		dir            = flag.String("dir", "", "designs directory (default from config)")
		file           = flag.String("file", "", "process a single design file")
		dryRun         = flag.Bool("dry-run", false, "simulate the run without calling any platform")
		retryFailed    = flag.Bool("retry-failed", false, "re-process designs recorded as failed")
		resetTracker   = flag.Bool("reset-tracker", false, "wipe the upload tracker after confirmation")
		checkAuth      = flag.Bool("check-auth", false, "verify platform credentials and exit")
		storefrontOnly = flag.Bool("storefront-only", false, "sync already-published designs to the storefront")
		watch          = flag.Bool("watch", false, "watch the designs directory and process new files")
		every          = flag.Duration("every", 0, "re-scan the designs directory on this interval, e.g. 30m")
		generate       = flag.Int("generate", 0, "generate N designs before processing")
		category       = flag.String("category", "", "collection key for generated designs")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(*configPath)
	logger := logging.New(cfg.Logging.Level)

	application := app.New(cfg, logger)

	err := application.Run(ctx, app.Options{
		Dir:            *dir,
		File:           *file,
		DryRun:         *dryRun,
		RetryFailed:    *retryFailed,
		ResetTracker:   *resetTracker,
		CheckAuth:      *checkAuth,
		StorefrontOnly: *storefrontOnly,
		Watch:          *watch,
		Every:          *every,
		Generate:       *generate,
		Category:       *category,
	})
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}

package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"teepress/internal/config"
	"teepress/internal/domain"
	"teepress/internal/infrastructure/hosting"
	"teepress/internal/infrastructure/imagegen"
	"teepress/internal/infrastructure/printful"
	"teepress/internal/infrastructure/scheduler"
	"teepress/internal/infrastructure/shopify"
	"teepress/internal/infrastructure/telegram"
	"teepress/internal/infrastructure/watcher"
	"teepress/internal/logging"
	"teepress/internal/ports"
	"teepress/internal/ratelimit"
	"teepress/internal/retry"
	"teepress/internal/scanner"
	"teepress/internal/tracker"
	"teepress/internal/usecase"
)

// Options carries the command line switches into the application.
type Options struct {
	Dir            string
	File           string
	DryRun         bool
	RetryFailed    bool
	ResetTracker   bool
	CheckAuth      bool
	StorefrontOnly bool
	Watch          bool
	Every          time.Duration
	Generate       int
	Category       string
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	stdin  io.Reader
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	return &Application{cfg: cfg, logger: baseLogger, stdin: os.Stdin}
}

// Run dispatches one invocation. Maintenance modes run first; everything
// else builds the pipeline and drives it over the selected designs.
func (a *Application) Run(ctx context.Context, opts Options) error {
	if opts.ResetTracker {
		return a.resetTracker()
	}
	if opts.CheckAuth {
		return a.checkAuth(ctx)
	}
	if err := a.validate(opts); err != nil {
		return err
	}

	dir := opts.Dir
	if dir == "" {
		dir = a.cfg.Uploads.Dir
	}

	pipeline, err := a.buildPipeline(ctx, opts)
	if err != nil {
		return err
	}

	var summary usecase.Summary
	switch {
	case opts.Generate > 0:
		col := a.cfg.CollectionByKey(opts.Category)
		gen := usecase.NewGenerator(
			imagegen.NewOpenAIClient(a.cfg.ImageGen),
			pipeline,
			dir,
			a.logger.With("component", "generator"),
		)
		summary, err = gen.GenerateBatch(ctx, col.Key, col.Themes, opts.Generate)

	case opts.Watch:
		source := watcher.New(dir, a.cfg.Uploads.Pattern, a.logger.With("component", "watcher"))
		return usecase.NewWatcher(source, pipeline, a.logger.With("component", "watch")).Run(ctx)

	case opts.Every > 0:
		stage := scanner.New(dir, a.cfg.Uploads.Pattern)
		sched := scheduler.NewInterval(opts.Every)
		return usecase.NewRescanner(sched, stage, pipeline, a.logger.With("component", "rescan")).Run(ctx)

	case opts.RetryFailed:
		summary, err = pipeline.RetryFailed(ctx, dir)

	case opts.StorefrontOnly:
		summary, err = pipeline.SyncUploaded(ctx, dir)

	case opts.File != "":
		stage := scanner.New(dir, a.cfg.Uploads.Pattern)
		path, serr := stage.Single(opts.File)
		if serr != nil {
			return serr
		}
		summary, err = pipeline.ProcessFile(ctx, path)

	default:
		stage := scanner.New(dir, a.cfg.Uploads.Pattern)
		paths, serr := stage.Collect()
		if serr != nil {
			return serr
		}
		if len(paths) == 0 {
			a.logger.Info("no designs found", "dir", dir, "pattern", a.cfg.Uploads.Pattern)
			return nil
		}
		summary, err = pipeline.ProcessBatch(ctx, paths)
	}
	if err != nil {
		return err
	}

	if a.cfg.Uploads.ReportPath != "" {
		if werr := usecase.WriteReport(a.cfg.Uploads.ReportPath, summary); werr != nil {
			a.logger.Warn("write run report", "error", werr)
		}
	}
	if a.cfg.NotifyConfigured() && !opts.DryRun {
		notifier := telegram.NewNotifier(a.cfg.Notify)
		if nerr := notifier.Notify(ctx, summary.Message()); nerr != nil {
			a.logger.Warn("send run notification", "error", nerr)
		}
	}
	return nil
}

// validate rejects option combinations before any adapter is built, so a
// missing credential fails in milliseconds instead of mid-batch.
func (a *Application) validate(opts Options) error {
	if opts.Generate < 0 {
		return fmt.Errorf("generate count must be positive")
	}
	if opts.Every < 0 {
		return fmt.Errorf("rescan interval must be positive")
	}
	if opts.Generate > 0 {
		if opts.Category == "" {
			return fmt.Errorf("generation requires a category (use -category)")
		}
		if a.cfg.CollectionByKey(opts.Category) == nil {
			return fmt.Errorf("unknown category %q", opts.Category)
		}
		if !a.cfg.GenerationConfigured() {
			return fmt.Errorf("image generation requires OPENAI_API_KEY")
		}
	}

	if opts.StorefrontOnly {
		if !a.cfg.StorefrontConfigured() {
			return fmt.Errorf("storefront sync requires SHOPIFY_STORE and SHOPIFY_ACCESS_TOKEN")
		}
		return nil
	}

	if !opts.DryRun && !a.cfg.FulfillmentConfigured() {
		return fmt.Errorf("publishing requires PRINTFUL_API_KEY (or use -dry-run)")
	}
	return nil
}

// buildPipeline constructs the driven adapters that the current invocation
// can actually reach. Dry runs touch no platform, so their adapters are
// skipped entirely.
func (a *Application) buildPipeline(ctx context.Context, opts Options) (*usecase.Pipeline, error) {
	trk, err := tracker.Load(a.cfg.Uploads.TrackerPath)
	if err != nil {
		return nil, fmt.Errorf("load tracker: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: a.cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(a.cfg.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(a.cfg.Retry.MaxDelayMs) * time.Millisecond,
	}

	var uploader ports.AssetUploader
	var publisher ports.ProductPublisher
	if a.cfg.FulfillmentConfigured() && !opts.DryRun {
		limiter := ratelimit.New(
			a.cfg.RateLimit.MaxRequests,
			time.Duration(a.cfg.RateLimit.WindowSeconds)*time.Second,
			time.Duration(a.cfg.RateLimit.MinIntervalMs)*time.Millisecond,
		)
		client := printful.NewClient(a.cfg.Fulfillment, limiter, a.logger.With("component", "fulfillment"))

		var host ports.AssetHost
		if a.cfg.HostingConfigured() {
			s3host, herr := hosting.NewS3Host(ctx, a.cfg.Hosting, a.logger.With("component", "hosting"))
			if herr != nil {
				a.logger.Warn("asset hosting unavailable, continuing without the hosted strategy", "error", herr)
			} else {
				host = s3host
			}
		}

		uploader = printful.NewUploader(client, host, policy, a.logger.With("component", "uploader"))
		pub := printful.NewPublisher(client, a.cfg.Fulfillment, policy, a.logger.With("component", "publisher"))
		if verr := pub.VerifyStore(ctx); verr != nil {
			a.logger.Warn("cannot verify store type before the run", "error", verr)
		}
		publisher = pub
	}

	var syncer ports.StorefrontSyncer
	if a.cfg.StorefrontConfigured() && !opts.DryRun {
		collections, cerr := shopify.LoadCollections(a.cfg.Storefront.CollectionsPath)
		if cerr != nil {
			a.logger.Warn("cannot load collection mapping", "path", a.cfg.Storefront.CollectionsPath, "error", cerr)
		}
		syncer = shopify.NewSyncer(
			a.cfg.Storefront,
			sizeOptions(a.cfg.Fulfillment),
			collections,
			policy,
			a.logger.With("component", "storefront"),
		)
	}

	return usecase.NewPipeline(usecase.PipelineDeps{
		Tracker:    trk,
		Uploader:   uploader,
		Publisher:  publisher,
		Syncer:     syncer,
		Logger:     a.logger.With("component", "pipeline"),
		BasePrice:  domain.Money(a.cfg.Fulfillment.BasePriceCents),
		Markup:     a.cfg.Fulfillment.Markup,
		InterDelay: time.Duration(a.cfg.Uploads.InterDelaySeconds) * time.Second,
		DryRun:     opts.DryRun,
	}), nil
}

// checkAuth probes every platform with configured credentials.
func (a *Application) checkAuth(ctx context.Context) error {
	var checks []usecase.AuthCheck

	if a.cfg.FulfillmentConfigured() {
		limiter := ratelimit.New(
			a.cfg.RateLimit.MaxRequests,
			time.Duration(a.cfg.RateLimit.WindowSeconds)*time.Second,
			time.Duration(a.cfg.RateLimit.MinIntervalMs)*time.Millisecond,
		)
		checks = append(checks, usecase.AuthCheck{
			Name:    "fulfillment",
			Checker: printful.NewClient(a.cfg.Fulfillment, limiter, a.logger.With("component", "fulfillment")),
		})
	}
	if a.cfg.StorefrontConfigured() {
		checks = append(checks, usecase.AuthCheck{
			Name: "storefront",
			Checker: shopify.NewSyncer(
				a.cfg.Storefront,
				sizeOptions(a.cfg.Fulfillment),
				nil,
				retry.Policy{MaxAttempts: 1},
				a.logger.With("component", "storefront"),
			),
		})
	}

	return usecase.CheckAuth(ctx, a.logger.With("component", "checkauth"), checks)
}

// resetTracker wipes the upload ledger after an explicit confirmation,
// since losing it means every design re-uploads on the next run.
func (a *Application) resetTracker() error {
	trk, err := tracker.Load(a.cfg.Uploads.TrackerPath)
	if err != nil {
		return fmt.Errorf("load tracker: %w", err)
	}

	stats := trk.Stats()
	fmt.Printf("This deletes all %d uploaded and %d failed records from %s.\n",
		stats.TotalUploaded, stats.TotalFailed, trk.Path())
	fmt.Print("Type 'yes' to confirm: ")

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read confirmation: %w", err)
	}
	if strings.TrimSpace(line) != "yes" {
		a.logger.Info("reset cancelled")
		return nil
	}

	if err := trk.Reset(); err != nil {
		return fmt.Errorf("reset tracker: %w", err)
	}
	a.logger.Info("tracker reset", "path", trk.Path())
	return nil
}

// sizeOptions derives the storefront size variants from the catalog keys,
// e.g. white_2xl contributes 2XL carrying the oversize upcharge.
func sizeOptions(cfg config.FulfillmentConfig) []shopify.SizeOption {
	oversize := make(map[string]bool, len(cfg.OversizeSuffixes))
	for _, s := range cfg.OversizeSuffixes {
		oversize[strings.ToUpper(s)] = true
	}

	opts := make([]shopify.SizeOption, 0, len(cfg.Variants))
	seen := make(map[string]bool)
	for _, v := range cfg.Variants {
		key := v.Key
		if i := strings.LastIndex(key, "_"); i >= 0 {
			key = key[i+1:]
		}
		size := strings.ToUpper(key)
		if size == "" || seen[size] {
			continue
		}
		seen[size] = true
		opt := shopify.SizeOption{Name: size}
		if oversize[size] {
			opt.Upcharge = cfg.OversizeUpcharge
		}
		opts = append(opts, opt)
	}
	return opts
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"teepress/internal/domain"
	"teepress/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Tracker   ports.Tracker
	Uploader  ports.AssetUploader
	Publisher ports.ProductPublisher
	Syncer    ports.StorefrontSyncer
	Logger    *slog.Logger

	BasePrice  domain.Money
	Markup     float64
	InterDelay time.Duration
	DryRun     bool
}

// Pipeline drives each staged design through fingerprint, upload, publish,
// and storefront sync, strictly one design at a time.
type Pipeline struct {
	tracker   ports.Tracker
	uploader  ports.AssetUploader
	publisher ports.ProductPublisher
	syncer    ports.StorefrontSyncer
	logger    *slog.Logger

	basePrice  domain.Money
	markup     float64
	interDelay time.Duration
	dryRun     bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Summary aggregates one run's outcomes.
type Summary struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Total    int       `json:"total"`
	Uploaded int       `json:"uploaded"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	DryRun   bool      `json:"dry_run"`
}

type outcome int

const (
	outcomeUploaded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	markup := deps.Markup
	if markup <= 0 {
		markup = 1
	}
	return &Pipeline{
		tracker:    deps.Tracker,
		uploader:   deps.Uploader,
		publisher:  deps.Publisher,
		syncer:     deps.Syncer,
		logger:     logger,
		basePrice:  deps.BasePrice,
		markup:     markup,
		interDelay: deps.InterDelay,
		dryRun:     deps.DryRun,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// ProcessFile runs a single design through the pipeline.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (Summary, error) {
	return p.ProcessBatch(ctx, []string{path})
}

// ProcessBatch drives the designs in order. Individual failures are
// recorded in the tracker and never abort the rest of the batch; only
// cancellation stops a run early.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), Started: p.now(), DryRun: p.dryRun, Total: len(paths)}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			summary.Finished = p.now()
			return summary, fmt.Errorf("run interrupted: %w", err)
		}

		result := p.processOne(ctx, path)
		switch result {
		case outcomeUploaded:
			summary.Uploaded++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}

		if result != outcomeSkipped && !p.dryRun && p.interDelay > 0 && i < len(paths)-1 {
			if err := p.sleep(ctx, p.interDelay); err != nil {
				summary.Finished = p.now()
				return summary, fmt.Errorf("run interrupted: %w", err)
			}
		}
	}

	summary.Finished = p.now()
	p.logSummary(summary)
	return summary, nil
}

// RetryFailed re-drives everything in the failed partition whose file is
// still present in dir. Successes move to the uploaded partition.
func (p *Pipeline) RetryFailed(ctx context.Context, dir string) (Summary, error) {
	if p.tracker == nil {
		return Summary{}, fmt.Errorf("tracker is not configured")
	}

	entries := p.tracker.FailedEntries()
	if len(entries) == 0 {
		p.logger.Info("no failed designs to retry")
		now := p.now()
		return Summary{RunID: uuid.NewString(), Started: now, Finished: now, DryRun: p.dryRun}, nil
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Record.Filename)
		if _, err := os.Stat(path); err != nil {
			p.logger.Warn("failed design file is gone, leaving its record in place", "file", entry.Record.Filename)
			continue
		}
		paths = append(paths, path)
	}

	p.logger.Info("retrying failed designs", "count", len(paths))
	return p.ProcessBatch(ctx, paths)
}

// SyncUploaded mirrors already-published designs that have no storefront
// listing yet, e.g. after runs where the storefront was down.
func (p *Pipeline) SyncUploaded(ctx context.Context, dir string) (Summary, error) {
	if p.tracker == nil || p.syncer == nil {
		return Summary{}, fmt.Errorf("tracker and storefront must both be configured")
	}

	summary := Summary{RunID: uuid.NewString(), Started: p.now(), DryRun: p.dryRun}

	for _, entry := range p.tracker.UploadedEntries() {
		if err := ctx.Err(); err != nil {
			summary.Finished = p.now()
			return summary, fmt.Errorf("run interrupted: %w", err)
		}
		if entry.Record.StorefrontID != 0 {
			continue
		}

		summary.Total++
		path := filepath.Join(dir, entry.Record.Filename)
		content, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("design file is gone, cannot sync", "file", entry.Record.Filename)
			summary.Failed++
			continue
		}

		asset := p.buildAsset(path, entry.Record.Filename, content)
		if p.dryRun {
			p.logger.Info("dry run: would sync", "file", entry.Record.Filename)
			summary.Uploaded++
			continue
		}

		listing, err := p.syncer.SyncProduct(ctx, asset, content, entry.Record.FulfillmentID)
		if err != nil {
			p.logger.Warn("storefront sync failed", "file", entry.Record.Filename, "error", err)
			summary.Failed++
			continue
		}

		rec := entry.Record
		rec.StorefrontID = listing.ProductID
		rec.StorefrontHandle = listing.Handle
		if err := p.tracker.RecordSuccess(entry.Fingerprint, rec); err != nil {
			p.logger.Error("record sync outcome", "file", entry.Record.Filename, "error", err)
		}
		summary.Uploaded++
	}

	summary.Finished = p.now()
	p.logSummary(summary)
	return summary, nil
}

// designRun tracks one design's progress through the stage machine.
type designRun struct {
	stage domain.Stage
}

// advance moves to the next stage, failing loudly on illegal jumps so state
// bugs cannot pass silently.
func (r *designRun) advance(to domain.Stage) error {
	if !domain.CanTransition(r.stage, to) {
		return fmt.Errorf("illegal stage transition %s -> %s", r.stage, to)
	}
	r.stage = to
	return nil
}

// processOne owns the full lifecycle of a single design. Every exit path
// other than skip and dry run leaves a tracker record behind.
func (p *Pipeline) processOne(ctx context.Context, path string) outcome {
	run := &designRun{stage: domain.StageNew}
	filename := filepath.Base(path)

	content, err := os.ReadFile(path)
	if err != nil {
		// No bytes means no fingerprint, so there is nothing to key a
		// failure record on.
		p.logger.Error("read design", "file", filename, "error", err)
		return outcomeFailed
	}

	asset := p.buildAsset(path, filename, content)
	if err := run.advance(domain.StageFingerprinted); err != nil {
		return p.fail(run, asset, err)
	}

	if p.tracker != nil && p.tracker.IsUploaded(asset.Fingerprint) {
		_ = run.advance(domain.StageSkipped)
		p.logger.Info("already uploaded, skipping", "file", filename, "fingerprint", shortFP(asset.Fingerprint))
		return outcomeSkipped
	}

	if p.dryRun {
		p.logger.Info("dry run: would upload",
			"file", filename,
			"category", asset.Category,
			"theme", asset.Theme,
			"retail", asset.RetailPrice.Decimal(),
		)
		return outcomeUploaded
	}

	rec := domain.UploadRecord{
		Filename:    filename,
		Category:    asset.Category,
		Theme:       asset.Theme,
		BasePrice:   asset.BasePrice.Float(),
		RetailPrice: asset.RetailPrice.Float(),
	}

	if err := run.advance(domain.StageUploadingAsset); err != nil {
		return p.fail(run, asset, err)
	}
	ref, err := p.uploader.UploadAsset(ctx, asset, content)
	if err != nil {
		return p.fail(run, asset, fmt.Errorf("upload asset: %w", err))
	}
	rec.AssetID = ref.ID
	rec.DesignURL = ref.URL
	if err := run.advance(domain.StageAssetUploaded); err != nil {
		return p.fail(run, asset, err)
	}

	if err := run.advance(domain.StagePublishing); err != nil {
		return p.fail(run, asset, err)
	}
	productID, err := p.publisher.PublishProduct(ctx, asset, ref)
	if err != nil {
		return p.fail(run, asset, fmt.Errorf("publish product: %w", err))
	}
	rec.FulfillmentID = productID
	if err := run.advance(domain.StagePublished); err != nil {
		return p.fail(run, asset, err)
	}

	if p.syncer != nil {
		if err := run.advance(domain.StageSyncing); err != nil {
			return p.fail(run, asset, err)
		}
		listing, err := p.syncer.SyncProduct(ctx, asset, content, productID)
		if err != nil {
			// The fulfillment product exists, so this is a partial success,
			// not a failure; SyncUploaded picks these up later.
			p.logger.Warn("storefront sync failed", "file", filename, "error", err)
		} else {
			rec.StorefrontID = listing.ProductID
			rec.StorefrontHandle = listing.Handle
		}
	}

	if err := run.advance(domain.StageDone); err != nil {
		return p.fail(run, asset, err)
	}

	rec.UploadDate = p.now().UTC().Format(time.RFC3339)
	if p.tracker != nil {
		if err := p.tracker.RecordSuccess(asset.Fingerprint, rec); err != nil {
			p.logger.Error("record success", "file", filename, "error", err)
		}
	}

	p.logger.Info("design published", "file", filename, "product_id", productID)
	return outcomeUploaded
}

func (p *Pipeline) fail(run *designRun, asset domain.DesignAsset, cause error) outcome {
	stage := run.stage
	_ = run.advance(domain.StageFailed)
	p.logger.Error("design failed", "file", asset.Filename, "stage", stage, "error", cause)

	if p.tracker != nil && asset.Fingerprint != "" {
		rec := domain.FailureRecord{
			Filename: asset.Filename,
			FailDate: p.now().UTC().Format(time.RFC3339),
			Category: asset.Category,
			Theme:    asset.Theme,
			Stage:    string(stage),
			Error:    cause.Error(),
		}
		if err := p.tracker.RecordFailure(asset.Fingerprint, rec); err != nil {
			p.logger.Error("record failure", "file", asset.Filename, "error", err)
		}
	}
	return outcomeFailed
}

// buildAsset derives everything the platforms need from the file itself.
func (p *Pipeline) buildAsset(path, filename string, content []byte) domain.DesignAsset {
	category, theme := domain.ParseDesignName(filename)
	return domain.DesignAsset{
		Path:        path,
		Filename:    filename,
		Category:    category,
		Theme:       theme,
		Fingerprint: domain.FingerprintBytes(content),
		BasePrice:   p.basePrice,
		RetailPrice: p.basePrice.Scale(p.markup),
	}
}

func (p *Pipeline) logSummary(s Summary) {
	p.logger.Info("run complete",
		"run_id", s.RunID,
		"total", s.Total,
		"uploaded", s.Uploaded,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"dry_run", s.DryRun,
		"elapsed", s.Finished.Sub(s.Started).Round(time.Millisecond).String(),
	)
}

func shortFP(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
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

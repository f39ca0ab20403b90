package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"teepress/internal/domain"
	"teepress/internal/tracker"
)

type fakeUploader struct {
	calls  int
	errFor map[string]error
	ref    domain.AssetRef
}

func (f *fakeUploader) UploadAsset(_ context.Context, asset domain.DesignAsset, _ []byte) (domain.AssetRef, error) {
	f.calls++
	if err := f.errFor[asset.Filename]; err != nil {
		return domain.AssetRef{}, err
	}
	return f.ref, nil
}

type fakePublisher struct {
	calls  int
	errFor map[string]error
	id     int64
}

func (f *fakePublisher) PublishProduct(_ context.Context, asset domain.DesignAsset, _ domain.AssetRef) (int64, error) {
	f.calls++
	if err := f.errFor[asset.Filename]; err != nil {
		return 0, err
	}
	return f.id, nil
}

type fakeSyncer struct {
	calls   int
	err     error
	listing domain.StorefrontListing
}

func (f *fakeSyncer) SyncProduct(_ context.Context, _ domain.DesignAsset, _ []byte, _ int64) (domain.StorefrontListing, error) {
	f.calls++
	if f.err != nil {
		return domain.StorefrontListing{}, f.err
	}
	return f.listing, nil
}

type pipelineFixture struct {
	dir       string
	tracker   *tracker.Tracker
	uploader  *fakeUploader
	publisher *fakePublisher
	syncer    *fakeSyncer
	pipeline  *Pipeline
	slept     []time.Duration
}

var fixedNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, deps PipelineDeps) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		dir:       t.TempDir(),
		uploader:  &fakeUploader{ref: domain.AssetRef{ID: 77, URL: "https://cdn.example/f.png"}},
		publisher: &fakePublisher{id: 321},
		syncer:    &fakeSyncer{listing: domain.StorefrontListing{ProductID: 900, Handle: "tee-handle"}},
	}

	trk, err := tracker.Load(filepath.Join(f.dir, "tracker.json"))
	if err != nil {
		t.Fatalf("load tracker: %v", err)
	}
	f.tracker = trk

	deps.Tracker = trk
	deps.Uploader = f.uploader
	deps.Publisher = f.publisher
	if deps.Syncer == nil {
		deps.Syncer = f.syncer
	}
	deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if deps.BasePrice == 0 {
		deps.BasePrice = 1500
	}
	if deps.Markup == 0 {
		deps.Markup = 1.4
	}

	f.pipeline = NewPipeline(deps)
	f.pipeline.now = func() time.Time { return fixedNow }
	f.pipeline.sleep = func(_ context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}
	return f
}

func (f *pipelineFixture) stage(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("stage %s: %v", name, err)
	}
	return path
}

func TestProcessBatchPublishesEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{InterDelay: 2 * time.Second})
	paths := []string{
		f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "png-one"),
		f.stage(t, "design_nature-inspired_ocean_waves_2.png", "png-two"),
	}

	summary, err := f.pipeline.ProcessBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Total != 2 || summary.Uploaded != 2 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.RunID == "" {
		t.Fatal("expected a run id")
	}
	if summary.DryRun {
		t.Fatal("expected a live run")
	}

	// One pause between the two designs, none after the last.
	if len(f.slept) != 1 || f.slept[0] != 2*time.Second {
		t.Fatalf("expected one 2s pause, got %v", f.slept)
	}

	fp := domain.FingerprintBytes([]byte("png-one"))
	rec, ok := f.tracker.Uploaded(fp)
	if !ok {
		t.Fatal("expected an upload record for the first design")
	}
	if rec.Filename != "design_retro-gaming_arcade_cabinet_1.png" {
		t.Fatalf("unexpected filename %q", rec.Filename)
	}
	if rec.Category != "retro-gaming" || rec.Theme != "arcade cabinet" {
		t.Fatalf("unexpected category/theme %q/%q", rec.Category, rec.Theme)
	}
	if rec.BasePrice != 15.0 || rec.RetailPrice != 21.0 {
		t.Fatalf("unexpected prices %v/%v", rec.BasePrice, rec.RetailPrice)
	}
	if rec.AssetID != 77 || rec.DesignURL != "https://cdn.example/f.png" {
		t.Fatalf("unexpected asset ref %d/%q", rec.AssetID, rec.DesignURL)
	}
	if rec.FulfillmentID != 321 {
		t.Fatalf("unexpected fulfillment id %d", rec.FulfillmentID)
	}
	if rec.StorefrontID != 900 || rec.StorefrontHandle != "tee-handle" {
		t.Fatalf("unexpected storefront listing %d/%q", rec.StorefrontID, rec.StorefrontHandle)
	}
	if rec.UploadDate != "2026-08-25T12:00:00Z" {
		t.Fatalf("unexpected upload date %q", rec.UploadDate)
	}

	if f.uploader.calls != 2 || f.publisher.calls != 2 || f.syncer.calls != 2 {
		t.Fatalf("unexpected adapter calls: %d/%d/%d", f.uploader.calls, f.publisher.calls, f.syncer.calls)
	}
}

func TestProcessBatchSkipsDuplicateContent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	paths := []string{
		f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "same-bytes"),
		f.stage(t, "design_retro-gaming_arcade_cabinet_2.png", "same-bytes"),
	}

	summary, err := f.pipeline.ProcessBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Uploaded != 1 || summary.Skipped != 1 {
		t.Fatalf("expected 1 uploaded and 1 skipped, got %+v", summary)
	}
	if f.uploader.calls != 1 {
		t.Fatalf("expected 1 upload, got %d", f.uploader.calls)
	}
}

func TestProcessBatchSkipsPreviouslyUploaded(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	path := f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "known-bytes")

	fp := domain.FingerprintBytes([]byte("known-bytes"))
	if err := f.tracker.RecordSuccess(fp, domain.UploadRecord{Filename: "old_name.png"}); err != nil {
		t.Fatalf("seed tracker: %v", err)
	}

	summary, err := f.pipeline.ProcessBatch(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Skipped != 1 || summary.Uploaded != 0 {
		t.Fatalf("expected a renamed duplicate to be skipped, got %+v", summary)
	}
	if f.uploader.calls != 0 {
		t.Fatalf("expected no uploads, got %d", f.uploader.calls)
	}
}

func TestProcessBatchDryRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{DryRun: true, InterDelay: 2 * time.Second})
	paths := []string{
		f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "png-one"),
		f.stage(t, "design_nature-inspired_ocean_waves_2.png", "png-two"),
	}

	summary, err := f.pipeline.ProcessBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.DryRun || summary.Uploaded != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if f.uploader.calls != 0 || f.publisher.calls != 0 || f.syncer.calls != 0 {
		t.Fatalf("dry run must not touch platforms: %d/%d/%d", f.uploader.calls, f.publisher.calls, f.syncer.calls)
	}
	if len(f.slept) != 0 {
		t.Fatalf("dry run must not pause, got %v", f.slept)
	}
	if stats := f.tracker.Stats(); stats.TotalUploaded != 0 || stats.TotalFailed != 0 {
		t.Fatalf("dry run must not write the ledger, got %+v", stats)
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	bad := f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "png-bad")
	good := f.stage(t, "design_nature-inspired_ocean_waves_2.png", "png-good")
	f.publisher.errFor = map[string]error{
		"design_retro-gaming_arcade_cabinet_1.png": fmt.Errorf("catalog rejected"),
	}

	summary, err := f.pipeline.ProcessBatch(context.Background(), []string{bad, good})
	if err != nil {
		t.Fatalf("a per-design failure must not abort the batch: %v", err)
	}
	if summary.Failed != 1 || summary.Uploaded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	failed := f.tracker.FailedEntries()
	if len(failed) != 1 {
		t.Fatalf("expected 1 failure record, got %d", len(failed))
	}
	failRec := failed[0].Record
	if failRec.Filename != "design_retro-gaming_arcade_cabinet_1.png" {
		t.Fatalf("unexpected failed file %q", failRec.Filename)
	}
	if failRec.Stage != "PUBLISHING_PRODUCT" {
		t.Fatalf("expected the failure to name the publishing stage, got %q", failRec.Stage)
	}
	if !strings.Contains(failRec.Error, "publish product") || !strings.Contains(failRec.Error, "catalog rejected") {
		t.Fatalf("unexpected failure error %q", failRec.Error)
	}
	if failRec.FailDate != "2026-08-25T12:00:00Z" {
		t.Fatalf("unexpected fail date %q", failRec.FailDate)
	}

	if got := f.tracker.Stats(); got.TotalUploaded != 1 {
		t.Fatalf("expected the good design recorded, got %+v", got)
	}
}

func TestProcessBatchSyncFailureIsPartialSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	f.syncer.err = fmt.Errorf("storefront down")
	path := f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "png-one")

	summary, err := f.pipeline.ProcessBatch(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Uploaded != 1 || summary.Failed != 0 {
		t.Fatalf("a sync failure is still an upload, got %+v", summary)
	}

	rec, ok := f.tracker.Uploaded(domain.FingerprintBytes([]byte("png-one")))
	if !ok {
		t.Fatal("expected an upload record")
	}
	if rec.FulfillmentID != 321 {
		t.Fatalf("expected the fulfillment product recorded, got %d", rec.FulfillmentID)
	}
	if rec.StorefrontID != 0 || rec.StorefrontHandle != "" {
		t.Fatalf("expected no storefront listing, got %d/%q", rec.StorefrontID, rec.StorefrontHandle)
	}
}

func TestProcessBatchWithoutSyncerStopsAtPublish(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	f.pipeline.syncer = nil
	path := f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "png-one")

	summary, err := f.pipeline.ProcessBatch(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Uploaded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if f.syncer.calls != 0 {
		t.Fatalf("expected no sync calls, got %d", f.syncer.calls)
	}

	rec, _ := f.tracker.Uploaded(domain.FingerprintBytes([]byte("png-one")))
	if rec.StorefrontID != 0 {
		t.Fatalf("expected no storefront listing without a syncer, got %d", rec.StorefrontID)
	}
}

func TestProcessBatchMissingFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	summary, err := f.pipeline.ProcessBatch(context.Background(), []string{filepath.Join(f.dir, "gone.png")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", summary)
	}
	// Without bytes there is no fingerprint to record against.
	if stats := f.tracker.Stats(); stats.TotalFailed != 0 {
		t.Fatalf("expected no ledger entry for an unreadable file, got %+v", stats)
	}
}

func TestProcessBatchCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	path := f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "png-one")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.ProcessBatch(ctx, []string{path})
	if err == nil || !strings.Contains(err.Error(), "run interrupted") {
		t.Fatalf("expected an interrupted run, got %v", err)
	}
	if f.uploader.calls != 0 {
		t.Fatalf("expected no uploads after cancellation, got %d", f.uploader.calls)
	}
}

func TestRetryFailedPromotesRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "retry-bytes")

	fp := domain.FingerprintBytes([]byte("retry-bytes"))
	if err := f.tracker.RecordFailure(fp, domain.FailureRecord{
		Filename: "design_retro-gaming_arcade_cabinet_1.png",
		Stage:    "UPLOADING_ASSET",
		Error:    "503",
	}); err != nil {
		t.Fatalf("seed failure: %v", err)
	}
	if err := f.tracker.RecordFailure("feedface", domain.FailureRecord{
		Filename: "design_gone_file_1.png",
		Stage:    "UPLOADING_ASSET",
		Error:    "503",
	}); err != nil {
		t.Fatalf("seed failure: %v", err)
	}

	summary, err := f.pipeline.RetryFailed(context.Background(), f.dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 1 || summary.Uploaded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if !f.tracker.IsUploaded(fp) {
		t.Fatal("expected the retried design promoted to uploaded")
	}

	// The entry whose file disappeared stays behind for a later retry.
	failed := f.tracker.FailedEntries()
	if len(failed) != 1 || failed[0].Fingerprint != "feedface" {
		t.Fatalf("expected only the missing-file record left, got %+v", failed)
	}
}

func TestRetryFailedNothingToDo(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	summary, err := f.pipeline.RetryFailed(context.Background(), f.dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 0 || summary.Uploaded != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if f.uploader.calls != 0 {
		t.Fatalf("expected no uploads, got %d", f.uploader.calls)
	}
}

func TestSyncUploadedBackfillsListings(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "sync-bytes")

	fp := domain.FingerprintBytes([]byte("sync-bytes"))
	if err := f.tracker.RecordSuccess(fp, domain.UploadRecord{
		Filename:      "design_retro-gaming_arcade_cabinet_1.png",
		FulfillmentID: 321,
	}); err != nil {
		t.Fatalf("seed tracker: %v", err)
	}
	if err := f.tracker.RecordSuccess("already-synced", domain.UploadRecord{
		Filename:     "design_other_file_1.png",
		StorefrontID: 555,
	}); err != nil {
		t.Fatalf("seed tracker: %v", err)
	}

	summary, err := f.pipeline.SyncUploaded(context.Background(), f.dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 1 || summary.Uploaded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if f.syncer.calls != 1 {
		t.Fatalf("expected 1 sync, got %d", f.syncer.calls)
	}

	rec, _ := f.tracker.Uploaded(fp)
	if rec.StorefrontID != 900 || rec.StorefrontHandle != "tee-handle" {
		t.Fatalf("expected the listing backfilled, got %d/%q", rec.StorefrontID, rec.StorefrontHandle)
	}
	if rec.FulfillmentID != 321 {
		t.Fatalf("the fulfillment id must survive the update, got %d", rec.FulfillmentID)
	}
}

func TestSyncUploadedMissingFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	if err := f.tracker.RecordSuccess("fp-gone", domain.UploadRecord{
		Filename:      "design_gone_file_1.png",
		FulfillmentID: 321,
	}); err != nil {
		t.Fatalf("seed tracker: %v", err)
	}

	summary, err := f.pipeline.SyncUploaded(context.Background(), f.dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if f.syncer.calls != 0 {
		t.Fatalf("expected no sync without the file, got %d", f.syncer.calls)
	}
}

func TestSyncUploadedDryRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{DryRun: true})
	f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "sync-bytes")

	fp := domain.FingerprintBytes([]byte("sync-bytes"))
	if err := f.tracker.RecordSuccess(fp, domain.UploadRecord{
		Filename:      "design_retro-gaming_arcade_cabinet_1.png",
		FulfillmentID: 321,
	}); err != nil {
		t.Fatalf("seed tracker: %v", err)
	}

	summary, err := f.pipeline.SyncUploaded(context.Background(), f.dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Uploaded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if f.syncer.calls != 0 {
		t.Fatalf("dry run must not sync, got %d calls", f.syncer.calls)
	}

	rec, _ := f.tracker.Uploaded(fp)
	if rec.StorefrontID != 0 {
		t.Fatalf("dry run must not update the ledger, got %d", rec.StorefrontID)
	}
}

func TestProcessFileRunsOneDesign(t *testing.T) {
	t.Parallel()

	f := newFixture(t, PipelineDeps{})
	path := f.stage(t, "design_retro-gaming_arcade_cabinet_1.png", "png-one")

	summary, err := f.pipeline.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 1 || summary.Uploaded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

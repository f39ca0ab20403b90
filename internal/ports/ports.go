package ports

import (
	"context"
	"time"

	"teepress/internal/domain"
)

// AssetUploader pushes design bytes into the fulfillment platform's file
// library, trying request shapes until one is accepted.
type AssetUploader interface {
	UploadAsset(ctx context.Context, asset domain.DesignAsset, content []byte) (domain.AssetRef, error)
}

// ProductPublisher creates the multi-variant product on the fulfillment
// platform once its design file is in the library.
type ProductPublisher interface {
	PublishProduct(ctx context.Context, asset domain.DesignAsset, ref domain.AssetRef) (int64, error)
}

// StorefrontSyncer mirrors a published product into the storefront catalog.
type StorefrontSyncer interface {
	SyncProduct(ctx context.Context, asset domain.DesignAsset, content []byte, fulfillmentID int64) (domain.StorefrontListing, error)
}

// Tracker is the durable ledger of processed fingerprints.
type Tracker interface {
	IsUploaded(fingerprint string) bool
	RecordSuccess(fingerprint string, rec domain.UploadRecord) error
	RecordFailure(fingerprint string, rec domain.FailureRecord) error
	UploadedEntries() []domain.UploadedEntry
	FailedEntries() []domain.FailedEntry
}

// Limiter gates outbound platform calls to stay inside the request budget.
type Limiter interface {
	Wait(ctx context.Context) error
}

// AssetHost serves design bytes from a public URL for URL-based uploads.
type AssetHost interface {
	Host(ctx context.Context, filename string, content []byte) (string, error)
}

// Generator produces design images from a theme prompt.
type Generator interface {
	Generate(ctx context.Context, theme string) ([]byte, error)
}

// CredentialChecker probes a platform token ahead of a run.
type CredentialChecker interface {
	CheckAuth(ctx context.Context) error
}

// DirWatcher emits paths of design files appearing in the staging directory.
// The channel is never closed; consumers stop when ctx ends.
type DirWatcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// Scheduler fires a job on a fixed cadence until stopped.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop() error
}

// Notifier pushes a short run summary to an external chat channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

package printful

import (
	"context"
	"fmt"
	"log/slog"

	"teepress/internal/domain"
	"teepress/internal/ports"
	"teepress/internal/retry"
)

// Uploader walks the ordered strategy chain until one request shape is
// accepted. Transient failures retry the same strategy, permanent ones
// advance to the next, terminal ones abort the whole chain.
type Uploader struct {
	strategies []uploadStrategy
	retry      retry.Policy
	logger     *slog.Logger
}

var _ ports.AssetUploader = (*Uploader)(nil)

// NewUploader assembles the chain. The hosted-URL strategy joins only when
// an asset host is available.
func NewUploader(client *Client, host ports.AssetHost, policy retry.Policy, log *slog.Logger) *Uploader {
	strategies := []uploadStrategy{
		&multipartFieldStrategy{client: client},
		&multipartArrayStrategy{client: client},
		&base64Strategy{client: client},
	}
	if host != nil {
		strategies = append(strategies, &hostedURLStrategy{client: client, host: host})
	}
	return &Uploader{strategies: strategies, retry: policy, logger: log}
}

// UploadAsset implements ports.AssetUploader.
func (u *Uploader) UploadAsset(ctx context.Context, asset domain.DesignAsset, content []byte) (domain.AssetRef, error) {
	var lastErr error
	for _, strategy := range u.strategies {
		if err := ctx.Err(); err != nil {
			return domain.AssetRef{}, err
		}

		var ref domain.AssetRef
		err := u.retry.Do(ctx, func() error {
			var attemptErr error
			ref, attemptErr = strategy.Upload(ctx, asset, content)
			return attemptErr
		})
		if err == nil {
			u.debug("asset accepted", "strategy", strategy.Name(), "file", asset.Filename, "asset_id", ref.ID)
			return ref, nil
		}
		if domain.IsTerminal(err) {
			return domain.AssetRef{}, err
		}

		u.debug("strategy rejected", "strategy", strategy.Name(), "file", asset.Filename, "error", err)
		lastErr = err
	}

	return domain.AssetRef{}, fmt.Errorf("all upload strategies failed: %w", lastErr)
}

func (u *Uploader) debug(msg string, args ...interface{}) {
	if u.logger != nil {
		u.logger.Debug(msg, args...)
	}
}

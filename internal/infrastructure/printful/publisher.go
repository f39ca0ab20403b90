package printful

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"teepress/internal/config"
	"teepress/internal/domain"
	"teepress/internal/ports"
	"teepress/internal/retry"
)

// Publisher creates the multi-variant product once its design file is in
// the platform library.
type Publisher struct {
	client   *Client
	variants []config.VariantConfig
	oversize map[string]bool
	upcharge float64
	retry    retry.Policy
	logger   *slog.Logger
}

var _ ports.ProductPublisher = (*Publisher)(nil)

// NewPublisher wires the variant catalog and pricing rules.
func NewPublisher(client *Client, cfg config.FulfillmentConfig, policy retry.Policy, log *slog.Logger) *Publisher {
	oversize := make(map[string]bool, len(cfg.OversizeSuffixes))
	for _, s := range cfg.OversizeSuffixes {
		oversize[strings.ToLower(s)] = true
	}
	return &Publisher{
		client:   client,
		variants: cfg.Variants,
		oversize: oversize,
		upcharge: cfg.OversizeUpcharge,
		retry:    policy,
		logger:   log,
	}
}

// PublishProduct implements ports.ProductPublisher. One POST creates the
// product with every catalog variant attached.
func (p *Publisher) PublishProduct(ctx context.Context, asset domain.DesignAsset, ref domain.AssetRef) (int64, error) {
	if len(p.variants) == 0 {
		return 0, fmt.Errorf("variant catalog is empty")
	}

	payload := map[string]any{
		"sync_product": map[string]any{
			"name": fmt.Sprintf("%s - %s", domain.TitleCase(asset.Category), domain.TitleCase(asset.Theme)),
		},
		"sync_variants": p.buildVariants(asset, ref),
	}

	var result struct {
		ID int64 `json:"id"`
	}
	err := p.retry.Do(ctx, func() error {
		return p.client.postJSON(ctx, "/store/products", payload, &result)
	})
	if err != nil {
		return 0, err
	}

	p.debug("product created", "file", asset.Filename, "product_id", result.ID)
	return result.ID, nil
}

// buildVariants produces one sync variant per catalog entry, in catalog
// order. Oversize sizes carry the configured upcharge on top of retail.
func (p *Publisher) buildVariants(asset domain.DesignAsset, ref domain.AssetRef) []map[string]any {
	variants := make([]map[string]any, 0, len(p.variants))
	for _, v := range p.variants {
		price := asset.RetailPrice
		if p.upcharge > 0 && p.oversize[sizeOf(v.Key)] {
			price = price.Scale(p.upcharge)
		}
		variants = append(variants, map[string]any{
			"variant_id":   v.ID,
			"retail_price": price.Decimal(),
			"is_enabled":   true,
			"files":        []map[string]any{variantFile(ref)},
		})
	}
	return variants
}

// variantFile references the design by library id when the upload produced
// one, else by public URL with the front_large placement the platform
// requires for URL files.
func variantFile(ref domain.AssetRef) map[string]any {
	if ref.ID != 0 {
		return map[string]any{"id": ref.ID}
	}
	return map[string]any{"type": "front_large", "url": ref.URL}
}

// sizeOf extracts the size suffix from a catalog key like "white_2xl".
func sizeOf(key string) string {
	if i := strings.LastIndex(key, "_"); i >= 0 {
		return strings.ToLower(key[i+1:])
	}
	return strings.ToLower(key)
}

// VerifyStore warns when the configured store cannot create products via
// the API, which would otherwise surface mid-run as a terminal error.
func (p *Publisher) VerifyStore(ctx context.Context) error {
	storeType, err := p.client.StoreType(ctx)
	if err != nil {
		return err
	}

	if storeType != "native" {
		p.warn("store type cannot create products via API; use a "+terminalMarker+" store", "store_type", storeType)
		return nil
	}

	p.debug("store verified", "store_type", storeType)
	return nil
}

func (p *Publisher) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Publisher) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

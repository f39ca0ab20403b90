package shopify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"teepress/internal/config"
	"teepress/internal/domain"
	"teepress/internal/ports"
	"teepress/internal/retry"
)

// SizeOption is one storefront size variant. Upcharge > 0 scales the retail
// price, used for oversize garments that cost more to print.
type SizeOption struct {
	Name     string
	Upcharge float64
}

// defaultSizes is used when the variant catalog yields no size options.
var defaultSizes = []SizeOption{
	{Name: "S"}, {Name: "M"}, {Name: "L"}, {Name: "XL"},
	{Name: "2XL", Upcharge: 1.12},
}

// Syncer mirrors published products into the storefront via its admin API.
// Sync failures are reported to the caller but the fulfillment product
// already exists, so callers treat them as partial success.
type Syncer struct {
	baseURL     string
	accessToken string
	vendor      string
	sizes       []SizeOption
	collections map[string]Collection
	http        *http.Client
	retry       retry.Policy
	logger      *slog.Logger
}

var _ ports.StorefrontSyncer = (*Syncer)(nil)
var _ ports.CredentialChecker = (*Syncer)(nil)

// NewSyncer builds the storefront client. sizes and collections may be empty.
func NewSyncer(cfg config.StorefrontConfig, sizes []SizeOption, collections map[string]Collection, policy retry.Policy, log *slog.Logger) *Syncer {
	if len(sizes) == 0 {
		sizes = defaultSizes
	}
	return &Syncer{
		baseURL:     storeBaseURL(cfg.Store, cfg.APIVersion),
		accessToken: cfg.AccessToken,
		vendor:      cfg.Vendor,
		sizes:       sizes,
		collections: collections,
		http:        &http.Client{Timeout: 30 * time.Second},
		retry:       policy,
		logger:      log,
	}
}

// storeBaseURL accepts a bare store name, a full myshopify host, or a
// complete URL (used against mock stores).
func storeBaseURL(store, apiVersion string) string {
	if strings.HasPrefix(store, "http://") || strings.HasPrefix(store, "https://") {
		return fmt.Sprintf("%s/admin/api/%s", strings.TrimSuffix(store, "/"), apiVersion)
	}
	host := store
	if host != "" && !strings.Contains(host, ".") {
		host += ".myshopify.com"
	}
	return fmt.Sprintf("https://%s/admin/api/%s", host, apiVersion)
}

// SyncProduct implements ports.StorefrontSyncer. The image is re-embedded
// as a base64 attachment because the storefront cannot fetch platform file
// URLs that sit behind auth.
func (s *Syncer) SyncProduct(ctx context.Context, asset domain.DesignAsset, content []byte, fulfillmentID int64) (domain.StorefrontListing, error) {
	payload := map[string]any{"product": s.buildProduct(asset, content, fulfillmentID)}

	var created struct {
		Product struct {
			ID     int64  `json:"id"`
			Handle string `json:"handle"`
		} `json:"product"`
	}

	err := s.retry.Do(ctx, func() error {
		return s.post(ctx, "/products.json", payload, &created)
	})
	if err != nil {
		return domain.StorefrontListing{}, err
	}

	s.debug("storefront product created", "file", asset.Filename, "product_id", created.Product.ID, "handle", created.Product.Handle)
	return domain.StorefrontListing{ProductID: created.Product.ID, Handle: created.Product.Handle}, nil
}

// buildProduct assembles the admin API product document: one variant per
// size, the design embedded as the product image, and a metafield linking
// back to the fulfillment product. The category tag is what the seeded
// smart collections match on.
func (s *Syncer) buildProduct(asset domain.DesignAsset, content []byte, fulfillmentID int64) map[string]any {
	variants := make([]map[string]any, 0, len(s.sizes))
	values := make([]string, 0, len(s.sizes))
	for _, size := range s.sizes {
		price := asset.RetailPrice
		if size.Upcharge > 0 {
			price = price.Scale(size.Upcharge)
		}
		variants = append(variants, map[string]any{
			"option1": size.Name,
			"price":   price.Decimal(),
			"sku":     skuFor(asset.Fingerprint, size.Name),
		})
		values = append(values, size.Name)
	}

	tags := []string{asset.Category, "ai-generated", "t-shirt"}
	if col, ok := s.collections[asset.Category]; ok && col.Handle != "" && col.Handle != asset.Category {
		tags = append(tags, col.Handle)
	}

	product := map[string]any{
		"title":        fmt.Sprintf("%s T-Shirt - %s", domain.TitleCase(asset.Category), domain.TitleCase(asset.Theme)),
		"body_html":    fmt.Sprintf("<p>AI-generated %s themed t-shirt featuring %s.</p>", asset.Category, asset.Theme),
		"vendor":       s.vendor,
		"product_type": "T-Shirt",
		"tags":         strings.Join(tags, ", "),
		"images": []map[string]any{
			{"attachment": base64.StdEncoding.EncodeToString(content), "filename": asset.Filename},
		},
		"variants": variants,
		"options":  []map[string]any{{"name": "Size", "values": values}},
	}
	if fulfillmentID != 0 {
		product["metafields"] = []map[string]any{{
			"namespace": "printful",
			"key":       "product_id",
			"value":     strconv.FormatInt(fulfillmentID, 10),
			"type":      "single_line_text_field",
		}}
	}
	return product
}

// skuFor keeps SKUs stable across runs: TEE-<fingerprint prefix>-<size>.
func skuFor(fingerprint, size string) string {
	prefix := fingerprint
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("TEE-%s-%s", prefix, size)
}

// post sends one admin API request and classifies failures the same way the
// fulfillment client does, so the shared retry policy applies.
func (s *Syncer) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", s.accessToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return &domain.APIError{Class: domain.ClassTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.APIError{Class: domain.ClassTransient, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		apiErr := domain.ClassifyStatus(resp.StatusCode, strings.TrimSpace(string(raw)))
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
				apiErr.RetryAfter = time.Duration(secs * float64(time.Second))
			}
		}
		return apiErr
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// CheckAuth fetches shop metadata to prove the token works.
func (s *Syncer) CheckAuth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/shop.json", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", s.accessToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("storefront unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("storefront auth failed: %s", resp.Status)
	}
	return nil
}

func (s *Syncer) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

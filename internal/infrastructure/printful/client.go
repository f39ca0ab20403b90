package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"teepress/internal/config"
	"teepress/internal/domain"
	"teepress/internal/ports"
)

// terminalMarker appears in responses from stores that cannot create
// products through the API; only "Manual Order / API platform" stores can.
const terminalMarker = "Manual Order / API platform"

// Client is the low-level fulfillment API client shared by the upload
// strategies and the publisher. Every request passes the rate limiter first.
type Client struct {
	baseURL string
	apiKey  string
	storeID string
	http    *http.Client
	limiter ports.Limiter
	logger  *slog.Logger
}

var _ ports.CredentialChecker = (*Client)(nil)

// NewClient builds the API client from configuration.
func NewClient(cfg config.FulfillmentConfig, limiter ports.Limiter, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		storeID: cfg.StoreID,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		logger:  log,
	}
}

// envelope is the platform's uniform response wrapper.
type envelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
}

// do sends the request and returns the raw result document, classifying any
// failure. Transport errors count as transient.
func (c *Client) do(ctx context.Context, req *http.Request) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.storeID != "" {
		req.Header.Set("X-PF-Store-Id", c.storeID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.APIError{Class: domain.ClassTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &domain.APIError{Class: domain.ClassTransient, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, classify(resp, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.APIError{
			Class:      domain.ClassPermanent,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed response: %v", err),
		}
	}

	c.debug("request ok", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
	return env.Result, nil
}

// classify maps a failed response onto the retry taxonomy. The store-type
// marker is terminal whatever the status code says.
func classify(resp *http.Response, body []byte) error {
	message := strings.TrimSpace(string(body))
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		message = env.Error.Message
	}

	if strings.Contains(string(body), terminalMarker) {
		return &domain.APIError{
			Class:      domain.ClassTerminal,
			StatusCode: resp.StatusCode,
			Message:    "store cannot create products via API; use a " + terminalMarker + " store",
		}
	}

	apiErr := domain.ClassifyStatus(resp.StatusCode, message)
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = retryAfter(resp)
	}
	return apiErr
}

// retryAfter reads the server's backoff hint, defaulting to a minute.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Minute
}

// getJSON issues a GET and decodes the result document into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	result, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(result, v); err != nil {
		return fmt.Errorf("decode %s result: %w", path, err)
	}
	return nil
}

// postJSON issues a JSON POST and decodes the result document into v.
func (c *Client) postJSON(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	result, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(result, v); err != nil {
		return fmt.Errorf("decode %s result: %w", path, err)
	}
	return nil
}

// postMultipart issues a multipart POST whose body is produced by fill.
func (c *Client) postMultipart(ctx context.Context, path string, fill func(w *multipart.Writer) error, v any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := fill(w); err != nil {
		return fmt.Errorf("build multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	result, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(result, v); err != nil {
		return fmt.Errorf("decode %s result: %w", path, err)
	}
	return nil
}

// CheckAuth probes the token scopes endpoint.
func (c *Client) CheckAuth(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("fulfillment API key is not configured")
	}
	return c.getJSON(ctx, "/oauth/scopes", nil)
}

// StoreType fetches the configured store's type ("native", "shopify", ...).
func (c *Client) StoreType(ctx context.Context) (string, error) {
	if c.storeID == "" {
		return "", fmt.Errorf("fulfillment store id is not configured")
	}

	var store struct {
		Type string `json:"type"`
	}
	if err := c.getJSON(ctx, "/stores/"+c.storeID, &store); err != nil {
		return "", err
	}
	return store.Type, nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

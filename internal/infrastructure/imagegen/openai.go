package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"teepress/internal/config"
	"teepress/internal/ports"
)

// OpenAIClient implements ports.Generator via an OpenAI-compatible images
// endpoint.
type OpenAIClient struct {
	endpoint   string
	model      string
	apiKey     string
	size       string
	httpClient *http.Client
}

var _ ports.Generator = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.ImageGenConfig) *OpenAIClient {
	return &OpenAIClient{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		size:     cfg.Size,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Generate renders one design image for the theme and returns raw PNG bytes.
func (c *OpenAIClient) Generate(ctx context.Context, theme string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("image client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("image client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":           c.model,
		"prompt":          designPrompt(theme),
		"n":               1,
		"size":            c.size,
		"quality":         "standard",
		"response_format": "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal image payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("image api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("image api returned no images")
	}

	img, err := base64.StdEncoding.DecodeString(decoded.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return img, nil
}

const promptTemplate = `Create a professional t-shirt design for: %s

Requirements:
- Clean, eye-catching design suitable for print-on-demand
- Works well on both white and black t-shirts
- High contrast, bold elements
- No text unless specifically requested
- Modern, trendy style
- Centered composition
- No copyrighted content

Make it vibrant and commercially appealing!`

// designPrompt keeps generations print-friendly; photographic gradients do
// not survive garment printing.
func designPrompt(theme string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(theme))
}

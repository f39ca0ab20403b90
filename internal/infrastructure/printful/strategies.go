package printful

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"strconv"

	"teepress/internal/domain"
	"teepress/internal/ports"
)

// uploadStrategy is one request shape for pushing a design into the file
// library. Deployments disagree on which shape the files endpoint accepts,
// so the uploader walks them in a fixed order.
type uploadStrategy interface {
	Name() string
	Upload(ctx context.Context, asset domain.DesignAsset, content []byte) (domain.AssetRef, error)
}

// fileResult is the /files result document.
type fileResult struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// multipartFieldStrategy posts the image as a single multipart "file" field
// with the store id as an ordinary form field.
type multipartFieldStrategy struct {
	client *Client
}

func (s *multipartFieldStrategy) Name() string { return "multipart-file" }

func (s *multipartFieldStrategy) Upload(ctx context.Context, asset domain.DesignAsset, content []byte) (domain.AssetRef, error) {
	var result fileResult
	err := s.client.postMultipart(ctx, "/files", func(w *multipart.Writer) error {
		if s.client.storeID != "" {
			if err := w.WriteField("store_id", s.client.storeID); err != nil {
				return err
			}
		}
		part, err := w.CreateFormFile("file", asset.Filename)
		if err != nil {
			return err
		}
		_, err = part.Write(content)
		return err
	}, &result)
	if err != nil {
		return domain.AssetRef{}, err
	}
	return domain.AssetRef{ID: result.ID, URL: result.URL}, nil
}

// multipartArrayStrategy posts the image under the array-style "file[]"
// field some deployments expect instead.
type multipartArrayStrategy struct {
	client *Client
}

func (s *multipartArrayStrategy) Name() string { return "multipart-array" }

func (s *multipartArrayStrategy) Upload(ctx context.Context, asset domain.DesignAsset, content []byte) (domain.AssetRef, error) {
	var result fileResult
	err := s.client.postMultipart(ctx, "/files", func(w *multipart.Writer) error {
		if s.client.storeID != "" {
			if err := w.WriteField("store_id", s.client.storeID); err != nil {
				return err
			}
		}
		part, err := w.CreateFormFile("file[]", asset.Filename)
		if err != nil {
			return err
		}
		_, err = part.Write(content)
		return err
	}, &result)
	if err != nil {
		return domain.AssetRef{}, err
	}
	return domain.AssetRef{ID: result.ID, URL: result.URL}, nil
}

// base64Strategy embeds the image as a data URL inside a JSON files array.
type base64Strategy struct {
	client *Client
}

func (s *base64Strategy) Name() string { return "json-base64" }

func (s *base64Strategy) Upload(ctx context.Context, asset domain.DesignAsset, content []byte) (domain.AssetRef, error) {
	payload := map[string]any{
		"type": "default",
		"files": []map[string]any{{
			"type":     "default",
			"url":      "data:image/png;base64," + base64.StdEncoding.EncodeToString(content),
			"filename": asset.Filename,
		}},
	}
	if s.client.storeID != "" {
		if id, err := strconv.Atoi(s.client.storeID); err == nil {
			payload["store_id"] = id
		}
	}

	var result fileResult
	if err := s.client.postJSON(ctx, "/files", payload, &result); err != nil {
		return domain.AssetRef{}, err
	}
	return domain.AssetRef{ID: result.ID, URL: result.URL}, nil
}

// hostedURLStrategy stages the image on public hosting first and sends only
// its URL, the shape current platform API versions document.
type hostedURLStrategy struct {
	client *Client
	host   ports.AssetHost
}

func (s *hostedURLStrategy) Name() string { return "hosted-url" }

func (s *hostedURLStrategy) Upload(ctx context.Context, asset domain.DesignAsset, content []byte) (domain.AssetRef, error) {
	publicURL, err := s.host.Host(ctx, asset.Filename, content)
	if err != nil {
		return domain.AssetRef{}, fmt.Errorf("host design: %w", err)
	}

	payload := map[string]any{
		"url":      publicURL,
		"type":     "default",
		"filename": asset.Filename,
		"visible":  true,
		"options":  []any{},
	}

	var result fileResult
	if err := s.client.postJSON(ctx, "/files", payload, &result); err != nil {
		return domain.AssetRef{}, err
	}

	ref := domain.AssetRef{ID: result.ID, URL: result.URL}
	if ref.URL == "" {
		ref.URL = publicURL
	}
	return ref, nil
}

package printful

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"teepress/internal/config"
	"teepress/internal/domain"
)

// fakeLimiter counts Wait calls without blocking.
type fakeLimiter struct {
	calls int
	err   error
}

func (f *fakeLimiter) Wait(context.Context) error {
	f.calls++
	return f.err
}

func testClient(srvURL string, limiter *fakeLimiter) *Client {
	cfg := config.FulfillmentConfig{BaseURL: srvURL, APIKey: "pf-key", StoreID: "123"}
	if limiter == nil {
		return NewClient(cfg, nil, nil)
	}
	return NewClient(cfg, limiter, nil)
}

func TestDoSetsAuthHeadersAndWaits(t *testing.T) {
	t.Parallel()

	var gotAuth, gotStore string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotStore = r.Header.Get("X-PF-Store-Id")
		w.Write([]byte(`{"code":200,"result":{}}`))
	}))
	defer srv.Close()

	limiter := &fakeLimiter{}
	c := testClient(srv.URL, limiter)

	if err := c.getJSON(context.Background(), "/oauth/scopes", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limiter.calls != 1 {
		t.Fatalf("expected 1 limiter wait, got %d", limiter.calls)
	}
	if gotAuth != "Bearer pf-key" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotStore != "123" {
		t.Fatalf("expected store id header, got %q", gotStore)
	}
}

func TestDoDecodesResultDocument(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"result":{"id":77,"url":"https://cdn.example/f.png"}}`))
	}))
	defer srv.Close()

	var result fileResult
	c := testClient(srv.URL, nil)
	if err := c.postJSON(context.Background(), "/files", map[string]any{"x": 1}, &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ID != 77 || result.URL != "https://cdn.example/f.png" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestDoClassifiesRateLimitWithHint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":429,"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	err := c.getJSON(context.Background(), "/files", nil)
	if !domain.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	hint, ok := domain.RetryAfterHint(err)
	if !ok || hint != 7*time.Second {
		t.Fatalf("expected 7s hint, got %v (%v)", hint, ok)
	}
}

func TestDoRateLimitDefaultsToMinute(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	err := c.getJSON(context.Background(), "/files", nil)
	hint, ok := domain.RetryAfterHint(err)
	if !ok || hint != time.Minute {
		t.Fatalf("expected the one-minute default hint, got %v (%v)", hint, ok)
	}
}

func TestDoTerminalMarkerOverridesStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":400,"error":{"message":"This store is not a Manual Order / API platform store"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	err := c.getJSON(context.Background(), "/store/products", nil)
	if !domain.IsTerminal(err) {
		t.Fatalf("expected terminal error, got %v", err)
	}
}

func TestDoExtractsPlatformMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":400,"error":{"message":"bad file format"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	err := c.getJSON(context.Background(), "/files", nil)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected an APIError, got %v", err)
	}
	if apiErr.Class != domain.ClassPermanent {
		t.Fatalf("expected a permanent error, got %s", apiErr.Class)
	}
	if apiErr.Message != "bad file format" {
		t.Fatalf("expected the platform message, got %q", apiErr.Message)
	}
}

func TestDoServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	if err := c.getJSON(context.Background(), "/files", nil); !domain.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestDoTransportErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := testClient(srv.URL, nil)
	if err := c.getJSON(context.Background(), "/files", nil); !domain.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestCheckAuth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/scopes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer pf-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"code":200,"result":{}}`))
	}))
	defer srv.Close()

	if err := testClient(srv.URL, nil).CheckAuth(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := NewClient(config.FulfillmentConfig{BaseURL: srv.URL, APIKey: "wrong", StoreID: "123"}, nil, nil)
	if err := bad.CheckAuth(context.Background()); err == nil {
		t.Fatal("expected an error for a rejected token")
	}

	unset := NewClient(config.FulfillmentConfig{BaseURL: srv.URL}, nil, nil)
	if err := unset.CheckAuth(context.Background()); err == nil {
		t.Fatal("expected an error for a missing token")
	}
}

func TestStoreType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stores/123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"code":200,"result":{"id":123,"type":"native"}}`))
	}))
	defer srv.Close()

	storeType, err := testClient(srv.URL, nil).StoreType(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storeType != "native" {
		t.Fatalf("expected native, got %q", storeType)
	}
}

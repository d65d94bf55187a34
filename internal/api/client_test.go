package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/coingecko-data/internal/ratelimit"
)

// countingAdmitter records Acquire calls.
type countingAdmitter struct {
	calls atomic.Int32
	err   error
}

func (a *countingAdmitter) Acquire(ctx context.Context) error {
	a.calls.Add(1)
	return a.err
}

// sleepRecorder replaces real backoff sleeps.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *sleepRecorder) got() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newTestClient(baseURL string, opts ...ClientOption) (*Client, *sleepRecorder) {
	c := NewClient(baseURL, "test-key", opts...)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	return c, rec
}

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com/api/v3/", "test-key")

		if c.baseURL != "https://api.example.com/api/v3" {
			t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
		}
		if c.apiKey != "test-key" {
			t.Errorf("apiKey = %q, want %q", c.apiKey, "test-key")
		}
		if c.httpClient.Timeout != 10*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 10*time.Second)
		}
		if c.maxAttempts != 3 {
			t.Errorf("maxAttempts = %d, want %d", c.maxAttempts, 3)
		}
		if c.rateLimitBackoff != 10*time.Second {
			t.Errorf("rateLimitBackoff = %v, want %v", c.rateLimitBackoff, 10*time.Second)
		}
		if c.retryDelay != 5*time.Second {
			t.Errorf("retryDelay = %v, want %v", c.retryDelay, 5*time.Second)
		}
		if c.limiter != nil {
			t.Error("limiter should be nil by default")
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with multiple options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		lim := &countingAdmitter{}
		c := NewClient("https://api.example.com", "key",
			WithTimeout(15*time.Second),
			WithRetries(5),
			WithBackoff(time.Second, 500*time.Millisecond),
			WithLimiter(lim),
			WithLogger(logger),
		)
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxAttempts != 5 {
			t.Errorf("maxAttempts = %d, want %d", c.maxAttempts, 5)
		}
		if c.rateLimitBackoff != time.Second || c.retryDelay != 500*time.Millisecond {
			t.Errorf("backoff = (%v, %v), want (1s, 500ms)", c.rateLimitBackoff, c.retryDelay)
		}
		if c.limiter != lim {
			t.Error("limiter not set correctly")
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("retries floor at one attempt", func(t *testing.T) {
		c := NewClient("https://api.example.com", "", WithRetries(0))
		if c.maxAttempts != 1 {
			t.Errorf("maxAttempts = %d, want 1", c.maxAttempts)
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://api.example.com", "", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 404, Message: "Not Found"}
	if got, want := err.Error(), "coingecko api error 404: Not Found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	tests := []struct {
		code int
		want bool
	}{
		{429, true},
		{500, false},
		{404, false},
	}
	for _, tt := range tests {
		if got := (&APIError{StatusCode: tt.code}).IsRateLimited(); got != tt.want {
			t.Errorf("IsRateLimited() for status %d = %v, want %v", tt.code, got, tt.want)
		}
	}
}

// TestDoRequest tests the HTTP request functionality.
func TestDoRequest(t *testing.T) {
	t.Run("sets headers and path", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v3/exchanges/list" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/api/v3/exchanges/list")
			}
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
			}
			if r.Header.Get(APIKeyHeader) != "test-key" {
				t.Errorf("%s header = %q, want %q", APIKeyHeader, r.Header.Get(APIKeyHeader), "test-key")
			}
			if !strings.HasPrefix(r.Header.Get("User-Agent"), "coingecko-ingester/") {
				t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
			}
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		c := NewClient(server.URL+"/api/v3", "test-key")
		body, err := c.doRequest(context.Background(), "exchanges/list", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `[]` {
			t.Errorf("body = %q, want %q", string(body), `[]`)
		}
	})

	t.Run("request without API key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Header[http.CanonicalHeaderKey(APIKeyHeader)]; ok {
				t.Errorf("%s header should be absent", APIKeyHeader)
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		if _, err := c.doRequest(context.Background(), "ping", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("non-200 returns APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "coin not found"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		_, err := c.doRequest(context.Background(), "coins/nope", nil)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, 404)
		}
		if !strings.Contains(string(apiErr.Body), "coin not found") {
			t.Errorf("Body should contain 'coin not found', got %q", string(apiErr.Body))
		}
	})
}

// TestFetch tests attempt classification and the retry budget.
func TestFetch(t *testing.T) {
	t.Run("succeeds on first try", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		lim := &countingAdmitter{}
		c, rec := newTestClient(server.URL, WithLimiter(lim))
		body, err := c.Fetch(context.Background(), "ping", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("body = %q", string(body))
		}
		if attempts != 1 || lim.calls.Load() != 1 {
			t.Errorf("attempts = %d, acquires = %d, want 1 and 1", attempts, lim.calls.Load())
		}
		if len(rec.got()) != 0 {
			t.Errorf("slept %v, want no sleeps", rec.got())
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount() = %d, want 1", c.RequestCount())
		}
	})

	t.Run("retries on 5xx with fixed delay", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c, rec := newTestClient(server.URL, WithRetries(3), WithBackoff(10*time.Second, 5*time.Second))
		if _, err := c.Fetch(context.Background(), "ping", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
		want := []time.Duration{5 * time.Second, 5 * time.Second}
		if got := rec.got(); !equalDurations(got, want) {
			t.Errorf("delays = %v, want %v", got, want)
		}
	})

	t.Run("rate limited backoff scales with attempt", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c, rec := newTestClient(server.URL, WithRetries(3), WithBackoff(10*time.Second, 5*time.Second))
		if _, err := c.Fetch(context.Background(), "coins/markets", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []time.Duration{10 * time.Second, 20 * time.Second}
		if got := rec.got(); !equalDurations(got, want) {
			t.Errorf("delays = %v, want %v", got, want)
		}
	})

	t.Run("exhausted after max attempts", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		lim := &countingAdmitter{}
		c, rec := newTestClient(server.URL, WithRetries(4), WithLimiter(lim))
		_, err := c.Fetch(context.Background(), "exchanges/binance", nil)

		if !errors.Is(err, ErrFetchExhausted) {
			t.Fatalf("error = %v, want ErrFetchExhausted", err)
		}
		var exhausted *FetchExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected *FetchExhaustedError, got %T", err)
		}
		if exhausted.Endpoint != "exchanges/binance" || exhausted.Attempts != 4 {
			t.Errorf("FetchExhaustedError = %+v", exhausted)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
			t.Errorf("last error should be the 502 APIError, got %v", exhausted.Err)
		}
		if attempts != 4 || lim.calls.Load() != 4 {
			t.Errorf("attempts = %d, acquires = %d, want 4 and 4", attempts, lim.calls.Load())
		}
		// No sleep after the final attempt.
		if got := len(rec.got()); got != 3 {
			t.Errorf("sleeps = %d, want 3", got)
		}
	})

	t.Run("4xx is retried like any other status", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c, _ := newTestClient(server.URL, WithRetries(2))
		if _, err := c.Fetch(context.Background(), "coins/nope", nil); err == nil {
			t.Fatal("expected error, got nil")
		}
		if attempts != 2 {
			t.Errorf("attempts = %d, want 2", attempts)
		}
	})

	t.Run("timeout uses fixed delay", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		c, rec := newTestClient(server.URL,
			WithTimeout(20*time.Millisecond),
			WithRetries(2),
			WithBackoff(10*time.Second, 3*time.Second),
		)
		_, err := c.Fetch(context.Background(), "ping", nil)
		if !errors.Is(err, ErrFetchExhausted) {
			t.Fatalf("error = %v, want ErrFetchExhausted", err)
		}
		want := []time.Duration{3 * time.Second}
		if got := rec.got(); !equalDurations(got, want) {
			t.Errorf("delays = %v, want %v", got, want)
		}
	})

	t.Run("limiter error stops before sending", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
		}))
		defer server.Close()

		lim := &countingAdmitter{err: context.Canceled}
		c, _ := newTestClient(server.URL, WithLimiter(lim))
		_, err := c.Fetch(context.Background(), "ping", nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if attempts != 0 {
			t.Errorf("attempts = %d, want 0", attempts)
		}
	})

	t.Run("context cancellation is not retried", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c, rec := newTestClient(server.URL, WithRetries(3))
		_, err := c.Fetch(ctx, "ping", nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if len(rec.got()) != 0 {
			t.Errorf("slept %v after cancellation", rec.got())
		}
	})
}

func TestRequestCountReset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
	}))
	defer server.Close()

	c, _ := newTestClient(server.URL)
	for i := 0; i < 3; i++ {
		if _, err := c.Ping(context.Background()); err != nil {
			t.Fatalf("Ping() error = %v", err)
		}
	}
	if got := c.ResetRequestCount(); got != 3 {
		t.Errorf("ResetRequestCount() = %d, want 3", got)
	}
	if got := c.RequestCount(); got != 0 {
		t.Errorf("RequestCount() after reset = %d, want 0", got)
	}
}

func TestRateLimitStats(t *testing.T) {
	c := NewClient("https://api.example.com", "")
	if _, ok := c.RateLimitStats(); ok {
		t.Error("RateLimitStats() ok = true without a limiter")
	}

	lim := ratelimit.New(ratelimit.Config{Requests: 7, Window: time.Minute}, nil)
	c = NewClient("https://api.example.com", "", WithLimiter(lim))
	stats, ok := c.RateLimitStats()
	if !ok {
		t.Fatal("RateLimitStats() ok = false")
	}
	if stats.MaxRequests != 7 || stats.Remaining != 7 {
		t.Errorf("stats = %+v, want 7 max and 7 remaining", stats)
	}
}

func equalDurations(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

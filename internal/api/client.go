package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rickgao/coingecko-data/internal/ratelimit"
	"github.com/rickgao/coingecko-data/internal/version"
)

// APIKeyHeader carries the demo API key.
const APIKeyHeader = "x-cg-demo-api-key"

// Admitter gates outbound attempts. *ratelimit.Limiter satisfies it.
type Admitter interface {
	Acquire(ctx context.Context) error
}

// Client provides access to the CoinGecko REST API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    Admitter

	maxAttempts      int
	rateLimitBackoff time.Duration
	retryDelay       time.Duration

	sleep    func(ctx context.Context, d time.Duration) error
	requests atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: version.UserAgent(),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:           slog.Default(),
		maxAttempts:      3,
		rateLimitBackoff: 10 * time.Second,
		retryDelay:       5 * time.Second,
		sleep:            sleepContext,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the total number of attempts per logical request.
func WithRetries(maxAttempts int) ClientOption {
	return func(c *Client) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		c.maxAttempts = maxAttempts
	}
}

// WithBackoff sets the delays between attempts. A rate-limited attempt waits
// rateLimit * attempt; every other failure waits retry.
func WithBackoff(rateLimit, retry time.Duration) ClientOption {
	return func(c *Client) {
		c.rateLimitBackoff = rateLimit
		c.retryDelay = retry
	}
}

// WithLimiter gates every attempt through the given admission controller.
func WithLimiter(l Admitter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// RequestCount returns the number of attempts sent since the last reset.
func (c *Client) RequestCount() int64 {
	return c.requests.Load()
}

// ResetRequestCount zeroes the attempt counter and returns its previous value.
func (c *Client) ResetRequestCount() int64 {
	return c.requests.Swap(0)
}

// RateLimitStats reports the limiter window, if the limiter exposes one.
func (c *Client) RateLimitStats() (ratelimit.Stats, bool) {
	sp, ok := c.limiter.(interface{ Stats() ratelimit.Stats })
	if !ok {
		return ratelimit.Stats{}, false
	}
	return sp.Stats(), true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

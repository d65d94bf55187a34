package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/rickgao/coingecko-data/internal/metrics"
)

// ErrFetchExhausted matches every *FetchExhaustedError.
var ErrFetchExhausted = errors.New("fetch attempts exhausted")

// APIError represents a non-200 response from the CoinGecko API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko api error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether the remote quota rejected the request.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// FetchExhaustedError is returned once every attempt of a logical request has failed.
type FetchExhaustedError struct {
	Endpoint string
	Attempts int
	Err      error // last attempt's failure
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s: %d attempts exhausted: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetchExhausted) true.
func (e *FetchExhaustedError) Is(target error) bool {
	return target == ErrFetchExhausted
}

// Attempt outcomes, used for logging and metrics labels.
const (
	outcomeSuccess     = "success"
	outcomeRateLimited = "rate_limited"
	outcomeTimeout     = "timeout"
	outcomeTransport   = "transport"
	outcomeStatus      = "status"
)

// doRequest performs one GET against endpoint.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// Fetch issues one logical GET, retrying transient failures.
//
// Each attempt first acquires the limiter. A rate-limited attempt backs off
// rateLimitBackoff * attempt; timeouts, transport errors and other statuses
// back off retryDelay. There is no sleep after the last attempt.
func (c *Client) Fetch(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	route := metrics.Route(endpoint)
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx); err != nil {
				return nil, err
			}
		}

		c.requests.Add(1)
		body, err := c.doRequest(ctx, endpoint, query)
		if err == nil {
			metrics.FetchAttempts.WithLabelValues(route, outcomeSuccess).Inc()
			c.logger.Debug("fetch succeeded",
				"endpoint", endpoint,
				"attempt", attempt,
				"bytes", len(body),
			)
			return body, nil
		}

		// A cancelled caller is not a transient failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		outcome, delay := c.classify(err, attempt)
		metrics.FetchAttempts.WithLabelValues(route, outcome).Inc()

		attrs := []any{
			"endpoint", endpoint,
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"outcome", outcome,
			"error", err,
		}
		if attempt == c.maxAttempts {
			c.logger.Warn("fetch attempt failed", attrs...)
			break
		}
		c.logger.Warn("fetch attempt failed, retrying", append(attrs, "backoff", delay)...)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	metrics.FetchExhausted.WithLabelValues(route).Inc()
	c.logger.Error("fetch exhausted",
		"endpoint", endpoint,
		"attempts", c.maxAttempts,
		"error", lastErr,
	)
	return nil, &FetchExhaustedError{
		Endpoint: endpoint,
		Attempts: c.maxAttempts,
		Err:      lastErr,
	}
}

// classify maps a failed attempt to its outcome label and backoff.
func (c *Client) classify(err error, attempt int) (string, time.Duration) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsRateLimited() {
			return outcomeRateLimited, c.rateLimitBackoff * time.Duration(attempt)
		}
		return outcomeStatus, c.retryDelay
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return outcomeTimeout, c.retryDelay
	}
	return outcomeTransport, c.retryDelay
}

// get performs a GET with retries and decodes the body into result.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, result any) error {
	body, err := c.Fetch(ctx, endpoint, query)
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", endpoint, err)
	}

	return nil
}

// Package ratelimit implements the sliding-window admission gate shared by
// every outbound CoinGecko request.
//
// A grant is recorded per request. Before granting, timestamps older than the
// window are evicted; when the window is full the caller waits until the
// oldest grant leaves it and re-checks. Every grant is followed by a fixed
// pacing delay, so effective throughput can be stricter than the quota.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/coingecko-data/internal/metrics"
)

// Config holds limiter configuration.
type Config struct {
	Requests int           // Grants allowed per window
	Window   time.Duration // Rolling window length
	Pacing   time.Duration // Delay applied after every grant
}

// Stats is a point-in-time view of the window.
type Stats struct {
	RequestsInWindow int           `json:"requests_in_window"`
	MaxRequests      int           `json:"max_requests"`
	Window           time.Duration `json:"window"`
	Remaining        int           `json:"remaining_requests"`
	TotalGranted     int64         `json:"total_granted"`
}

// Limiter is a sliding-window rate limiter safe for concurrent callers.
type Limiter struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	grants []time.Time // ascending
	total  int64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter.
func New(cfg Config, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Requests < 1 {
		cfg.Requests = 1
	}
	return &Limiter{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Acquire blocks until one outbound request may be issued.
// It returns early only if ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, granted := l.tryGrant()
		if granted {
			break
		}

		l.logger.Info("rate limit reached, waiting",
			"wait", wait,
			"max_requests", l.cfg.Requests,
			"window", l.cfg.Window,
		)
		metrics.RateLimitWaitSeconds.Observe(wait.Seconds())

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}

	if l.cfg.Pacing > 0 {
		return l.sleep(ctx, l.cfg.Pacing)
	}
	return nil
}

// tryGrant records a grant if the window has room, otherwise returns how long
// until the oldest grant expires.
func (l *Limiter) tryGrant() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictLocked(now)

	if len(l.grants) >= l.cfg.Requests {
		wait := l.grants[0].Add(l.cfg.Window).Sub(now)
		if wait <= 0 {
			// Clock granularity; the next pass evicts it.
			wait = time.Millisecond
		}
		return wait, false
	}

	l.grants = append(l.grants, now)
	l.total++
	return 0, true
}

// evictLocked drops grants that are at least one window old.
func (l *Limiter) evictLocked(now time.Time) {
	i := 0
	for i < len(l.grants) && now.Sub(l.grants[i]) >= l.cfg.Window {
		i++
	}
	if i == 0 {
		return
	}
	// Copy down so the backing array does not grow without bound.
	n := copy(l.grants, l.grants[i:])
	l.grants = l.grants[:n]
}

// Stats returns the current window usage.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	inWindow := 0
	for _, g := range l.grants {
		if now.Sub(g) < l.cfg.Window {
			inWindow++
		}
	}

	return Stats{
		RequestsInWindow: inWindow,
		MaxRequests:      l.cfg.Requests,
		Window:           l.cfg.Window,
		Remaining:        max(0, l.cfg.Requests-inWindow),
		TotalGranted:     l.total,
	}
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

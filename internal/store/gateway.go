package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/coingecko-data/internal/metrics"
)

// DefaultChunkSize is the largest batch a single BatchWriteItem accepts.
const DefaultChunkSize = 25

// SaveResult reports one SaveBatch call.
type SaveResult struct {
	Family       string
	Total        int
	Successful   int // items in fully successful chunks
	Chunks       int
	FailedChunks int
	Errors       []error // one per failed chunk
}

// OK reports whether every chunk succeeded.
func (r SaveResult) OK() bool {
	return r.FailedChunks == 0 && r.Successful == r.Total
}

// SuccessRate is the percentage of items persisted, 100 for empty input.
func (r SaveResult) SuccessRate() float64 {
	if r.Total == 0 {
		return 100
	}
	return float64(r.Successful) / float64(r.Total) * 100
}

// Gateway writes items to a Table in chunks and stamps expiry.
type Gateway struct {
	table     Table
	chunkSize int
	retention Retention
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithChunkSize sets the items per batched write.
func WithChunkSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.chunkSize = n
		}
	}
}

// WithRetention sets the per-class lifetimes.
func WithRetention(r Retention) Option {
	return func(g *Gateway) {
		g.retention = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// NewGateway creates a Gateway over table.
func NewGateway(table Table, opts ...Option) *Gateway {
	g := &Gateway{
		table:     table,
		chunkSize: DefaultChunkSize,
		retention: DefaultRetention,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SaveBatch writes items in chunks. A failed chunk is logged and counted but
// does not stop later chunks.
func (g *Gateway) SaveBatch(ctx context.Context, family string, items []Item) SaveResult {
	res := SaveResult{Family: family, Total: len(items)}
	if len(items) == 0 {
		g.logResult(res)
		return res
	}

	now := g.now()
	for start := 0; start < len(items); start += g.chunkSize {
		end := min(start+g.chunkSize, len(items))
		chunk := g.stamp(items[start:end], now)
		res.Chunks++

		if err := g.table.BatchWrite(ctx, chunk); err != nil {
			res.FailedChunks++
			res.Errors = append(res.Errors, fmt.Errorf("chunk %d (items %d-%d): %w", res.Chunks, start, end-1, err))
			metrics.StoreChunks.WithLabelValues(family, "failed").Inc()
			g.logger.Error("batch write chunk failed",
				"family", family,
				"chunk", res.Chunks,
				"size", len(chunk),
				"error", err,
			)
			continue
		}

		res.Successful += len(chunk)
		metrics.StoreChunks.WithLabelValues(family, "ok").Inc()
		metrics.StoreItems.WithLabelValues(family).Add(float64(len(chunk)))
	}

	g.logResult(res)
	return res
}

// Put writes one item through the single-item path.
func (g *Gateway) Put(ctx context.Context, item Item) error {
	stamped := g.stamp([]Item{item}, g.now())
	if err := g.table.Put(ctx, stamped[0]); err != nil {
		return fmt.Errorf("put %s/%s: %w", item.PK, item.SK, err)
	}
	return nil
}

// Query passes a range read through to the table.
func (g *Gateway) Query(ctx context.Context, q Query) ([]Item, error) {
	items, err := g.table.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.PK, err)
	}
	return items, nil
}

// Latest returns the newest unexpired item of one record kind in partition
// pk, or nil when there is none.
func (g *Gateway) Latest(ctx context.Context, pk, kind string) (*Item, error) {
	from, to := PrefixRange(kind + "#")
	items, err := g.Query(ctx, Query{PK: pk, SKFrom: from, SKTo: to, Descending: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// LatestPerKind returns the newest item of every record kind whose sort key
// starts with prefix, newest first. The whole prefix range is read, so its
// size is bounded by retention.
func (g *Gateway) LatestPerKind(ctx context.Context, pk, prefix string) ([]Item, error) {
	from, to := PrefixRange(prefix)
	items, err := g.Query(ctx, Query{PK: pk, SKFrom: from, SKTo: to, Descending: true})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]Item, 0, len(items))
	for _, it := range items {
		kind := it.Kind()
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		out = append(out, it)
	}
	return out, nil
}

// stamp copies items with expiry set from their class.
func (g *Gateway) stamp(items []Item, now time.Time) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.Expiry = g.retention.Expiry(it.Class, now)
		out[i] = it
	}
	return out
}

func (g *Gateway) logResult(res SaveResult) {
	attrs := []any{
		"family", res.Family,
		"total", res.Total,
		"successful", res.Successful,
		"success_rate", fmt.Sprintf("%.1f%%", res.SuccessRate()),
	}
	if res.OK() {
		g.logger.Info("batch save completed", attrs...)
		return
	}
	g.logger.Warn("batch save completed with failures", append(attrs, "failed_chunks", res.FailedChunks)...)
}

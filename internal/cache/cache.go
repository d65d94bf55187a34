// Package cache mirrors the latest quick price per symbol into Redis so
// readers get it without a range query.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rickgao/coingecko-data/internal/config"
	"github.com/rickgao/coingecko-data/internal/model"
)

// KeyPrefix prefixes every quick-price key.
const KeyPrefix = "quick_price:"

// kv is the subset of redis.Cmdable used here.
type kv interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// QuickPrices is a Redis-backed latest-price mirror.
type QuickPrices struct {
	client kv
	ttl    time.Duration
	closer func() error
	logger *slog.Logger
}

// Open connects to Redis at cfg.Addr.
func Open(ctx context.Context, cfg config.CacheConfig, ttl time.Duration, logger *slog.Logger) (*QuickPrices, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	q := newQuickPrices(client, ttl, logger)
	q.closer = client.Close
	return q, nil
}

func newQuickPrices(client kv, ttl time.Duration, logger *slog.Logger) *QuickPrices {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuickPrices{
		client: client,
		ttl:    ttl,
		closer: func() error { return nil },
		logger: logger,
	}
}

// Key returns the Redis key of a symbol.
func Key(symbol string) string {
	return KeyPrefix + strings.ToUpper(symbol)
}

type entry struct {
	Symbol    string           `json:"symbol"`
	Price     decimal.Decimal  `json:"price"`
	MarketCap *decimal.Decimal `json:"market_cap"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SetQuickPrice stores u under its symbol, replacing any previous value.
func (q *QuickPrices) SetQuickPrice(ctx context.Context, u model.QuickPriceUpdate) error {
	e := entry{Symbol: u.Symbol, Price: u.Price, UpdatedAt: u.UpdatedAt}
	if u.MarketCap.Valid {
		e.MarketCap = &u.MarketCap.Decimal
	}

	data, err := sonic.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal quick price %s: %w", u.Symbol, err)
	}

	if err := q.client.Set(ctx, Key(u.Symbol), data, q.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", Key(u.Symbol), err)
	}
	return nil
}

// QuickPrice returns the cached price of symbol. ok is false on a miss.
func (q *QuickPrices) QuickPrice(ctx context.Context, symbol string) (u model.QuickPriceUpdate, ok bool, err error) {
	data, err := q.client.Get(ctx, Key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.QuickPriceUpdate{}, false, nil
	}
	if err != nil {
		return model.QuickPriceUpdate{}, false, fmt.Errorf("get %s: %w", Key(symbol), err)
	}

	var e entry
	if err := sonic.Unmarshal(data, &e); err != nil {
		return model.QuickPriceUpdate{}, false, fmt.Errorf("unmarshal %s: %w", Key(symbol), err)
	}

	u = model.QuickPriceUpdate{Symbol: e.Symbol, Price: e.Price, UpdatedAt: e.UpdatedAt}
	if e.MarketCap != nil {
		u.MarketCap = decimal.NewNullDecimal(*e.MarketCap)
	}
	return u, true, nil
}

// Close releases the connection.
func (q *QuickPrices) Close() error {
	return q.closer()
}

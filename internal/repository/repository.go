package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/coingecko-data/internal/model"
	"github.com/rickgao/coingecko-data/internal/store"
)

// Family names reported in SaveResult and metrics.
const (
	FamilyExchange = "exchange"
	FamilyToken    = "token"
)

// PriceCache mirrors the latest quick price per symbol.
type PriceCache interface {
	SetQuickPrice(ctx context.Context, u model.QuickPriceUpdate) error
}

// Repository persists entity families through a store gateway.
type Repository struct {
	gw     *store.Gateway
	cache  PriceCache
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithPriceCache mirrors quick prices into c after each successful write.
func WithPriceCache(c PriceCache) Option {
	return func(r *Repository) {
		r.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// New creates a Repository.
func New(gw *store.Gateway, opts ...Option) *Repository {
	r := &Repository{
		gw:     gw,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Family is one entity family mapped onto items.
type Family interface {
	Name() string
	Items() []store.Item
}

// ExchangeFamily adapts an exchange batch to Family.
type ExchangeFamily model.ExchangeBatch

func (f ExchangeFamily) Name() string        { return FamilyExchange }
func (f ExchangeFamily) Items() []store.Item { return ExchangeItems(model.ExchangeBatch(f)) }

// TokenFamily adapts a token batch to Family.
type TokenFamily model.TokenBatch

func (f TokenFamily) Name() string        { return FamilyToken }
func (f TokenFamily) Items() []store.Item { return TokenItems(model.TokenBatch(f)) }

// Save writes one family through the chunked gateway path.
func (r *Repository) Save(ctx context.Context, f Family) store.SaveResult {
	return r.gw.SaveBatch(ctx, f.Name(), f.Items())
}

// SaveExchanges writes the exchange family in one SaveBatch.
func (r *Repository) SaveExchanges(ctx context.Context, b model.ExchangeBatch) store.SaveResult {
	return r.Save(ctx, ExchangeFamily(b))
}

// SaveTokens writes the token family in one SaveBatch.
func (r *Repository) SaveTokens(ctx context.Context, b model.TokenBatch) store.SaveResult {
	return r.Save(ctx, TokenFamily(b))
}

// SaveQuickPrice writes one quick price. A cache failure is logged only.
func (r *Repository) SaveQuickPrice(ctx context.Context, u model.QuickPriceUpdate) error {
	if err := r.gw.Put(ctx, quickPriceItem(u)); err != nil {
		return err
	}

	if r.cache != nil {
		if err := r.cache.SetQuickPrice(ctx, u); err != nil {
			r.logger.Warn("quick price cache write failed", "symbol", u.Symbol, "error", err)
		}
	}
	return nil
}

// ExchangeSnapshot is the newest profile and stats of one exchange.
type ExchangeSnapshot struct {
	Exchange *store.Item
	Stats    *store.Item
}

// TokenSnapshot is the newest profile, stats and per-chain platforms of one token.
type TokenSnapshot struct {
	Token     *store.Item
	Stats     *store.Item
	Platforms []store.Item
}

// LatestExchange returns the newest profile and stats of an exchange. Each
// record kind is read separately so a long stats history never hides the
// profile.
func (r *Repository) LatestExchange(ctx context.Context, id uuid.UUID) (ExchangeSnapshot, error) {
	pk := ExchangePK(id.String())

	var (
		snap ExchangeSnapshot
		err  error
	)
	if snap.Exchange, err = r.gw.Latest(ctx, pk, KindInfo); err != nil {
		return ExchangeSnapshot{}, fmt.Errorf("latest exchange %s: %w", id, err)
	}
	if snap.Stats, err = r.gw.Latest(ctx, pk, KindStats); err != nil {
		return ExchangeSnapshot{}, fmt.Errorf("latest exchange stats %s: %w", id, err)
	}
	return snap, nil
}

// LatestToken returns the newest profile, stats and per-chain platform of a token.
func (r *Repository) LatestToken(ctx context.Context, id uuid.UUID) (TokenSnapshot, error) {
	pk := TokenPK(id.String())

	var (
		snap TokenSnapshot
		err  error
	)
	if snap.Token, err = r.gw.Latest(ctx, pk, KindInfo); err != nil {
		return TokenSnapshot{}, fmt.Errorf("latest token %s: %w", id, err)
	}
	if snap.Stats, err = r.gw.Latest(ctx, pk, KindStats); err != nil {
		return TokenSnapshot{}, fmt.Errorf("latest token stats %s: %w", id, err)
	}
	if snap.Platforms, err = r.gw.LatestPerKind(ctx, pk, KindPlatform+"#"); err != nil {
		return TokenSnapshot{}, fmt.Errorf("latest token platforms %s: %w", id, err)
	}
	return snap, nil
}

// LatestQuickPrice returns the newest quick price of symbol.
func (r *Repository) LatestQuickPrice(ctx context.Context, symbol string) (*store.Item, error) {
	items, err := r.gw.Query(ctx, store.Query{PK: QuickPricePK(symbol), Descending: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// Volume history lookbacks.
const (
	LookbackDay   = 24 * time.Hour
	LookbackWeek  = 7 * 24 * time.Hour
	LookbackMonth = 30 * 24 * time.Hour
)

// VolumeHistory holds the 24h trading volume recorded one day, one week and
// one month before a reference time.
type VolumeHistory struct {
	DayAgo   decimal.NullDecimal
	WeekAgo  decimal.NullDecimal
	MonthAgo decimal.NullDecimal
}

// ExchangeVolumeHistory reads the newest stats snapshot at or before each
// lookback point.
func (r *Repository) ExchangeVolumeHistory(ctx context.Context, exchangeID uuid.UUID, now time.Time) (VolumeHistory, error) {
	var (
		h   VolumeHistory
		err error
	)
	if h.DayAgo, err = r.ExchangeVolumeAsOf(ctx, exchangeID, now.Add(-LookbackDay)); err != nil {
		return h, err
	}
	if h.WeekAgo, err = r.ExchangeVolumeAsOf(ctx, exchangeID, now.Add(-LookbackWeek)); err != nil {
		return h, err
	}
	if h.MonthAgo, err = r.ExchangeVolumeAsOf(ctx, exchangeID, now.Add(-LookbackMonth)); err != nil {
		return h, err
	}
	return h, nil
}

// ExchangeVolumeAsOf returns trading_volume_24h of the newest stats snapshot
// written at or before at. Absent if there is none.
func (r *Repository) ExchangeVolumeAsOf(ctx context.Context, exchangeID uuid.UUID, at time.Time) (decimal.NullDecimal, error) {
	items, err := r.gw.Query(ctx, store.Query{
		PK:         ExchangePK(exchangeID.String()),
		SKFrom:     KindStats + "#",
		SKTo:       store.SortKey(KindStats, at),
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if len(items) == 0 {
		return decimal.NullDecimal{}, nil
	}
	return DecimalAttr(items[0].Attributes["trading_volume_24h"]), nil
}

// DecimalAttr reads a numeric attribute written by any backend.
func DecimalAttr(v any) decimal.NullDecimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return decimal.NewNullDecimal(x)
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(x)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(x))
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(x))
	default:
		return decimal.NullDecimal{}
	}
}

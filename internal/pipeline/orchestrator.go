package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/coingecko-data/internal/api"
	"github.com/rickgao/coingecko-data/internal/model"
	"github.com/rickgao/coingecko-data/internal/repository"
	"github.com/rickgao/coingecko-data/internal/store"
)

// ErrAPIUnreachable is returned when the liveness probe fails before a run.
var ErrAPIUnreachable = errors.New("coingecko api unreachable")

// Source is the fetch surface used by the orchestrator.
type Source interface {
	ValidateConnection(ctx context.Context) bool
	GetExchangesList(ctx context.Context) ([]api.ExchangeListEntry, error)
	GetExchange(ctx context.Context, id string) (json.RawMessage, error)
	GetCoinsList(ctx context.Context, includePlatform bool) ([]api.CoinListEntry, error)
	GetCoinsMarkets(ctx context.Context, opts api.MarketsOptions) ([]json.RawMessage, error)
	GetCoin(ctx context.Context, id string, opts api.CoinOptions) (json.RawMessage, error)
	RequestCount() int64
}

// Sink is the persistence surface used by the orchestrator.
type Sink interface {
	SaveExchanges(ctx context.Context, b model.ExchangeBatch) store.SaveResult
	SaveTokens(ctx context.Context, b model.TokenBatch) store.SaveResult
	SaveQuickPrice(ctx context.Context, u model.QuickPriceUpdate) error
	ExchangeVolumeHistory(ctx context.Context, exchangeID uuid.UUID, now time.Time) (repository.VolumeHistory, error)
}

// Config holds run sizing.
type Config struct {
	VsCurrency        string
	TopExchanges      int
	ExchangeBatchSize int
	MarketsPageSize   int
	MarketsMaxPages   int
	DetailTokens      int
	TxMultiplier      int64
	VolumeHistory     bool
}

// DefaultConfig returns the production sizing.
func DefaultConfig() Config {
	return Config{
		VsCurrency:        "usd",
		TopExchanges:      50,
		ExchangeBatchSize: 10,
		MarketsPageSize:   api.MaxMarketsPerPage,
		MarketsMaxPages:   4,
		DetailTokens:      20,
		TxMultiplier:      100,
		VolumeHistory:     true,
	}
}

// Orchestrator runs the sync modes.
type Orchestrator struct {
	cfg    Config
	src    Source
	sink   Sink
	logger *slog.Logger

	mu      sync.Mutex
	lastRun time.Time
	now     func() time.Time
}

// New creates an Orchestrator.
func New(cfg Config, src Source, sink Sink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ExchangeBatchSize < 1 {
		cfg.ExchangeBatchSize = 1
	}
	if cfg.MarketsMaxPages < 1 {
		cfg.MarketsMaxPages = 1
	}
	return &Orchestrator{
		cfg:    cfg,
		src:    src,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// ValidateAPI reports whether the API answers its liveness probe.
func (o *Orchestrator) ValidateAPI(ctx context.Context) bool {
	return o.src.ValidateConnection(ctx)
}

// runTime returns the UTC timestamp stamped on every record of one run.
// It is strictly increasing at sort-key resolution so two runs never share
// a sort key.
func (o *Orchestrator) runTime() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := o.now().UTC().Truncate(time.Microsecond)
	if !t.After(o.lastRun) {
		t = o.lastRun.Add(time.Microsecond)
	}
	o.lastRun = t
	return t
}

// requestsSince returns the requests issued since start, clamped at zero when
// the counter was reset mid-run.
func (o *Orchestrator) requestsSince(start int64) int64 {
	return max(0, o.src.RequestCount()-start)
}

// pageMarkets fetches markets pages 1..MarketsMaxPages, stopping at the first
// empty page, and hands every page to fn.
func (o *Orchestrator) pageMarkets(ctx context.Context, fn func(page int, records []json.RawMessage)) (pages int, err error) {
	for page := 1; page <= o.cfg.MarketsMaxPages; page++ {
		records, err := o.src.GetCoinsMarkets(ctx, api.MarketsOptions{
			VsCurrency: o.cfg.VsCurrency,
			PerPage:    o.cfg.MarketsPageSize,
			Page:       page,
		})
		if err != nil {
			return pages, err
		}
		if len(records) == 0 {
			o.logger.Debug("markets listing exhausted", "page", page)
			break
		}
		pages++
		fn(page, records)
	}
	return pages, nil
}

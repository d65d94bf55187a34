package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/coingecko-data/internal/api"
	"github.com/rickgao/coingecko-data/internal/metrics"
	"github.com/rickgao/coingecko-data/internal/model"
	"github.com/rickgao/coingecko-data/internal/store"
	"github.com/rickgao/coingecko-data/internal/transform"
)

// FullSyncResult reports one full sync run.
type FullSyncResult struct {
	RunAt    time.Time
	Duration time.Duration

	ExchangesListed  int
	CoinsListed      int
	Exchanges        int // exchanges transformed
	ExchangeFailures int // detail fetch or transform failures
	MarketPages      int
	Tokens           int
	TokenFailures    int
	Platforms        int
	DetailEnriched   int
	DetailFailures   int

	ExchangeSave store.SaveResult
	TokenSave    store.SaveResult

	Requests int64 // logical requests issued during the run
}

// Items returns the number of records persisted.
func (r FullSyncResult) Items() int {
	return r.ExchangeSave.Successful + r.TokenSave.Successful
}

// SavesOK reports whether both family saves fully succeeded.
func (r FullSyncResult) SavesOK() bool {
	return r.ExchangeSave.OK() && r.TokenSave.OK()
}

// FullSync fetches, transforms and persists the exchange and token families.
func (o *Orchestrator) FullSync(ctx context.Context) (FullSyncResult, error) {
	start := time.Now()
	startRequests := o.src.RequestCount()
	res := FullSyncResult{RunAt: o.runTime()}
	finish := func() {
		res.Duration = time.Since(start)
		res.Requests = o.requestsSince(startRequests)
	}

	if !o.src.ValidateConnection(ctx) {
		finish()
		return res, ErrAPIUnreachable
	}

	o.logger.Info("starting full sync", "run_at", store.FormatTime(res.RunAt))

	var (
		exchanges []api.ExchangeListEntry
		coins     []api.CoinListEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exchanges, err = o.src.GetExchangesList(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		coins, err = o.src.GetCoinsList(gctx, true)
		return err
	})
	if err := g.Wait(); err != nil {
		finish()
		return res, fmt.Errorf("fetch lists: %w", err)
	}
	res.ExchangesListed = len(exchanges)
	res.CoinsListed = len(coins)

	exchanges = withIDs(exchanges)
	if len(exchanges) > o.cfg.TopExchanges {
		exchanges = exchanges[:o.cfg.TopExchanges]
	}
	exBatch := o.syncExchanges(ctx, exchanges, res.RunAt, &res)

	tokBatch, err := o.syncTokens(ctx, coins, res.RunAt, &res)
	if err != nil {
		finish()
		return res, err
	}

	res.ExchangeSave = o.sink.SaveExchanges(ctx, exBatch)
	res.TokenSave = o.sink.SaveTokens(ctx, tokBatch)
	finish()

	o.logger.Info("full sync completed",
		"exchanges", res.Exchanges,
		"exchange_failures", res.ExchangeFailures,
		"tokens", res.Tokens,
		"token_failures", res.TokenFailures,
		"platforms", res.Platforms,
		"detail_enriched", res.DetailEnriched,
		"items_saved", res.Items(),
		"saves_ok", res.SavesOK(),
		"requests", res.Requests,
		"duration", res.Duration,
	)
	return res, nil
}

type exchangeOutcome struct {
	exchange model.Exchange
	stats    model.ExchangeStats
	ok       bool
}

// syncExchanges fetches exchange details in fixed-size concurrent batches.
// Every batch is joined before the next one starts.
func (o *Orchestrator) syncExchanges(ctx context.Context, list []api.ExchangeListEntry, runAt time.Time, res *FullSyncResult) model.ExchangeBatch {
	var out model.ExchangeBatch

	for start := 0; start < len(list); start += o.cfg.ExchangeBatchSize {
		batch := list[start:min(start+o.cfg.ExchangeBatchSize, len(list))]
		outcomes := make([]exchangeOutcome, len(batch))

		var g errgroup.Group
		for i, entry := range batch {
			g.Go(func() error {
				outcomes[i] = o.syncExchange(ctx, entry.ID, runAt)
				return nil
			})
		}
		_ = g.Wait()

		for _, oc := range outcomes {
			if !oc.ok {
				res.ExchangeFailures++
				continue
			}
			out.Exchanges = append(out.Exchanges, oc.exchange)
			out.Stats = append(out.Stats, oc.stats)
		}
	}

	res.Exchanges = len(out.Exchanges)
	return out
}

func withIDs(list []api.ExchangeListEntry) []api.ExchangeListEntry {
	out := list[:0:0]
	for _, e := range list {
		if e.ID != "" {
			out = append(out, e)
		}
	}
	return out
}

func (o *Orchestrator) syncExchange(ctx context.Context, id string, runAt time.Time) exchangeOutcome {
	raw, err := o.src.GetExchange(ctx, id)
	if err != nil {
		o.logger.Error("failed to get exchange details", "exchange", id, "error", err)
		return exchangeOutcome{}
	}

	ex, stats, err := transform.Exchange(id, raw, runAt)
	if err != nil {
		metrics.TransformFailures.WithLabelValues(transform.KindExchange).Inc()
		o.logger.Error("failed to process exchange", "exchange", id, "error", err)
		return exchangeOutcome{}
	}

	if o.cfg.VolumeHistory {
		h, err := o.sink.ExchangeVolumeHistory(ctx, stats.ExchangeID, runAt)
		if err != nil {
			o.logger.Warn("volume history lookup failed", "exchange", id, "error", err)
		} else {
			transform.ApplyVolumeHistory(&stats, h.DayAgo, h.WeekAgo, h.MonthAgo)
		}
	}

	return exchangeOutcome{exchange: ex, stats: stats, ok: true}
}

// syncTokens pages the markets listing, attaches listed platforms and
// replaces the top records with detail-enriched ones.
func (o *Orchestrator) syncTokens(ctx context.Context, coins []api.CoinListEntry, runAt time.Time, res *FullSyncResult) (model.TokenBatch, error) {
	platforms := make(map[string]map[string]string, len(coins))
	for _, c := range coins {
		if len(c.Platforms) > 0 {
			platforms[c.ID] = c.Platforms
		}
	}

	var (
		records []transform.TokenRecord
		index   = make(map[string]int) // source id -> position in records
	)
	pages, err := o.pageMarkets(ctx, func(page int, raws []json.RawMessage) {
		for _, raw := range raws {
			rec, err := transform.TokenFromMarket(raw, runAt, o.cfg.TxMultiplier)
			if err != nil {
				res.TokenFailures++
				metrics.TransformFailures.WithLabelValues(transform.KindToken).Inc()
				o.logger.Error("failed to process market token", "page", page, "error", err)
				continue
			}
			if _, dup := index[rec.Token.SourceID]; dup {
				continue
			}
			index[rec.Token.SourceID] = len(records)
			records = append(records, rec.WithListedPlatforms(platforms[rec.Token.SourceID]))
		}
	})
	res.MarketPages = pages
	if err != nil {
		return model.TokenBatch{}, fmt.Errorf("fetch markets: %w", err)
	}

	o.enrichTopTokens(ctx, records, runAt, res)

	var out model.TokenBatch
	for _, r := range records {
		out.Tokens = append(out.Tokens, r.Token)
		out.Stats = append(out.Stats, r.Stats)
		out.Platforms = append(out.Platforms, r.Platforms...)
	}
	res.Tokens = len(out.Tokens)
	res.Platforms = len(out.Platforms)
	return out, nil
}

// enrichTopTokens replaces the first DetailTokens records, already in
// market-cap order, with their coins/{id} detail mapping.
func (o *Orchestrator) enrichTopTokens(ctx context.Context, records []transform.TokenRecord, runAt time.Time, res *FullSyncResult) {
	n := min(o.cfg.DetailTokens, len(records))
	if n == 0 {
		return
	}
	o.logger.Info("enriching top tokens with detail data", "count", n)

	for i := range records[:n] {
		id := records[i].Token.SourceID
		raw, err := o.src.GetCoin(ctx, id, api.CoinOptions{MarketData: true})
		if err != nil {
			res.DetailFailures++
			o.logger.Error("failed to get detailed token data", "coin", id, "error", err)
			continue
		}

		rec, err := transform.TokenFromDetail(raw, o.cfg.VsCurrency, runAt, o.cfg.TxMultiplier)
		if err != nil {
			res.DetailFailures++
			metrics.TransformFailures.WithLabelValues(transform.KindToken).Inc()
			o.logger.Error("failed to process detailed token", "coin", id, "error", err)
			continue
		}
		records[i] = rec
		res.DetailEnriched++
	}
}

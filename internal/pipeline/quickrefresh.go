package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rickgao/coingecko-data/internal/metrics"
	"github.com/rickgao/coingecko-data/internal/transform"
)

// QuickRefreshResult reports one quick price refresh.
type QuickRefreshResult struct {
	RunAt    time.Time
	Duration time.Duration

	MarketPages       int
	Updates           int // prices persisted
	TransformFailures int
	WriteFailures     int

	Requests int64
}

// QuickRefresh pages the markets listing and persists one price per symbol
// record through the single-item write path.
func (o *Orchestrator) QuickRefresh(ctx context.Context) (QuickRefreshResult, error) {
	start := time.Now()
	startRequests := o.src.RequestCount()
	res := QuickRefreshResult{RunAt: o.runTime()}
	finish := func() {
		res.Duration = time.Since(start)
		res.Requests = o.requestsSince(startRequests)
	}

	if !o.src.ValidateConnection(ctx) {
		finish()
		return res, ErrAPIUnreachable
	}

	o.logger.Info("starting quick price refresh", "run_at", res.RunAt)

	pages, err := o.pageMarkets(ctx, func(page int, raws []json.RawMessage) {
		for _, raw := range raws {
			u, err := transform.QuickPrice(raw, res.RunAt)
			if err != nil {
				res.TransformFailures++
				metrics.TransformFailures.WithLabelValues(transform.KindQuickPrice).Inc()
				o.logger.Warn("failed to process quick price", "page", page, "error", err)
				continue
			}
			if err := o.sink.SaveQuickPrice(ctx, u); err != nil {
				res.WriteFailures++
				o.logger.Error("quick price write failed", "symbol", u.Symbol, "error", err)
				continue
			}
			res.Updates++
		}
	})
	res.MarketPages = pages
	finish()
	if err != nil {
		return res, fmt.Errorf("fetch markets: %w", err)
	}

	o.logger.Info("quick price refresh completed",
		"updates", res.Updates,
		"transform_failures", res.TransformFailures,
		"write_failures", res.WriteFailures,
		"requests", res.Requests,
		"duration", res.Duration,
	)
	return res, nil
}

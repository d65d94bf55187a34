package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/coingecko-data/internal/api"
	"github.com/rickgao/coingecko-data/internal/cache"
	"github.com/rickgao/coingecko-data/internal/config"
	"github.com/rickgao/coingecko-data/internal/jobs"
	"github.com/rickgao/coingecko-data/internal/pipeline"
	"github.com/rickgao/coingecko-data/internal/ratelimit"
	"github.com/rickgao/coingecko-data/internal/repository"
	"github.com/rickgao/coingecko-data/internal/scheduler"
	"github.com/rickgao/coingecko-data/internal/store"
	"github.com/rickgao/coingecko-data/internal/version"
)

// App is a fully wired ingester.
type App struct {
	cfg    *config.IngesterConfig
	logger *slog.Logger

	limiter   *ratelimit.Limiter
	client    *api.Client
	backend   *backend
	retention store.Retention
	prices    *cache.QuickPrices
	repo      *repository.Repository
	orch      *pipeline.Orchestrator
	sched     *scheduler.Scheduler
	stats     *scheduler.Stats
}

// New opens the store and cache named by cfg and wires every component.
func New(ctx context.Context, cfg *config.IngesterConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	be, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, backend: be}

	retention := store.RetentionFromDays(cfg.Retention.InfoDays, cfg.Retention.StatsDays, cfg.Retention.QuickPriceDays)
	if cfg.Sync.VolumeHistoryEnabled() {
		covered := retention.CoveringStats(repository.LookbackMonth)
		if covered.Stats != retention.Stats {
			logger.Info("extending stats retention to cover volume history",
				"configured", retention.Stats,
				"effective", covered.Stats,
			)
		}
		retention = covered
	}
	a.retention = retention

	repoOpts := []repository.Option{repository.WithLogger(logger)}
	if cfg.Cache.Addr != "" {
		prices, err := cache.Open(ctx, cfg.Cache, retention.QuickPrice, logger)
		if err != nil {
			be.close()
			return nil, err
		}
		a.prices = prices
		repoOpts = append(repoOpts, repository.WithPriceCache(prices))
	}

	a.limiter = ratelimit.New(ratelimit.Config{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		Pacing:   cfg.RateLimit.Pacing,
	}, logger)

	a.client = api.NewClient(cfg.API.BaseURL, cfg.API.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries),
		api.WithBackoff(cfg.API.RateLimitBackoff, cfg.API.RetryDelay),
		api.WithLimiter(a.limiter),
	)

	gw := store.NewGateway(be.table,
		store.WithChunkSize(cfg.Store.ChunkSize),
		store.WithRetention(retention),
		store.WithLogger(logger),
	)
	a.repo = repository.New(gw, repoOpts...)

	a.orch = pipeline.New(pipeline.Config{
		VsCurrency:        cfg.Sync.VsCurrency,
		TopExchanges:      cfg.Sync.TopExchanges,
		ExchangeBatchSize: cfg.Sync.ExchangeBatchSize,
		MarketsPageSize:   cfg.Sync.MarketsPageSize,
		MarketsMaxPages:   cfg.Sync.MarketsMaxPages,
		DetailTokens:      cfg.Sync.DetailTokens,
		TxMultiplier:      cfg.Sync.TxMultiplier,
		VolumeHistory:     cfg.Sync.VolumeHistoryEnabled(),
	}, a.client, a.repo, logger)

	a.stats = scheduler.NewStats()
	a.sched = scheduler.New(a.stats, logger)
	if err := jobs.Register(a.sched, jobs.Schedules{
		FullSync:     cfg.Scheduler.FullSync,
		QuickRefresh: cfg.Scheduler.QuickRefresh,
		HealthCheck:  cfg.Scheduler.HealthCheck,
		Maintenance:  cfg.Scheduler.Maintenance,
	}, jobs.Deps{
		Syncer:  a.orch,
		Counter: a.client,
		Sweeper: be.sweeper,
		Logger:  logger,
	}); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Start starts the job triggers.
func (a *App) Start() {
	a.sched.Start()
}

// Stop stops the triggers and waits for in-flight runs or ctx.
func (a *App) Stop(ctx context.Context) error {
	return a.sched.Stop(ctx)
}

// Close releases the store and cache connections.
func (a *App) Close() {
	if a.prices != nil {
		if err := a.prices.Close(); err != nil {
			a.logger.Warn("close cache", "error", err)
		}
	}
	a.backend.close()
}

// Migrate creates the store schema where the driver needs one.
func (a *App) Migrate(ctx context.Context) error {
	if a.backend.migrate == nil {
		a.logger.Info("store driver needs no migration", "driver", a.backend.driver)
		return nil
	}
	return a.backend.migrate(ctx)
}

// ExecuteJob runs a named job now. Full sync errors are returned; other
// jobs' errors are recorded in Stats only.
func (a *App) ExecuteJob(ctx context.Context, name string) error {
	return a.sched.RunOnce(ctx, name)
}

// Stats returns the scheduler statistics.
func (a *App) Stats() scheduler.Snapshot {
	return a.stats.Snapshot()
}

// RateLimitStats returns the admission window usage.
func (a *App) RateLimitStats() ratelimit.Stats {
	return a.limiter.Stats()
}

// ValidateAPIConnection probes the API.
func (a *App) ValidateAPIConnection(ctx context.Context) bool {
	return a.orch.ValidateAPI(ctx)
}

// ComprehensiveStats is the full status report.
type ComprehensiveStats struct {
	Version     string             `json:"version"`
	Commit      string             `json:"commit"`
	StoreDriver string             `json:"store_driver"`
	CacheOn     bool               `json:"cache_enabled"`
	Requests    int64              `json:"requests_since_reset"`
	RateLimit   ratelimit.Stats    `json:"rate_limit"`
	Scheduler   scheduler.Snapshot `json:"scheduler"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// ComprehensiveStats returns scheduler, limiter and client statistics together.
func (a *App) ComprehensiveStats() ComprehensiveStats {
	return ComprehensiveStats{
		Version:     version.Version,
		Commit:      version.Commit,
		StoreDriver: a.backend.driver,
		CacheOn:     a.prices != nil,
		Requests:    a.client.RequestCount(),
		RateLimit:   a.limiter.Stats(),
		Scheduler:   a.stats.Snapshot(),
		GeneratedAt: time.Now().UTC(),
	}
}

// ErrStoreUnavailable wraps a failed store ping.
var ErrStoreUnavailable = errors.New("store unavailable")

// PingStore checks the record store.
func (a *App) PingStore(ctx context.Context) error {
	if err := a.backend.ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Job returns the statistics of one job.
func (a *App) Job(name string) (scheduler.JobStats, bool) {
	return a.stats.Job(name)
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *IngesterConfig) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.MaxRetries < 1 {
		return errors.New("api.max_retries must be >= 1")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}

	if c.RateLimit.Requests < 1 {
		return errors.New("rate_limit.requests must be >= 1")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive")
	}
	if c.RateLimit.Pacing < 0 {
		return errors.New("rate_limit.pacing cannot be negative")
	}

	if c.Sync.ExchangeBatchSize < 1 {
		return errors.New("sync.exchange_batch_size must be >= 1")
	}
	if c.Sync.MarketsPageSize < 1 || c.Sync.MarketsPageSize > 250 {
		return fmt.Errorf("sync.markets_page_size must be between 1 and 250, got %d", c.Sync.MarketsPageSize)
	}
	if c.Sync.MarketsMaxPages < 1 {
		return errors.New("sync.markets_max_pages must be >= 1")
	}
	if c.Sync.TopExchanges < 0 || c.Sync.DetailTokens < 0 {
		return errors.New("sync.top_exchanges and sync.detail_tokens cannot be negative")
	}
	if c.Sync.TxMultiplier < 1 {
		return errors.New("sync.tx_multiplier must be >= 1")
	}

	if c.Retention.InfoDays < 1 || c.Retention.StatsDays < 1 || c.Retention.QuickPriceDays < 1 {
		return errors.New("retention days must be >= 1")
	}

	if err := c.Store.validate(); err != nil {
		return err
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (s *StoreConfig) validate() error {
	if s.ChunkSize < 1 || s.ChunkSize > 25 {
		return fmt.Errorf("store.chunk_size must be between 1 and 25, got %d", s.ChunkSize)
	}
	switch s.Driver {
	case "dynamodb":
		if s.DynamoDB.Table == "" {
			return errors.New("store.dynamodb.table is required")
		}
		return nil
	case "postgres":
		return s.Postgres.validate("store.postgres")
	case "memory":
		return nil
	default:
		return fmt.Errorf("store.driver must be dynamodb, postgres or memory, got %q", s.Driver)
	}
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel maps a log.level string to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", level)
	}
}

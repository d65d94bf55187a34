package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "https://api.coingecko.com/api/v3"
	DefaultAPITimeout        = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultRateLimitBackoff  = 10 * time.Second
	DefaultRetryDelay        = 5 * time.Second
	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 60 * time.Second
	DefaultRateLimitPacing   = 2 * time.Second
	DefaultVsCurrency        = "usd"
	DefaultTopExchanges      = 50
	DefaultExchangeBatchSize = 10
	DefaultMarketsPageSize   = 250
	DefaultMarketsMaxPages   = 4
	DefaultDetailTokens      = 20
	DefaultTxMultiplier      = 100
	DefaultInfoDays          = 30
	DefaultStatsDays         = 7
	DefaultQuickPriceDays    = 1
	DefaultStoreDriver       = "dynamodb"
	DefaultChunkSize         = 25
	DefaultDynamoRegion      = "us-east-1"
	DefaultDynamoTable       = "crypto_data"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultDBTable           = "records"
	DefaultFullSync          = "0 3 * * *"
	DefaultQuickRefresh      = "@every 1h"
	DefaultHealthCheck       = "@every 30m"
	DefaultMaintenance       = "@every 24h"
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// ApplyDefaults fills every zero-valued optional field.
func (c *IngesterConfig) ApplyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RateLimitBackoff == 0 {
		c.API.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if c.API.RetryDelay == 0 {
		c.API.RetryDelay = DefaultRetryDelay
	}

	// Rate limit defaults. Pacing is only defaulted when the whole block is empty,
	// so an explicit window/requests pair can run without pacing.
	if c.RateLimit == (RateLimitConfig{}) {
		c.RateLimit.Pacing = DefaultRateLimitPacing
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = DefaultRateLimitRequests
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = DefaultRateLimitWindow
	}

	// Sync defaults
	if c.Sync.VsCurrency == "" {
		c.Sync.VsCurrency = DefaultVsCurrency
	}
	if c.Sync.TopExchanges == 0 {
		c.Sync.TopExchanges = DefaultTopExchanges
	}
	if c.Sync.ExchangeBatchSize == 0 {
		c.Sync.ExchangeBatchSize = DefaultExchangeBatchSize
	}
	if c.Sync.MarketsPageSize == 0 {
		c.Sync.MarketsPageSize = DefaultMarketsPageSize
	}
	if c.Sync.MarketsMaxPages == 0 {
		c.Sync.MarketsMaxPages = DefaultMarketsMaxPages
	}
	if c.Sync.DetailTokens == 0 {
		c.Sync.DetailTokens = DefaultDetailTokens
	}
	if c.Sync.TxMultiplier == 0 {
		c.Sync.TxMultiplier = DefaultTxMultiplier
	}

	// Retention defaults
	if c.Retention.InfoDays == 0 {
		c.Retention.InfoDays = DefaultInfoDays
	}
	if c.Retention.StatsDays == 0 {
		c.Retention.StatsDays = DefaultStatsDays
	}
	if c.Retention.QuickPriceDays == 0 {
		c.Retention.QuickPriceDays = DefaultQuickPriceDays
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.ChunkSize == 0 {
		c.Store.ChunkSize = DefaultChunkSize
	}
	if c.Store.DynamoDB.Region == "" {
		c.Store.DynamoDB.Region = DefaultDynamoRegion
	}
	if c.Store.DynamoDB.Table == "" {
		c.Store.DynamoDB.Table = DefaultDynamoTable
	}
	applyDBDefaults(&c.Store.Postgres)

	// Scheduler defaults
	if c.Scheduler.FullSync == "" {
		c.Scheduler.FullSync = DefaultFullSync
	}
	if c.Scheduler.QuickRefresh == "" {
		c.Scheduler.QuickRefresh = DefaultQuickRefresh
	}
	if c.Scheduler.HealthCheck == "" {
		c.Scheduler.HealthCheck = DefaultHealthCheck
	}
	if c.Scheduler.Maintenance == "" {
		c.Scheduler.Maintenance = DefaultMaintenance
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
	if db.Table == "" {
		db.Table = DefaultDBTable
	}
}

package config

import "time"

// IngesterConfig is the root configuration for an ingester process.
type IngesterConfig struct {
	API       APIConfig       `yaml:"api"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sync      SyncConfig      `yaml:"sync"`
	Retention RetentionConfig `yaml:"retention"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig holds CoinGecko API settings.
type APIConfig struct {
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"` // Sent as x-cg-demo-api-key when set
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"` // Total attempts per logical request
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
}

// RateLimitConfig holds the sliding-window admission settings.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Pacing   time.Duration `yaml:"pacing"`
}

// SyncConfig holds pipeline sizing.
type SyncConfig struct {
	VsCurrency        string `yaml:"vs_currency"`
	TopExchanges      int    `yaml:"top_exchanges"`
	ExchangeBatchSize int    `yaml:"exchange_batch_size"`
	MarketsPageSize   int    `yaml:"markets_page_size"`
	MarketsMaxPages   int    `yaml:"markets_max_pages"`
	DetailTokens      int    `yaml:"detail_tokens"`
	TxMultiplier      int64  `yaml:"tx_multiplier"`
	VolumeHistory     *bool  `yaml:"volume_history"`
}

// RetentionConfig holds per-class record lifetimes in days.
type RetentionConfig struct {
	InfoDays       int `yaml:"info_days"`
	StatsDays      int `yaml:"stats_days"`
	QuickPriceDays int `yaml:"quick_price_days"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Driver    string         `yaml:"driver"` // "dynamodb", "postgres" or "memory"
	ChunkSize int            `yaml:"chunk_size"`
	DynamoDB  DynamoDBConfig `yaml:"dynamodb"`
	Postgres  DBConfig       `yaml:"postgres"`
}

// DynamoDBConfig holds the DynamoDB table settings.
type DynamoDBConfig struct {
	Region   string `yaml:"region"`
	Table    string `yaml:"table"`
	Endpoint string `yaml:"endpoint"` // Optional, e.g. DynamoDB Local
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
	Table    string `yaml:"table"`
}

// CacheConfig holds the optional Redis quick-price mirror. Empty Addr disables it.
type CacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SchedulerConfig holds job triggers in robfig/cron syntax.
type SchedulerConfig struct {
	FullSync     string `yaml:"full_sync"`
	QuickRefresh string `yaml:"quick_refresh"`
	HealthCheck  string `yaml:"health_check"`
	Maintenance  string `yaml:"maintenance"`
}

// MetricsConfig holds the health/metrics HTTP settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// VolumeHistoryEnabled reports whether stats history lookups are on (default true).
func (s SyncConfig) VolumeHistoryEnabled() bool {
	return s.VolumeHistory == nil || *s.VolumeHistory
}

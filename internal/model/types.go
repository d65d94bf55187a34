package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityType is persisted as the entity_type attribute of every record.
type EntityType string

const (
	EntityExchange      EntityType = "exchange"
	EntityExchangeStats EntityType = "exchange_stats"
	EntityToken         EntityType = "token"
	EntityTokenStats    EntityType = "token_stats"
	EntityPlatform      EntityType = "platform"
	EntityQuickPrice    EntityType = "quick_price"
)

// Namespaces for deterministic entity ids.
var (
	exchangeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://api.coingecko.com/api/v3/exchanges"))
	tokenNamespace    = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://api.coingecko.com/api/v3/coins"))
)

// ExchangeID returns the stable id for a CoinGecko exchange id.
func ExchangeID(sourceID string) uuid.UUID {
	return uuid.NewSHA1(exchangeNamespace, []byte(sourceID))
}

// TokenID returns the stable id for a CoinGecko coin id.
func TokenID(sourceID string) uuid.UUID {
	return uuid.NewSHA1(tokenNamespace, []byte(sourceID))
}

// Audit holds the bookkeeping fields every entity carries.
type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool // soft delete only
}

// NewAudit stamps a fresh record at the run time.
func NewAudit(at time.Time) Audit {
	at = at.UTC()
	return Audit{CreatedAt: at, UpdatedAt: at}
}

// -----------------------------------------------------------------------------
// Exchange family
// -----------------------------------------------------------------------------

// Exchange is the profile record of one exchange.
type Exchange struct {
	ID              uuid.UUID
	SourceID        string // CoinGecko id, e.g. "binance"
	Name            string
	Description     string
	Country         string
	YearEstablished *int
	Centralized     *bool
	Website         string
	Twitter         string
	Facebook        string
	Reddit          string
	Telegram        string
	AvatarImage     string
	TrustScore      *int
	SecurityAudits  []string
	TradingPairs    []string // "BASE/TARGET"
	Audit
}

// ExchangeStats is one point-in-time metrics snapshot of an exchange.
type ExchangeStats struct {
	ID         uuid.UUID
	ExchangeID uuid.UUID

	Inflows1m  decimal.NullDecimal
	Inflows1w  decimal.NullDecimal
	Inflows24h decimal.NullDecimal

	TradingVolume1m            decimal.NullDecimal
	TradingVolume1w            decimal.NullDecimal
	TradingVolume24h           decimal.NullDecimal // BTC
	TradingVolume24hNormalized decimal.NullDecimal // BTC

	Reserves              decimal.NullDecimal
	FiatSupported         []string
	CoinsCount            int
	LiquidityScore        decimal.Decimal
	EffectiveLiquidity24h decimal.Decimal

	PercentChangeVolume24h decimal.Decimal
	PercentChangeVolume7d  decimal.Decimal
	PercentChangeVolume1m  decimal.Decimal
	Audit
}

// -----------------------------------------------------------------------------
// Token family
// -----------------------------------------------------------------------------

// Token is the profile record of one coin.
type Token struct {
	ID               uuid.UUID
	SourceID         string // CoinGecko id, e.g. "bitcoin"
	Name             string
	Symbol           string // upper case
	Description      string
	Website          string
	Twitter          string
	Facebook         string
	Reddit           string
	RepositoriesLink string
	WhitepaperLink   string
	AvatarImage      string
	TVL              decimal.Decimal
	MarketCapRank    *int
	Audit
}

// TokenStats is one point-in-time market snapshot of a coin.
type TokenStats struct {
	ID      uuid.UUID
	TokenID uuid.UUID

	MarketCap            decimal.NullDecimal
	TradingVolume24h     decimal.NullDecimal
	MaxSupply            decimal.NullDecimal
	TotalSupply          decimal.NullDecimal
	CirculatingSupply    decimal.NullDecimal
	TransactionsCount30d *int64
	PriceChange24h       decimal.NullDecimal // percent
	Price                decimal.Decimal
	FDV                  decimal.NullDecimal
	ATH                  decimal.NullDecimal
	ATL                  decimal.NullDecimal
	LiquidityScore       decimal.Decimal
	Audit
}

// Platform is one (chain, contract address) deployment of a token.
type Platform struct {
	ID              uuid.UUID
	TokenID         uuid.UUID
	Chain           string // e.g. "ethereum"
	Symbol          string
	ContractAddress string
	Audit
}

// QuickPriceUpdate is the symbol-keyed high-frequency price snapshot.
type QuickPriceUpdate struct {
	Symbol    string // upper case
	Price     decimal.Decimal
	MarketCap decimal.NullDecimal
	UpdatedAt time.Time
}

// -----------------------------------------------------------------------------
// Run output
// -----------------------------------------------------------------------------

// ExchangeBatch is the exchange family produced by one run.
type ExchangeBatch struct {
	Exchanges []Exchange
	Stats     []ExchangeStats
}

// Len returns the number of records in the batch.
func (b ExchangeBatch) Len() int {
	return len(b.Exchanges) + len(b.Stats)
}

// TokenBatch is the token family produced by one run.
type TokenBatch struct {
	Tokens    []Token
	Stats     []TokenStats
	Platforms []Platform
}

// Len returns the number of records in the batch.
func (b TokenBatch) Len() int {
	return len(b.Tokens) + len(b.Stats) + len(b.Platforms)
}

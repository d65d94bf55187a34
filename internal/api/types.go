package api

import "github.com/shopspring/decimal"

// PingResponse from GET /ping
type PingResponse struct {
	GeckoSays string `json:"gecko_says"`
}

// ExchangeListEntry from GET /exchanges/list
type ExchangeListEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CoinListEntry from GET /coins/list?include_platform=true
type CoinListEntry struct {
	ID        string            `json:"id"`
	Symbol    string            `json:"symbol"`
	Name      string            `json:"name"`
	Platforms map[string]string `json:"platforms"` // chain -> contract address, may be empty
}

// ExchangeDetail from GET /exchanges/{id}
type ExchangeDetail struct {
	Name            string `json:"name"`
	YearEstablished *int   `json:"year_established"`
	Country         string `json:"country"`
	Description     string `json:"description"`
	URL             string `json:"url"`
	Image           string `json:"image"`
	FacebookURL     string `json:"facebook_url"`
	RedditURL       string `json:"reddit_url"`
	TelegramURL     string `json:"telegram_url"`
	TwitterHandle   string `json:"twitter_handle"`
	Centralized     *bool  `json:"centralized"`
	PublicNotice    string `json:"public_notice"`
	AlertNotice     string `json:"alert_notice"`
	TrustScore      *int   `json:"trust_score"`
	TrustScoreRank  *int   `json:"trust_score_rank"`

	// Volumes are denominated in BTC.
	TradeVolume24hBTC           decimal.NullDecimal `json:"trade_volume_24h_btc"`
	TradeVolume24hBTCNormalized decimal.NullDecimal `json:"trade_volume_24h_btc_normalized"`

	Tickers []Ticker `json:"tickers"`
}

// Ticker is one trading pair on an exchange.
type Ticker struct {
	Base                   string              `json:"base"`
	Target                 string              `json:"target"`
	CoinID                 string              `json:"coin_id"`
	TargetCoinID           string              `json:"target_coin_id"`
	Last                   decimal.NullDecimal `json:"last"`
	Volume                 decimal.NullDecimal `json:"volume"`
	BidAskSpreadPercentage decimal.NullDecimal `json:"bid_ask_spread_percentage"`
	TrustScore             string              `json:"trust_score"`
	IsAnomaly              bool                `json:"is_anomaly"`
	IsStale                bool                `json:"is_stale"`
}

// CoinMarket is one record from GET /coins/markets.
type CoinMarket struct {
	ID                       string              `json:"id"`
	Symbol                   string              `json:"symbol"`
	Name                     string              `json:"name"`
	Image                    string              `json:"image"`
	CurrentPrice             decimal.NullDecimal `json:"current_price"`
	MarketCap                decimal.NullDecimal `json:"market_cap"`
	MarketCapRank            *int                `json:"market_cap_rank"`
	FullyDilutedValuation    decimal.NullDecimal `json:"fully_diluted_valuation"`
	TotalVolume              decimal.NullDecimal `json:"total_volume"`
	PriceChangePercentage24h decimal.NullDecimal `json:"price_change_percentage_24h"`
	CirculatingSupply        decimal.NullDecimal `json:"circulating_supply"`
	TotalSupply              decimal.NullDecimal `json:"total_supply"`
	MaxSupply                decimal.NullDecimal `json:"max_supply"`
	ATH                      decimal.NullDecimal `json:"ath"`
	ATL                      decimal.NullDecimal `json:"atl"`
	LastUpdated              string              `json:"last_updated"`
}

// CoinDetail from GET /coins/{id}
type CoinDetail struct {
	ID            string            `json:"id"`
	Symbol        string            `json:"symbol"`
	Name          string            `json:"name"`
	MarketCapRank *int              `json:"market_cap_rank"`
	Platforms     map[string]string `json:"platforms"`
	Description   map[string]string `json:"description"` // locale -> text
	Links         map[string]any    `json:"links"`
	Image         struct {
		Thumb string `json:"thumb"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"image"`
	MarketData *CoinMarketData `json:"market_data"`
}

// CoinMarketData is the market_data block of a coin detail. Per-currency
// maps are keyed by vs_currency ("usd", "btc", ...).
type CoinMarketData struct {
	CurrentPrice             map[string]decimal.Decimal `json:"current_price"`
	MarketCap                map[string]decimal.Decimal `json:"market_cap"`
	TotalVolume              map[string]decimal.Decimal `json:"total_volume"`
	FullyDilutedValuation    map[string]decimal.Decimal `json:"fully_diluted_valuation"`
	TotalValueLocked         *TotalValueLocked          `json:"total_value_locked"`
	ATH                      map[string]decimal.Decimal `json:"ath"`
	ATL                      map[string]decimal.Decimal `json:"atl"`
	PriceChangePercentage24h decimal.NullDecimal        `json:"price_change_percentage_24h"`
	CirculatingSupply        decimal.NullDecimal        `json:"circulating_supply"`
	TotalSupply              decimal.NullDecimal        `json:"total_supply"`
	MaxSupply                decimal.NullDecimal        `json:"max_supply"`
}

// TotalValueLocked is reported for DeFi tokens only.
type TotalValueLocked struct {
	BTC decimal.NullDecimal `json:"btc"`
	USD decimal.NullDecimal `json:"usd"`
}

// MarketsOptions are the query parameters for GET /coins/markets.
type MarketsOptions struct {
	VsCurrency            string
	Order                 string
	PerPage               int
	Page                  int
	PriceChangePercentage string
}

// CoinOptions are the data-block flags for GET /coins/{id}.
type CoinOptions struct {
	MarketData    bool
	CommunityData bool
}

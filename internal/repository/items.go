package repository

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/coingecko-data/internal/model"
	"github.com/rickgao/coingecko-data/internal/store"
)

// Partition and sort-key prefixes.
const (
	PrefixExchange   = "EXCHANGE"
	PrefixToken      = "TOKEN"
	PrefixQuickPrice = "QUICK_PRICE"

	KindInfo     = "INFO"
	KindStats    = "STATS"
	KindPlatform = "PLATFORM"
	KindPrice    = "PRICE"
)

// ExchangePK returns the partition key of an exchange.
func ExchangePK(id string) string { return store.Key(PrefixExchange, id) }

// TokenPK returns the partition key of a token.
func TokenPK(id string) string { return store.Key(PrefixToken, id) }

// QuickPricePK returns the partition key of a symbol.
func QuickPricePK(symbol string) string {
	return store.Key(PrefixQuickPrice, strings.ToUpper(symbol))
}

// ExchangeItems maps an exchange batch to items, profiles first.
func ExchangeItems(b model.ExchangeBatch) []store.Item {
	items := make([]store.Item, 0, b.Len())
	for _, e := range b.Exchanges {
		items = append(items, exchangeItem(e))
	}
	for _, s := range b.Stats {
		items = append(items, exchangeStatsItem(s))
	}
	return items
}

// TokenItems maps a token batch to items: profiles, stats, then platforms.
func TokenItems(b model.TokenBatch) []store.Item {
	items := make([]store.Item, 0, b.Len())
	for _, t := range b.Tokens {
		items = append(items, tokenItem(t))
	}
	for _, s := range b.Stats {
		items = append(items, tokenStatsItem(s))
	}
	for _, p := range b.Platforms {
		items = append(items, platformItem(p))
	}
	return items
}

func exchangeItem(e model.Exchange) store.Item {
	attrs := map[string]any{
		"id":               e.ID.String(),
		"source_id":        e.SourceID,
		"name":             e.Name,
		"description":      e.Description,
		"country":          e.Country,
		"year_established": optInt(e.YearEstablished),
		"centralized":      optBool(e.Centralized),
		"website":          e.Website,
		"twitter":          e.Twitter,
		"facebook":         e.Facebook,
		"reddit":           e.Reddit,
		"telegram":         e.Telegram,
		"avatar_image":     e.AvatarImage,
		"trust_score":      optInt(e.TrustScore),
		"security_audits":  strs(e.SecurityAudits),
		"trading_pairs":    strs(e.TradingPairs),
	}
	withAudit(attrs, e.Audit)

	return store.Item{
		PK:         ExchangePK(e.ID.String()),
		SK:         store.SortKey(KindInfo, e.UpdatedAt),
		EntityType: model.EntityExchange,
		Class:      store.ClassProfile,
		Attributes: attrs,
	}
}

func exchangeStatsItem(s model.ExchangeStats) store.Item {
	attrs := map[string]any{
		"id":                            s.ID.String(),
		"exchange_id":                   s.ExchangeID.String(),
		"inflows_1m":                    nullable(s.Inflows1m),
		"inflows_1w":                    nullable(s.Inflows1w),
		"inflows_24h":                   nullable(s.Inflows24h),
		"trading_volume_1m":             nullable(s.TradingVolume1m),
		"trading_volume_1w":             nullable(s.TradingVolume1w),
		"trading_volume_24h":            nullable(s.TradingVolume24h),
		"trading_volume_24h_normalized": nullable(s.TradingVolume24hNormalized),
		"reserves":                      nullable(s.Reserves),
		"fiat_supported":                strs(s.FiatSupported),
		"coins_count":                   s.CoinsCount,
		"liquidity_score":               s.LiquidityScore,
		"effective_liquidity_24h":       s.EffectiveLiquidity24h,
		"percent_change_volume_24h":     s.PercentChangeVolume24h,
		"percent_change_volume_7d":      s.PercentChangeVolume7d,
		"percent_change_volume_1m":      s.PercentChangeVolume1m,
	}
	withAudit(attrs, s.Audit)

	return store.Item{
		PK:         ExchangePK(s.ExchangeID.String()),
		SK:         store.SortKey(KindStats, s.UpdatedAt),
		EntityType: model.EntityExchangeStats,
		Class:      store.ClassStats,
		Attributes: attrs,
	}
}

func tokenItem(t model.Token) store.Item {
	attrs := map[string]any{
		"id":                t.ID.String(),
		"source_id":         t.SourceID,
		"name":              t.Name,
		"symbol":            t.Symbol,
		"description":       t.Description,
		"website":           t.Website,
		"twitter":           t.Twitter,
		"facebook":          t.Facebook,
		"reddit":            t.Reddit,
		"repositories_link": t.RepositoriesLink,
		"whitepaper_link":   t.WhitepaperLink,
		"avatar_image":      t.AvatarImage,
		"tvl":               t.TVL,
		"market_cap_rank":   optInt(t.MarketCapRank),
	}
	withAudit(attrs, t.Audit)

	return store.Item{
		PK:         TokenPK(t.ID.String()),
		SK:         store.SortKey(KindInfo, t.UpdatedAt),
		EntityType: model.EntityToken,
		Class:      store.ClassProfile,
		Attributes: attrs,
	}
}

func tokenStatsItem(s model.TokenStats) store.Item {
	var tx any
	if s.TransactionsCount30d != nil {
		tx = *s.TransactionsCount30d
	}

	attrs := map[string]any{
		"id":                     s.ID.String(),
		"token_id":               s.TokenID.String(),
		"market_cap":             nullable(s.MarketCap),
		"trading_volume_24h":     nullable(s.TradingVolume24h),
		"token_max_supply":       nullable(s.MaxSupply),
		"token_total_supply":     nullable(s.TotalSupply),
		"circulating_supply":     nullable(s.CirculatingSupply),
		"transactions_count_30d": tx,
		"volume_24h_change_24h":  nullable(s.PriceChange24h),
		"price":                  s.Price,
		"fdv":                    nullable(s.FDV),
		"ath":                    nullable(s.ATH),
		"atl":                    nullable(s.ATL),
		"liquidity_score":        s.LiquidityScore,
	}
	withAudit(attrs, s.Audit)

	return store.Item{
		PK:         TokenPK(s.TokenID.String()),
		SK:         store.SortKey(KindStats, s.UpdatedAt),
		EntityType: model.EntityTokenStats,
		Class:      store.ClassStats,
		Attributes: attrs,
	}
}

func platformItem(p model.Platform) store.Item {
	attrs := map[string]any{
		"id":            p.ID.String(),
		"token_id":      p.TokenID.String(),
		"name":          p.Chain,
		"symbol":        p.Symbol,
		"token_address": p.ContractAddress,
	}
	withAudit(attrs, p.Audit)

	return store.Item{
		PK:         TokenPK(p.TokenID.String()),
		SK:         store.Key(KindPlatform, p.Chain, store.FormatTime(p.UpdatedAt)),
		EntityType: model.EntityPlatform,
		Class:      store.ClassProfile,
		Attributes: attrs,
	}
}

func quickPriceItem(u model.QuickPriceUpdate) store.Item {
	symbol := strings.ToUpper(u.Symbol)
	return store.Item{
		PK:         QuickPricePK(symbol),
		SK:         store.SortKey(KindPrice, u.UpdatedAt),
		EntityType: model.EntityQuickPrice,
		Class:      store.ClassQuickPrice,
		Attributes: map[string]any{
			"symbol":     symbol,
			"price":      u.Price,
			"market_cap": nullable(u.MarketCap),
			"updated_at": u.UpdatedAt.UTC(),
		},
	}
}

func withAudit(attrs map[string]any, a model.Audit) {
	attrs["created_at"] = a.CreatedAt.UTC()
	attrs["updated_at"] = a.UpdatedAt.UTC()
	attrs["is_deleted"] = a.IsDeleted
}

func nullable(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal
}

func optInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func optBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

// strs keeps empty lists non-nil so every backend writes an empty list.
func strs(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

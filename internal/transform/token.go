package transform

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/coingecko-data/internal/api"
	"github.com/rickgao/coingecko-data/internal/model"
)

// MaxDescriptionRunes bounds stored token descriptions.
const MaxDescriptionRunes = 500

// TokenRecord is the token family output for one coin.
type TokenRecord struct {
	Token     model.Token
	Stats     model.TokenStats
	Platforms []model.Platform
}

// TokenFromMarket maps one coins/markets record. Market records carry no
// platforms; see WithListedPlatforms.
func TokenFromMarket(raw []byte, at time.Time, txMultiplier int64) (TokenRecord, error) {
	var m api.CoinMarket
	if err := sonic.Unmarshal(raw, &m); err != nil {
		return TokenRecord{}, &TransformError{Kind: KindToken, Err: fmt.Errorf("decode market record: %w", err)}
	}
	if m.ID == "" {
		return TokenRecord{}, &TransformError{Kind: KindToken, Err: errors.New("missing id")}
	}
	if m.Symbol == "" {
		return TokenRecord{}, &TransformError{Kind: KindToken, SourceID: m.ID, Err: errors.New("missing symbol")}
	}

	audit := model.NewAudit(at)
	id := model.TokenID(m.ID)
	price := orZero(m.CurrentPrice)

	marketCap := m.MarketCap
	if !marketCap.Valid || !marketCap.Decimal.IsPositive() {
		marketCap = MarketCap(price, m.CirculatingSupply)
	}

	return TokenRecord{
		Token: model.Token{
			ID:            id,
			SourceID:      m.ID,
			Name:          m.Name,
			Symbol:        strings.ToUpper(m.Symbol),
			AvatarImage:   m.Image,
			TVL:           decimal.Zero,
			MarketCapRank: m.MarketCapRank,
			Audit:         audit,
		},
		Stats: buildTokenStats(id, tokenMarket{
			price:       price,
			marketCap:   marketCap,
			volume:      m.TotalVolume,
			change24h:   m.PriceChangePercentage24h,
			circulating: m.CirculatingSupply,
			total:       m.TotalSupply,
			max:         m.MaxSupply,
			ath:         m.ATH,
			atl:         m.ATL,
		}, txMultiplier, audit),
	}, nil
}

// WithListedPlatforms adds one Platform per non-empty (chain, address) pair
// from the coins/list platform map.
func (r TokenRecord) WithListedPlatforms(platforms map[string]string) TokenRecord {
	r.Platforms = append(r.Platforms, buildPlatforms(r.Token, platforms)...)
	return r
}

// TokenFromDetail maps a coins/{id} payload, reading market figures in vsCurrency.
func TokenFromDetail(raw []byte, vsCurrency string, at time.Time, txMultiplier int64) (TokenRecord, error) {
	var d api.CoinDetail
	if err := sonic.Unmarshal(raw, &d); err != nil {
		return TokenRecord{}, &TransformError{Kind: KindToken, Err: fmt.Errorf("decode detail: %w", err)}
	}
	if d.ID == "" {
		return TokenRecord{}, &TransformError{Kind: KindToken, Err: errors.New("missing id")}
	}
	if d.Symbol == "" {
		return TokenRecord{}, &TransformError{Kind: KindToken, SourceID: d.ID, Err: errors.New("missing symbol")}
	}

	vsCurrency = strings.ToLower(vsCurrency)
	audit := model.NewAudit(at)
	id := model.TokenID(d.ID)
	links := NormalizeLinks(d.Links)

	tok := model.Token{
		ID:               id,
		SourceID:         d.ID,
		Name:             d.Name,
		Symbol:           strings.ToUpper(d.Symbol),
		Description:      truncateRunes(strings.TrimSpace(d.Description["en"]), MaxDescriptionRunes),
		Website:          links.Website,
		Twitter:          links.Twitter,
		Facebook:         links.Facebook,
		Reddit:           links.Reddit,
		RepositoriesLink: links.Repository,
		WhitepaperLink:   links.Whitepaper,
		AvatarImage:      d.Image.Large,
		TVL:              decimal.Zero,
		MarketCapRank:    d.MarketCapRank,
		Audit:            audit,
	}

	var mkt tokenMarket
	if md := d.MarketData; md != nil {
		mkt = tokenMarket{
			price:       md.CurrentPrice[vsCurrency],
			marketCap:   lookup(md.MarketCap, vsCurrency),
			volume:      lookup(md.TotalVolume, vsCurrency),
			change24h:   md.PriceChangePercentage24h,
			circulating: md.CirculatingSupply,
			total:       md.TotalSupply,
			max:         md.MaxSupply,
			ath:         lookup(md.ATH, vsCurrency),
			atl:         lookup(md.ATL, vsCurrency),
		}
		if !mkt.marketCap.Valid || !mkt.marketCap.Decimal.IsPositive() {
			mkt.marketCap = MarketCap(mkt.price, mkt.circulating)
		}
		if tvl := md.TotalValueLocked; tvl != nil && tvl.USD.Valid {
			tok.TVL = tvl.USD.Decimal
		}
	}

	return TokenRecord{
		Token:     tok,
		Stats:     buildTokenStats(id, mkt, txMultiplier, audit),
		Platforms: buildPlatforms(tok, d.Platforms),
	}, nil
}

// QuickPrice maps one coins/markets record to a symbol-keyed price update.
func QuickPrice(raw []byte, at time.Time) (model.QuickPriceUpdate, error) {
	var m api.CoinMarket
	if err := sonic.Unmarshal(raw, &m); err != nil {
		return model.QuickPriceUpdate{}, &TransformError{Kind: KindQuickPrice, Err: fmt.Errorf("decode market record: %w", err)}
	}
	symbol := strings.ToUpper(strings.TrimSpace(m.Symbol))
	if symbol == "" {
		return model.QuickPriceUpdate{}, &TransformError{Kind: KindQuickPrice, SourceID: m.ID, Err: errors.New("missing symbol")}
	}

	return model.QuickPriceUpdate{
		Symbol:    symbol,
		Price:     orZero(m.CurrentPrice),
		MarketCap: m.MarketCap,
		UpdatedAt: at.UTC(),
	}, nil
}

type tokenMarket struct {
	price       decimal.Decimal
	marketCap   decimal.NullDecimal
	volume      decimal.NullDecimal
	change24h   decimal.NullDecimal
	circulating decimal.NullDecimal
	total       decimal.NullDecimal
	max         decimal.NullDecimal
	ath         decimal.NullDecimal
	atl         decimal.NullDecimal
}

func buildTokenStats(tokenID uuid.UUID, m tokenMarket, txMultiplier int64, audit model.Audit) model.TokenStats {
	if txMultiplier <= 0 {
		txMultiplier = DefaultTxMultiplier
	}
	volume := orZero(m.volume)

	return model.TokenStats{
		ID:                   uuid.New(),
		TokenID:              tokenID,
		MarketCap:            m.marketCap,
		TradingVolume24h:     m.volume,
		MaxSupply:            m.max,
		TotalSupply:          m.total,
		CirculatingSupply:    m.circulating,
		TransactionsCount30d: EstimatedTxCount30d(volume, m.price, txMultiplier),
		PriceChange24h:       m.change24h,
		Price:                m.price,
		FDV:                  FDV(m.price, m.max),
		ATH:                  m.ath,
		ATL:                  m.atl,
		LiquidityScore:       LiquidityScore(volume, orZero(m.marketCap), DefaultSpread),
		Audit:                audit,
	}
}

// buildPlatforms skips native entries (empty chain) and empty addresses.
// Chains are emitted in sorted order.
func buildPlatforms(tok model.Token, platforms map[string]string) []model.Platform {
	chains := make([]string, 0, len(platforms))
	for chain, addr := range platforms {
		if strings.TrimSpace(chain) == "" || strings.TrimSpace(addr) == "" {
			continue
		}
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	out := make([]model.Platform, 0, len(chains))
	for _, chain := range chains {
		out = append(out, model.Platform{
			ID:              uuid.New(),
			TokenID:         tok.ID,
			Chain:           chain,
			Symbol:          tok.Symbol,
			ContractAddress: strings.TrimSpace(platforms[chain]),
			Audit:           tok.Audit,
		})
	}
	return out
}

func lookup(m map[string]decimal.Decimal, key string) decimal.NullDecimal {
	v, ok := m[key]
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

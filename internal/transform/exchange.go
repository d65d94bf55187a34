package transform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/coingecko-data/internal/api"
	"github.com/rickgao/coingecko-data/internal/model"
)

// fiatCurrencies are ticker targets counted as fiat support.
var fiatCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "KRW": {}, "TRY": {},
	"AUD": {}, "CAD": {}, "CHF": {}, "BRL": {}, "RUB": {}, "INR": {},
	"IDR": {}, "UAH": {}, "NGN": {}, "ZAR": {}, "MXN": {}, "ARS": {},
	"PLN": {}, "THB": {}, "VND": {}, "PHP": {}, "HKD": {}, "SGD": {},
}

// Exchange maps an exchanges/{id} payload to a profile and a stats snapshot.
func Exchange(sourceID string, raw []byte, at time.Time) (model.Exchange, model.ExchangeStats, error) {
	var d api.ExchangeDetail
	if err := sonic.Unmarshal(raw, &d); err != nil {
		return model.Exchange{}, model.ExchangeStats{}, &TransformError{Kind: KindExchange, SourceID: sourceID, Err: fmt.Errorf("decode: %w", err)}
	}
	if sourceID == "" {
		return model.Exchange{}, model.ExchangeStats{}, &TransformError{Kind: KindExchange, Err: errors.New("missing source id")}
	}
	if strings.TrimSpace(d.Name) == "" {
		return model.Exchange{}, model.ExchangeStats{}, &TransformError{Kind: KindExchange, SourceID: sourceID, Err: errors.New("missing name")}
	}

	audit := model.NewAudit(at)
	summary := summarizeTickers(d.Tickers)

	ex := model.Exchange{
		ID:              model.ExchangeID(sourceID),
		SourceID:        sourceID,
		Name:            strings.TrimSpace(d.Name),
		Description:     strings.TrimSpace(d.Description),
		Country:         d.Country,
		YearEstablished: d.YearEstablished,
		Centralized:     d.Centralized,
		Website:         d.URL,
		Twitter:         ProfileURL(twitterPrefix, d.TwitterHandle),
		Facebook:        d.FacebookURL,
		Reddit:          d.RedditURL,
		Telegram:        d.TelegramURL,
		AvatarImage:     d.Image,
		TrustScore:      d.TrustScore,
		SecurityAudits:  []string{},
		TradingPairs:    summary.pairs,
		Audit:           audit,
	}

	volume := orZero(d.TradeVolume24hBTC)
	normalized := orZero(d.TradeVolume24hBTCNormalized)

	stats := model.ExchangeStats{
		ID:                         uuid.New(),
		ExchangeID:                 ex.ID,
		TradingVolume24h:           d.TradeVolume24hBTC,
		TradingVolume24hNormalized: d.TradeVolume24hBTCNormalized,
		FiatSupported:              summary.fiat,
		CoinsCount:                 summary.coins,
		LiquidityScore:             LiquidityScore(normalized, volume, summary.spread),
		EffectiveLiquidity24h:      EffectiveLiquidity24h(volume, summary.spread),
		Audit:                      audit,
	}

	return ex, stats, nil
}

// ApplyVolumeHistory fills the percent-change fields from earlier 24h volumes.
// Missing history leaves the field at zero.
func ApplyVolumeHistory(s *model.ExchangeStats, dayAgo, weekAgo, monthAgo decimal.NullDecimal) {
	current := orZero(s.TradingVolume24h)
	if dayAgo.Valid {
		s.PercentChangeVolume24h = PercentChange(current, dayAgo.Decimal)
	}
	if weekAgo.Valid {
		s.PercentChangeVolume7d = PercentChange(current, weekAgo.Decimal)
	}
	if monthAgo.Valid {
		s.PercentChangeVolume1m = PercentChange(current, monthAgo.Decimal)
	}
}

type tickerSummary struct {
	pairs  []string
	fiat   []string
	coins  int
	spread decimal.Decimal
}

// summarizeTickers derives pairs, coin count, fiat support and the average
// bid/ask spread. Anomalous and stale tickers are excluded from the spread.
func summarizeTickers(tickers []api.Ticker) tickerSummary {
	s := tickerSummary{
		pairs:  []string{},
		fiat:   []string{},
		spread: DefaultSpread,
	}

	seenPair := make(map[string]struct{})
	seenCoin := make(map[string]struct{})
	seenFiat := make(map[string]struct{})
	spreadSum := decimal.Zero
	spreadN := 0

	for _, t := range tickers {
		base := strings.ToUpper(strings.TrimSpace(t.Base))
		target := strings.ToUpper(strings.TrimSpace(t.Target))

		if base != "" {
			seenCoin[base] = struct{}{}
		}
		if target != "" {
			seenCoin[target] = struct{}{}
			if _, ok := fiatCurrencies[target]; ok {
				if _, dup := seenFiat[target]; !dup {
					seenFiat[target] = struct{}{}
					s.fiat = append(s.fiat, target)
				}
			}
		}
		if base != "" && target != "" {
			pair := base + "/" + target
			if _, dup := seenPair[pair]; !dup {
				seenPair[pair] = struct{}{}
				s.pairs = append(s.pairs, pair)
			}
		}

		if !t.IsAnomaly && !t.IsStale && t.BidAskSpreadPercentage.Valid && t.BidAskSpreadPercentage.Decimal.IsPositive() {
			spreadSum = spreadSum.Add(t.BidAskSpreadPercentage.Decimal)
			spreadN++
		}
	}

	s.coins = len(seenCoin)
	if spreadN > 0 {
		s.spread = spreadSum.Div(decimal.NewFromInt(int64(spreadN)))
	}
	return s
}

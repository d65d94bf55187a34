package transform

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultSpread is the bid/ask spread percentage assumed when none is reported.
var DefaultSpread = decimal.NewFromInt(1)

// DefaultTxMultiplier is the average transaction size in units of price.
const DefaultTxMultiplier = 100

var (
	hundred   = decimal.NewFromInt(100)
	thirty    = decimal.NewFromInt(30)
	maxScore  = hundred
	maxInt64D = decimal.NewFromInt(math.MaxInt64)
)

// EffectiveLiquidity24h is volume * (1 - spread/100), or 0 for non-positive volume.
func EffectiveLiquidity24h(volume, spread decimal.Decimal) decimal.Decimal {
	if !volume.IsPositive() {
		return decimal.Zero
	}
	return volume.Mul(decimal.NewFromInt(1).Sub(spread.Div(hundred)))
}

// PercentChange is (current - previous) / previous * 100 rounded to 2 places,
// or 0 when previous is zero.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

// FDV is price * max supply. It is absent, not zero, when max supply is
// unknown or price is not positive.
func FDV(price decimal.Decimal, maxSupply decimal.NullDecimal) decimal.NullDecimal {
	return guardedProduct(price, maxSupply)
}

// MarketCap is price * circulating supply under the same guard as FDV.
func MarketCap(price decimal.Decimal, circulating decimal.NullDecimal) decimal.NullDecimal {
	return guardedProduct(price, circulating)
}

func guardedProduct(price decimal.Decimal, supply decimal.NullDecimal) decimal.NullDecimal {
	if !supply.Valid || !price.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(price.Mul(supply.Decimal))
}

// EstimatedTxCount30d is floor(volume / (price * multiplier) * 30). It is nil
// when volume or price is not positive or the result does not fit an int64.
func EstimatedTxCount30d(volume, price decimal.Decimal, multiplier int64) *int64 {
	if !volume.IsPositive() || !price.IsPositive() {
		return nil
	}
	denom := price.Mul(decimal.NewFromInt(multiplier))
	if !denom.IsPositive() {
		return nil
	}
	// Multiply before dividing so the floor sees the exact quotient.
	n := volume.Mul(thirty).Div(denom).Floor()
	if n.GreaterThan(maxInt64D) {
		return nil
	}
	v := n.IntPart()
	return &v
}

// LiquidityScore is min(100, volume / marketCap * 100 / spread), rounded to
// 2 places. It is 0 when marketCap is not positive. A non-positive spread is a
// perfectly tight book: any positive ratio scores 100.
func LiquidityScore(volume, marketCap, spread decimal.Decimal) decimal.Decimal {
	if !marketCap.IsPositive() {
		return decimal.Zero
	}
	ratio := volume.Div(marketCap).Mul(hundred)
	if !spread.IsPositive() {
		if ratio.IsPositive() {
			return maxScore
		}
		return decimal.Zero
	}
	score := ratio.Div(spread).Round(2)
	if score.GreaterThan(maxScore) {
		return maxScore
	}
	return score
}

// orZero unwraps an optional value, treating absent as zero.
func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

package transform

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(s))
}

func TestFDV(t *testing.T) {
	tests := []struct {
		name      string
		price     decimal.Decimal
		maxSupply decimal.NullDecimal
		want      decimal.NullDecimal
	}{
		{"price times max supply", d("10"), nd("1000"), nd("10000")},
		{"max supply absent", d("10"), decimal.NullDecimal{}, decimal.NullDecimal{}},
		{"zero price", d("0"), nd("1000"), decimal.NullDecimal{}},
		{"negative price", d("-1"), nd("1000"), decimal.NullDecimal{}},
		{"fractional", d("0.000012"), nd("420690000000000"), nd("5048280000")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FDV(tt.price, tt.maxSupply)
			if got.Valid != tt.want.Valid {
				t.Fatalf("FDV() valid = %v, want %v", got.Valid, tt.want.Valid)
			}
			if got.Valid && !got.Decimal.Equal(tt.want.Decimal) {
				t.Errorf("FDV() = %s, want %s", got.Decimal, tt.want.Decimal)
			}
		})
	}
}

func TestMarketCap(t *testing.T) {
	got := MarketCap(d("2.5"), nd("400"))
	if !got.Valid || !got.Decimal.Equal(d("1000")) {
		t.Errorf("MarketCap() = %v, want 1000", got)
	}
	if MarketCap(d("2.5"), decimal.NullDecimal{}).Valid {
		t.Error("MarketCap() with absent supply should be absent")
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		current, previous string
		want              string
	}{
		{"110", "100", "10"},
		{"5", "0", "0"},
		{"90", "100", "-10"},
		{"100", "3", "3233.33"},
		{"1", "3", "-66.67"},
	}

	for _, tt := range tests {
		got := PercentChange(d(tt.current), d(tt.previous))
		if !got.Equal(d(tt.want)) {
			t.Errorf("PercentChange(%s, %s) = %s, want %s", tt.current, tt.previous, got, tt.want)
		}
	}

	if got := PercentChange(d("110"), d("100")).StringFixed(2); got != "10.00" {
		t.Errorf("PercentChange(110, 100) fixed = %s, want 10.00", got)
	}
}

func TestEffectiveLiquidity24h(t *testing.T) {
	tests := []struct {
		volume, spread, want string
	}{
		{"1000", "1", "990"},
		{"1000", "0.5", "995"},
		{"0", "1", "0"},
		{"-5", "1", "0"},
	}

	for _, tt := range tests {
		got := EffectiveLiquidity24h(d(tt.volume), d(tt.spread))
		if !got.Equal(d(tt.want)) {
			t.Errorf("EffectiveLiquidity24h(%s, %s) = %s, want %s", tt.volume, tt.spread, got, tt.want)
		}
	}
}

func TestEstimatedTxCount30d(t *testing.T) {
	tests := []struct {
		name          string
		volume, price string
		multiplier    int64
		want          *int64
	}{
		{"basic", "1000000", "10", 100, ptr(30000)},
		{"floors", "1001", "3", 100, ptr(100)},
		{"exact quotient before floor", "1", "3", 1, ptr(10)},
		{"zero volume", "0", "10", 100, nil},
		{"zero price", "1000", "0", 100, nil},
		{"zero multiplier", "1000", "10", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimatedTxCount30d(d(tt.volume), d(tt.price), tt.multiplier)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("EstimatedTxCount30d() = %v, want %v", got, tt.want)
			case *got != *tt.want:
				t.Errorf("EstimatedTxCount30d() = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func TestLiquidityScore(t *testing.T) {
	tests := []struct {
		name                      string
		volume, marketCap, spread string
		want                      string
	}{
		{"half of market cap", "500", "1000", "1.0", "50"},
		{"raw 500 reported 100", "5000", "1000", "1.0", "100"},
		{"spread divides", "100", "1000", "2", "5"},
		{"rounds to 2 places", "1", "3", "1", "33.33"},
		{"zero market cap", "500", "0", "1", "0"},
		{"negative market cap", "500", "-10", "1", "0"},
		{"zero spread positive ratio", "1", "1000", "0", "100"},
		{"zero spread zero volume", "0", "1000", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LiquidityScore(d(tt.volume), d(tt.marketCap), d(tt.spread))
			if !got.Equal(d(tt.want)) {
				t.Errorf("LiquidityScore(%s, %s, %s) = %s, want %s", tt.volume, tt.marketCap, tt.spread, got, tt.want)
			}
		})
	}
}

func ptr(v int64) *int64 { return &v }

package database

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/coingecko-data/internal/store"
)

func TestBuildQuery(t *testing.T) {
	now := time.Unix(1705320000, 0)

	tests := []struct {
		name     string
		q        store.Query
		wantSQL  string
		wantArgs int
	}{
		{
			name:     "partition only",
			q:        store.Query{PK: "TOKEN#abc"},
			wantSQL:  `SELECT pk, sk, entity_type, expiry, attributes FROM "records" WHERE pk = $1 AND (expiry = 0 OR expiry > $2) ORDER BY sk ASC`,
			wantArgs: 2,
		},
		{
			name:     "range descending with limit",
			q:        store.Query{PK: "TOKEN#abc", SKFrom: "STATS#a", SKTo: "STATS#b", Descending: true, Limit: 10},
			wantSQL:  `SELECT pk, sk, entity_type, expiry, attributes FROM "records" WHERE pk = $1 AND (expiry = 0 OR expiry > $2) AND sk >= $3 AND sk <= $4 ORDER BY sk DESC LIMIT $5`,
			wantArgs: 5,
		},
		{
			name:     "upper bound only",
			q:        store.Query{PK: "TOKEN#abc", SKTo: "STATS#b"},
			wantSQL:  `SELECT pk, sk, entity_type, expiry, attributes FROM "records" WHERE pk = $1 AND (expiry = 0 OR expiry > $2) AND sk <= $3 ORDER BY sk ASC`,
			wantArgs: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildQuery(`"records"`, tt.q, now)
			if sql != tt.wantSQL {
				t.Errorf("sql =\n%s\nwant\n%s", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
			if args[1] != int64(1705320000) {
				t.Errorf("now arg = %v, want 1705320000", args[1])
			}
		})
	}
}

func TestSchemaUsesSanitizedTable(t *testing.T) {
	stmts := schema(`"crypto records"`)
	if !strings.Contains(stmts[0], `CREATE TABLE IF NOT EXISTS "crypto records"`) {
		t.Errorf("table DDL = %s", stmts[0])
	}
	if !strings.Contains(stmts[0], `sk          TEXT   COLLATE "C" NOT NULL`) {
		t.Errorf("sort key must compare bytewise: %s", stmts[0])
	}
	if !strings.Contains(stmts[1], `"crypto records_expiry_idx"`) {
		t.Errorf("index DDL = %s", stmts[1])
	}
}

func TestAttributesKeepPrecision(t *testing.T) {
	in := map[string]any{
		"price":          decimal.RequireFromString("0.000012345678901234567"),
		"symbol":         "PEPE",
		"market_cap":     nil,
		"is_deleted":     false,
		"fiat_supported": []string{"USD"},
	}

	raw, err := encodeAttributes(in)
	if err != nil {
		t.Fatalf("encodeAttributes() error = %v", err)
	}
	if !strings.Contains(string(raw), `0.000012345678901234567`) {
		t.Errorf("encoded = %s, want unquoted full-precision price", raw)
	}

	out, err := decodeAttributes(raw)
	if err != nil {
		t.Fatalf("decodeAttributes() error = %v", err)
	}
	if p, ok := out["price"].(decimal.Decimal); !ok || !p.Equal(in["price"].(decimal.Decimal)) {
		t.Errorf("price = %#v, want %v", out["price"], in["price"])
	}
	if out["symbol"] != "PEPE" {
		t.Errorf("symbol = %v, want PEPE", out["symbol"])
	}
	if out["market_cap"] != nil {
		t.Errorf("market_cap = %v, want nil", out["market_cap"])
	}
	if fiat, ok := out["fiat_supported"].([]string); !ok || len(fiat) != 1 || fiat[0] != "USD" {
		t.Errorf("fiat_supported = %#v, want [USD]", out["fiat_supported"])
	}
}

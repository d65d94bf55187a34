package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEntityIDs(t *testing.T) {
	t.Run("stable across calls", func(t *testing.T) {
		if ExchangeID("binance") != ExchangeID("binance") {
			t.Error("ExchangeID should be deterministic")
		}
		if TokenID("bitcoin") != TokenID("bitcoin") {
			t.Error("TokenID should be deterministic")
		}
	})

	t.Run("distinct per family", func(t *testing.T) {
		if ExchangeID("same") == TokenID("same") {
			t.Error("exchange and token ids share a namespace")
		}
		if ExchangeID("binance") == ExchangeID("gdax") {
			t.Error("different exchanges produced the same id")
		}
	})

	t.Run("name-based version", func(t *testing.T) {
		if v := TokenID("ethereum").Version(); v != 5 {
			t.Errorf("Version() = %d, want 5", v)
		}
		if ExchangeID("binance") == uuid.Nil {
			t.Error("ExchangeID returned uuid.Nil")
		}
	})
}

func TestNewAudit(t *testing.T) {
	at := time.Date(2024, 1, 15, 12, 30, 45, 0, time.FixedZone("UTC+3", 3*3600))
	a := NewAudit(at)

	if a.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", a.CreatedAt.Location())
	}
	if !a.CreatedAt.Equal(at) || !a.UpdatedAt.Equal(at) {
		t.Errorf("audit = %+v, want both stamps at %v", a, at)
	}
	if a.IsDeleted {
		t.Error("IsDeleted should default to false")
	}
}

func TestBatchLen(t *testing.T) {
	eb := ExchangeBatch{
		Exchanges: make([]Exchange, 2),
		Stats:     make([]ExchangeStats, 2),
	}
	if eb.Len() != 4 {
		t.Errorf("ExchangeBatch.Len() = %d, want 4", eb.Len())
	}

	tb := TokenBatch{
		Tokens:    make([]Token, 3),
		Stats:     make([]TokenStats, 3),
		Platforms: make([]Platform, 5),
	}
	if tb.Len() != 11 {
		t.Errorf("TokenBatch.Len() = %d, want 11", tb.Len())
	}
}

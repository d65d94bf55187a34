package store

import (
	"strings"
	"time"

	"github.com/rickgao/coingecko-data/internal/model"
)

// TimeLayout formats sort-key timestamps. Fixed width keeps lexical order
// equal to time order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Attribute names shared by every backend.
const (
	AttrPK         = "pk"
	AttrSK         = "sk"
	AttrEntityType = "entity_type"
	AttrExpiry     = "expiry"
)

// Class selects a retention policy.
type Class int

const (
	ClassProfile Class = iota
	ClassStats
	ClassQuickPrice
)

func (c Class) String() string {
	switch c {
	case ClassProfile:
		return "profile"
	case ClassStats:
		return "stats"
	case ClassQuickPrice:
		return "quick_price"
	default:
		return "unknown"
	}
}

// Item is one keyed record.
//
// Attribute values are limited to nil, string, bool, int, int64,
// decimal.Decimal, time.Time and []string.
type Item struct {
	PK         string
	SK         string
	EntityType model.EntityType
	Class      Class
	Expiry     int64 // epoch seconds, set by the gateway
	Attributes map[string]any
}

// Kind returns the record kind of the item.
func (it Item) Kind() string {
	return RecordKind(it.SK)
}

// Key joins key parts with "#".
func Key(parts ...string) string {
	return strings.Join(parts, "#")
}

// SortKey builds "<kind>#<timestamp>".
func SortKey(kind string, at time.Time) string {
	return Key(kind, FormatTime(at))
}

// FormatTime renders t in TimeLayout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// prefixEnd sorts after every character used in sort-key segments
// (letters, digits and "-.:#_").
const prefixEnd = "~"

// PrefixRange returns inclusive sort-key bounds covering every key that
// starts with prefix.
func PrefixRange(prefix string) (from, to string) {
	return prefix, prefix + prefixEnd
}

// RecordKind strips the trailing "#<timestamp>" segment from a sort key.
func RecordKind(sk string) string {
	i := strings.LastIndexByte(sk, '#')
	if i < 0 {
		return sk
	}
	return sk[:i]
}

package store

import "context"

// Table is the narrow batched-write / range-query contract of a backend.
type Table interface {
	// BatchWrite writes every item or returns an error. Partial success is
	// reported as an error.
	BatchWrite(ctx context.Context, items []Item) error

	// Put writes a single item.
	Put(ctx context.Context, item Item) error

	// Query returns unexpired items of one partition.
	Query(ctx context.Context, q Query) ([]Item, error)
}

// Query selects items of one partition key.
type Query struct {
	PK string

	// Optional inclusive sort-key bounds.
	SKFrom string
	SKTo   string

	Descending bool // newest first
	Limit      int  // 0 means no limit
}

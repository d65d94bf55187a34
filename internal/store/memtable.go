package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemTable is an in-process Table. Items sharing (pk, sk) overwrite each other
// and expired items are hidden from reads. It backs dry runs and tests.
type MemTable struct {
	mu    sync.RWMutex
	items map[string]map[string]Item // pk -> sk -> item
	now   func() time.Time
}

// NewMemTable creates an empty MemTable.
func NewMemTable() *MemTable {
	return &MemTable{
		items: make(map[string]map[string]Item),
		now:   time.Now,
	}
}

// BatchWrite stores every item.
func (m *MemTable) BatchWrite(ctx context.Context, items []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.putLocked(it)
	}
	return nil
}

// Put stores one item.
func (m *MemTable) Put(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(item)
	return nil
}

func (m *MemTable) putLocked(it Item) {
	part, ok := m.items[it.PK]
	if !ok {
		part = make(map[string]Item)
		m.items[it.PK] = part
	}
	part[it.SK] = it
}

// Query returns unexpired items of q.PK ordered by sort key.
func (m *MemTable) Query(ctx context.Context, q Query) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now().Unix()
	var out []Item
	for sk, it := range m.items[q.PK] {
		if it.Expiry > 0 && it.Expiry <= now {
			continue
		}
		if q.SKFrom != "" && sk < q.SKFrom {
			continue
		}
		if q.SKTo != "" && sk > q.SKTo {
			continue
		}
		out = append(out, it)
	}

	sort.Slice(out, func(i, j int) bool {
		if q.Descending {
			return out[i].SK > out[j].SK
		}
		return out[i].SK < out[j].SK
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Sweep removes expired items and returns how many were removed.
func (m *MemTable) Sweep(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().Unix()
	var n int64
	for pk, part := range m.items {
		for sk, it := range part {
			if it.Expiry > 0 && it.Expiry <= now {
				delete(part, sk)
				n++
			}
		}
		if len(part) == 0 {
			delete(m.items, pk)
		}
	}
	return n, nil
}

// Len returns the number of stored items, expired or not.
func (m *MemTable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, part := range m.items {
		n += len(part)
	}
	return n
}

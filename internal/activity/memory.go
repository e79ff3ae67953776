package activity

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity is the ring size of a memory store.
const DefaultMemoryCapacity = 500

// MemoryStore keeps the most recent entries in a fixed-size ring.
type MemoryStore struct {
	mu    sync.RWMutex
	ring  []Entry
	next  int
	count int
}

// NewMemoryStore returns a store holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{ring: make([]Entry, capacity)}
}

func (m *MemoryStore) Record(_ context.Context, e Entry) error {
	e = prepare(e)
	m.mu.Lock()
	m.ring[m.next] = e
	m.next = (m.next + 1) % len(m.ring)
	if m.count < len(m.ring) {
		m.count++
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	limit = clampLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit > m.count {
		limit = m.count
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.ring)) % len(m.ring)
		out = append(out, m.ring[idx])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

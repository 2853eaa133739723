package store

import (
	"context"
	"sync"
	"time"

	"github.com/repscan/app-scanner/internal/scan"
)

// MemoryStore is the in-process ResultStore used when no Valkey address is
// configured. Expiry is lazy: entries are dropped when touched past their
// deadline.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	result    *scan.Result
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store. A non-positive ttl disables
// expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

// Put stores a result under the key, replacing any previous entry.
func (m *MemoryStore) Put(ctx context.Context, key string, result *scan.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{result: result}
	if m.ttl > 0 {
		entry.expiresAt = time.Now().Add(m.ttl)
	}
	m.entries[key] = entry
	return nil
}

// TakeOnce retrieves and removes the result for the key.
func (m *MemoryStore) TakeOnce(ctx context.Context, key string) (*scan.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.entries, key)

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return entry.result, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

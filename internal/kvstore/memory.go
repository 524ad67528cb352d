package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	cmap "github.com/orcaman/concurrent-map/v2"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore keeps encoded values in a sharded concurrent map.
// Suitable for a single replica and for tests.
type MemoryStore struct {
	items cmap.ConcurrentMap[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: cmap.New[memoryEntry](),
		now:   time.Now,
	}
}

// WithClock replaces the time source, used by tests to expire entries
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

// Get decodes the value stored at key into dest
func (m *MemoryStore) Get(ctx context.Context, key string, dest any) error {
	entry, ok := m.items.Get(key)
	if !ok {
		return ErrNotFound
	}
	if entry.expired(m.now()) {
		m.removeIfExpired(key)
		return ErrNotFound
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Put stores value at key for ttl
func (m *MemoryStore) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.items.Set(key, entry)
	return nil
}

// TTL returns the remaining lifetime of key
func (m *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	entry, ok := m.items.Get(key)
	if !ok {
		return 0, ErrNotFound
	}
	now := m.now()
	if entry.expired(now) {
		m.removeIfExpired(key)
		return 0, ErrNotFound
	}
	if entry.expiresAt.IsZero() {
		return 0, nil
	}
	return entry.expiresAt.Sub(now), nil
}

// Delete removes key
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.items.Remove(key)
	return nil
}

// Len returns the number of stored keys, including ones that expired but were not yet swept
func (m *MemoryStore) Len() int {
	return m.items.Count()
}

// Sweep removes expired entries and returns how many were dropped
func (m *MemoryStore) Sweep() int {
	removed := 0
	for _, key := range m.items.Keys() {
		if m.removeIfExpired(key) {
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired entries every interval until ctx is done
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *MemoryStore) removeIfExpired(key string) bool {
	now := m.now()
	return m.items.RemoveCb(key, func(_ string, entry memoryEntry, exists bool) bool {
		return exists && entry.expired(now)
	})
}

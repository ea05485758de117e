package keyed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	xerrors "hushpay/internal/errors"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process Store. Records are JSON encoded so callers
// never share mutable state with the store.
type MemoryStore[T any] struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	now func() time.Time
}

// WithClock injects the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore[T any](opts ...MemoryOption) *MemoryStore[T] {
	cfg := memoryConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryStore[T]{entries: make(map[string]memoryEntry), now: cfg.now}
}

func (s *MemoryStore[T]) Get(_ context.Context, key string) (T, bool, error) {
	s.mu.Lock()
	entry, ok := s.live(key)
	s.mu.Unlock()
	return decode[T](entry.data, ok)
}

func (s *MemoryStore[T]) Put(_ context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return xerrors.Wrap(CodeKeyedStore, err, "encode record")
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore[T]) Take(_ context.Context, key string) (T, bool, error) {
	s.mu.Lock()
	entry, ok := s.live(key)
	delete(s.entries, key)
	s.mu.Unlock()
	return decode[T](entry.data, ok)
}

func (s *MemoryStore[T]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired records and returns how many were removed.
func (s *MemoryStore[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !entry.expires.IsZero() && !now.Before(entry.expires) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// live must be called with mu held. Expired entries are dropped.
func (s *MemoryStore[T]) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expires.IsZero() && !s.now().Before(entry.expires) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func decode[T any](data []byte, ok bool) (T, bool, error) {
	var value T
	if !ok {
		return value, false, nil
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, xerrors.Wrap(CodeKeyedStore, err, "decode record")
	}
	return value, true, nil
}

var _ Store[struct{}] = (*MemoryStore[struct{}])(nil)

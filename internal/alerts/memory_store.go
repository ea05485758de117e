package alerts

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps alerts in process.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts map[string]Alert
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{alerts: make(map[string]Alert)}
}

func (m *MemoryStore) Replace(_ context.Context, a Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.alerts {
		if existing.Active && existing.Identity == a.Identity && strings.EqualFold(existing.Token, a.Token) {
			existing.Active = false
			m.alerts[id] = existing
		}
	}
	m.alerts[a.ID] = a
	return nil
}

func (m *MemoryStore) ListActive(_ context.Context) ([]Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Alert
	for _, a := range m.alerts {
		if a.Active {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.alerts[id]; ok {
		a.Active = false
		m.alerts[id] = a
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)

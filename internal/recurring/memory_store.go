package recurring

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "hushpay/internal/errors"
)

// MemoryStore keeps actions in process.
type MemoryStore struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{actions: make(map[string]Action)}
}

func (m *MemoryStore) Create(_ context.Context, a Action) error {
	if a.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "recurring id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actions[a.ID]; ok {
		return xerrors.New(xerrors.CodeConflict, "recurring action exists")
	}
	m.actions[a.ID] = a
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actions[id]
	if !ok {
		return Action{}, ErrNotFound
	}
	return a, nil
}

func (m *MemoryStore) Due(_ context.Context, now time.Time, limit int) ([]Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Action
	for _, a := range m.actions {
		if a.Active && !a.NextRunAt.After(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRunAt.Before(out[j].NextRunAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Reschedule(_ context.Context, id string, prev, next time.Time) error {
	if !next.After(prev) {
		return xerrors.New(xerrors.CodeInvalidArgument, "next run must move forward")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[id]
	if !ok {
		return ErrNotFound
	}
	if !a.NextRunAt.Equal(prev) {
		return ErrStale
	}
	a.NextRunAt = next
	m.actions[id] = a
	return nil
}

func (m *MemoryStore) Deactivate(_ context.Context, sender, recipient string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, a := range m.actions {
		if a.Active && a.Sender == sender && a.Recipient == recipient {
			a.Active = false
			m.actions[id] = a
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListActive(_ context.Context, sender string) ([]Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Action
	for _, a := range m.actions {
		if a.Active && a.Sender == sender {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ Store = (*MemoryStore)(nil)

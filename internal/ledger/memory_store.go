package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "hushpay/internal/errors"
)

// MemoryStore keeps transfers in process.
type MemoryStore struct {
	mu        sync.RWMutex
	transfers map[string]Transfer
	seq       map[string]int
	next      int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transfers: make(map[string]Transfer), seq: make(map[string]int)}
}

func (m *MemoryStore) Create(_ context.Context, t Transfer) error {
	if t.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "transfer id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transfers[t.ID]; ok {
		return xerrors.New(xerrors.CodeConflict, "transfer exists")
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = StatusPending
	}
	m.transfers[t.ID] = t
	m.next++
	m.seq[t.ID] = m.next
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transfers[id]
	if !ok {
		return Transfer{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) Settle(_ context.Context, id string, status Status, txRef, reason string) error {
	if !status.Terminal() {
		return ErrInvalidTerminal
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusPending {
		return ErrAlreadySettled
	}
	t.Status = status
	t.TxRef = txRef
	t.Error = reason
	t.UpdatedAt = time.Now().UTC()
	m.transfers[id] = t
	return nil
}

func (m *MemoryStore) ListForIdentity(_ context.Context, phone string, limit int) ([]Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Transfer
	for _, t := range m.transfers {
		if t.Sender == phone || t.Recipient == phone {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.seq[out[i].ID] > m.seq[out[j].ID] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)

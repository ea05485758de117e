package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps identities in process, mostly for tests and local runs.
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[string]Identity
	byWallet   map[string]string
	contacts   map[string]map[string]Contact
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]Identity),
		byWallet:   make(map[string]string),
		contacts:   make(map[string]map[string]Contact),
	}
}

func (m *MemoryStore) Create(_ context.Context, id Identity) (Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.identities[id.Phone]; ok {
		return existing, false, nil
	}
	if id.CreatedAt.IsZero() {
		id.CreatedAt = time.Now().UTC()
	}
	m.identities[id.Phone] = id
	m.byWallet[strings.ToLower(id.WalletAddress)] = id.Phone
	return id, true, nil
}

func (m *MemoryStore) Get(_ context.Context, phone string) (Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.identities[phone]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return id, nil
}

func (m *MemoryStore) FindByWallet(_ context.Context, address string) (Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	phone, ok := m.byWallet[strings.ToLower(address)]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return m.identities[phone], nil
}

func (m *MemoryStore) UpdateLanguage(_ context.Context, phone, lang string) error {
	return m.update(phone, func(id *Identity) { id.Language = lang })
}

func (m *MemoryStore) UpdatePIN(_ context.Context, phone, hash string) error {
	return m.update(phone, func(id *Identity) { id.PINHash = hash })
}

func (m *MemoryStore) UpdateLockout(_ context.Context, phone string, until time.Time) error {
	return m.update(phone, func(id *Identity) { id.LockedUntil = until })
}

func (m *MemoryStore) update(phone string, fn func(*Identity)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[phone]
	if !ok {
		return ErrNotFound
	}
	fn(&id)
	m.identities[phone] = id
	return nil
}

func (m *MemoryStore) SaveContact(_ context.Context, c Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.contacts[c.Owner]
	if !ok {
		book = make(map[string]Contact)
		m.contacts[c.Owner] = book
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	book[ContactKey(c.Name)] = c
	return nil
}

func (m *MemoryStore) GetContact(_ context.Context, owner, name string) (Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[owner][ContactKey(name)]
	if !ok {
		return Contact{}, ErrContactNotFound
	}
	return c, nil
}

func (m *MemoryStore) DeleteContact(_ context.Context, owner, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ContactKey(name)
	if _, ok := m.contacts[owner][key]; !ok {
		return false, nil
	}
	delete(m.contacts[owner], key)
	return true, nil
}

func (m *MemoryStore) ListContacts(_ context.Context, owner string) ([]Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Contact, 0, len(m.contacts[owner]))
	for _, c := range m.contacts[owner] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return ContactKey(out[i].Name) < ContactKey(out[j].Name) })
	return out, nil
}

var _ Store = (*MemoryStore)(nil)

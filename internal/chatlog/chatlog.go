// Package chatlog is the append-only per-identity message history fed to the
// interpreter.
package chatlog

import (
	"context"
	"sync"
	"time"
)

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultDepth is the size of the history window.
const DefaultDepth = 20

// Message is one conversation turn.
type Message struct {
	Identity  string
	Role      Role
	Text      string
	CreatedAt time.Time
}

// Store persists messages.
type Store interface {
	Append(ctx context.Context, msg Message) error
	// Recent returns the newest limit messages in chronological order.
	Recent(ctx context.Context, identity string, limit int) ([]Message, error)
}

// MemoryStore keeps messages in process.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]Message)}
}

func (m *MemoryStore) Append(_ context.Context, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.messages[msg.Identity] = append(m.messages[msg.Identity], msg)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, identity string, limit int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[identity]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Message, len(all))
	copy(out, all)
	return out, nil
}

var _ Store = (*MemoryStore)(nil)

package sqlstore

import (
	"context"
	"time"

	"hushpay/internal/chatlog"
)

// MessageStore implements chatlog.Store.
type MessageStore struct {
	*DB
}

// Messages returns the conversation log store.
func (s *DB) Messages() *MessageStore {
	return &MessageStore{DB: s}
}

func (s *MessageStore) Append(ctx context.Context, msg chatlog.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO messages (identity, role, content, created_at) VALUES (?, ?, ?, ?)`,
		msg.Identity, string(msg.Role), msg.Text, millis(msg.CreatedAt))
	return storageErr(err, "append message")
}

func (s *MessageStore) Recent(ctx context.Context, identity string, limit int) ([]chatlog.Message, error) {
	if limit <= 0 {
		limit = chatlog.DefaultDepth
	}
	rows, err := s.db.QueryContext(ctx, `SELECT identity, role, content, created_at FROM messages
WHERE identity = ? ORDER BY id DESC LIMIT ?`, identity, limit)
	if err != nil {
		return nil, storageErr(err, "query messages")
	}
	defer rows.Close()
	var newestFirst []chatlog.Message
	for rows.Next() {
		var (
			m    chatlog.Message
			role string
			ms   int64
		)
		if err := rows.Scan(&m.Identity, &role, &m.Text, &ms); err != nil {
			return nil, storageErr(err, "scan message")
		}
		m.Role = chatlog.Role(role)
		m.CreatedAt = fromMillis(ms)
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "query messages")
	}
	out := make([]chatlog.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out, nil
}

var _ chatlog.Store = (*MessageStore)(nil)

// Package notify queues outbound texts and delivers them through a
// provider.Notifier with bounded retries.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"hushpay/internal/provider"
)

// Message is one outbound text.
type Message struct {
	ID        string           `json:"id"`
	To        string           `json:"to"`
	Channel   provider.Channel `json:"channel"`
	Text      string           `json:"text"`
	Attempts  int              `json:"attempts"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewMessage stamps an ID and creation time.
func NewMessage(to string, channel provider.Channel, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		To:        to,
		Channel:   channel,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

func encode(m Message) ([]byte, error) { return json.Marshal(m) }

func decode(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}

// Handler processes one dequeued message.
type Handler func(ctx context.Context, msg Message) error

// Producer enqueues messages.
type Producer interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Consumer runs workers until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue is both ends.
type Queue interface {
	Producer
	Consumer
}

package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message Message) error
	Close() error
}

// Message is the envelope written to a channel for every relayed domain event.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// MemoryBroker keeps published messages in process. Used when no Redis URL is configured.
type MemoryBroker struct {
	mu       sync.Mutex
	messages map[string][]Message
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{messages: make(map[string][]Message)}
}

func (b *MemoryBroker) Publish(_ context.Context, channel string, message Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[channel] = append(b.messages[channel], message)
	return nil
}

// Messages returns a copy of everything published on channel.
func (b *MemoryBroker) Messages(channel string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.messages[channel]))
	copy(out, b.messages[channel])
	return out
}

func (b *MemoryBroker) Close() error {
	return nil
}

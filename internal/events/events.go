// Package events publishes finished ticket results to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"sync"
)

// Publisher delivers one keyed event.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(ctx context.Context, key string, event any) error { return nil }
func (Nop) Close() error { return nil }

// Message is an event captured by Memory.
type Message struct {
	Key   string
	Value json.RawMessage
}

// Memory records published events as JSON in process memory.
type Memory struct {
	mu       sync.Mutex
	messages []Message
}

// NewMemory creates an empty recorder.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, Message{Key: key, Value: data})
	return nil
}

// Messages returns a copy of the recorded events, oldest first.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

func (m *Memory) Close() error {
	return nil
}

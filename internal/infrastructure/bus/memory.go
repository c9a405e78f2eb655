package bus

import (
	"context"
	"sync"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

// Publisher is the write side of the bus, implemented by every backend.
type Publisher interface {
	Publish(ctx context.Context, event store.Event) error
	Close() error
}

// MemoryBus is an in-process fanout bus. Every subscriber receives a copy
// of every published event, delivered synchronously on the publisher's
// goroutine. Used in tests and single-process setups.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers []MessageHandler
	closed      bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Subscribe registers a handler that receives every subsequent event.
func (b *MemoryBus) Subscribe(handler MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, handler)
}

// Publish delivers the event to every subscriber. A subscriber error does
// not stop delivery to the others; the first error is returned.
func (b *MemoryBus) Publish(ctx context.Context, event store.Event) error {
	b.mu.RLock()
	handlers := make([]MessageHandler, len(b.subscribers))
	copy(handlers, b.subscribers)
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subscribers = nil
	return nil
}

var (
	_ Publisher = (*MemoryBus)(nil)
	_ Publisher = (*AMQPPublisher)(nil)
	_ Publisher = (*KafkaPublisher)(nil)
)

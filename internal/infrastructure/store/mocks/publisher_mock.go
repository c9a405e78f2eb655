package mocks

import (
	"context"
	"sync"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

// MockPublisher records published events for testing
type MockPublisher struct {
	mu        sync.Mutex
	Published []store.Event

	PublishErr error
}

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Published: make([]store.Event, 0),
	}
}

func (m *MockPublisher) Publish(ctx context.Context, event store.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Published = append(m.Published, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// Reset clears recorded events
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = make([]store.Event, 0)
	m.PublishErr = nil
}

package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
	"github.com/google/uuid"
)

// MockEventStore is an in-memory EventStoreInterface for testing. It
// enforces the same expected-version guard as the real backends so
// concurrency paths can be exercised.
type MockEventStore struct {
	mu     sync.RWMutex
	events map[string][]store.Event

	// For tracking calls in tests
	AppendCalls    []AppendCall
	AppendErr      error
	AppendCallback func(ctx context.Context, aggregateID, aggregateType string, events []store.EventData, expectedVersion int) ([]store.Event, error)
}

// AppendCall records parameters passed to Append
type AppendCall struct {
	AggregateID     string
	AggregateType   string
	Events          []store.EventData
	ExpectedVersion int
}

// NewMockEventStore creates a new MockEventStore
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{
		events:      make(map[string][]store.Event),
		AppendCalls: make([]AppendCall, 0),
	}
}

// Append stores events in memory after checking the version guard
func (m *MockEventStore) Append(ctx context.Context, aggregateID, aggregateType string, events []store.EventData, expectedVersion int) ([]store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Record the call
	m.AppendCalls = append(m.AppendCalls, AppendCall{
		AggregateID:     aggregateID,
		AggregateType:   aggregateType,
		Events:          events,
		ExpectedVersion: expectedVersion,
	})

	// Use callback if provided
	if m.AppendCallback != nil {
		return m.AppendCallback(ctx, aggregateID, aggregateType, events, expectedVersion)
	}

	// Return error if set
	if m.AppendErr != nil {
		return nil, m.AppendErr
	}

	if len(m.events[aggregateID]) != expectedVersion {
		return nil, store.ErrConcurrencyConflict
	}

	stored := make([]store.Event, 0, len(events))
	for i, ed := range events {
		event := store.Event{
			ID:            uuid.New().String(),
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			EventType:     ed.EventType,
			Data:          ed.Data,
			Timestamp:     time.Now(),
			Version:       expectedVersion + i + 1,
		}
		stored = append(stored, event)
	}
	m.events[aggregateID] = append(m.events[aggregateID], stored...)
	return stored, nil
}

// GetEvents returns events for an aggregate
func (m *MockEventStore) GetEvents(ctx context.Context, aggregateID string) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.events[aggregateID]
	result := make([]store.Event, len(events))
	copy(result, events)
	return result, nil
}

// GetEventsAfterVersion returns events with a version greater than the given one
func (m *MockEventStore) GetEventsAfterVersion(ctx context.Context, aggregateID string, version int) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []store.Event
	for _, event := range m.events[aggregateID] {
		if event.Version > version {
			result = append(result, event)
		}
	}
	return result, nil
}

// GetAllEvents returns all events across aggregates
func (m *MockEventStore) GetAllEvents(ctx context.Context) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []store.Event
	for _, events := range m.events {
		all = append(all, events...)
	}
	return all, nil
}

// Reset clears all events and recorded calls
func (m *MockEventStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[string][]store.Event)
	m.AppendCalls = make([]AppendCall, 0)
	m.AppendErr = nil
	m.AppendCallback = nil
}

// SetEvents sets events directly for testing
func (m *MockEventStore) SetEvents(aggregateID string, events []store.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[aggregateID] = events
}

// AddEvent adds a single event for testing, assigning the next version
func (m *MockEventStore) AddEvent(aggregateID, aggregateType, eventType string, data []byte) store.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	event := store.Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          data,
		Timestamp:     time.Now(),
		Version:       len(m.events[aggregateID]) + 1,
	}
	m.events[aggregateID] = append(m.events[aggregateID], event)
	return event
}

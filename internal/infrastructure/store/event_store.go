package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventStore is an in-memory event store. Used in tests and single-process
// setups; the version guard runs under the store mutex, so it gives the
// same conflict semantics as the durable backends.
type EventStore struct {
	mu     sync.RWMutex
	events map[string][]Event // aggregateID -> events ordered by version
}

func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[string][]Event),
	}
}

// Append stores events iff the aggregate's current version equals expectedVersion.
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType string, events []EventData, expectedVersion int) ([]Event, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	currentVersion := len(es.events[aggregateID])
	if currentVersion != expectedVersion {
		return nil, ErrConcurrencyConflict
	}

	stored := make([]Event, 0, len(events))
	for i, e := range events {
		stored = append(stored, Event{
			ID:            uuid.New().String(),
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			EventType:     e.EventType,
			Data:          e.Data,
			Timestamp:     time.Now(),
			Version:       expectedVersion + i + 1,
		})
	}
	es.events[aggregateID] = append(es.events[aggregateID], stored...)

	return stored, nil
}

// GetEvents returns all events for an aggregate ordered by version ascending.
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	events := es.events[aggregateID]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}

// GetEventsAfterVersion returns events with a version greater than version,
// ordered by version ascending.
func (es *EventStore) GetEventsAfterVersion(ctx context.Context, aggregateID string, version int) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var out []Event
	for _, e := range es.events[aggregateID] {
		if e.Version > version {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetAllEvents returns every stored event ordered by timestamp ascending.
func (es *EventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var all []Event
	for _, events := range es.events {
		all = append(all, events...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all, nil
}

var _ EventStoreInterface = (*EventStore)(nil)

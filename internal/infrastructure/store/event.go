package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrConcurrencyConflict is returned by Append when the aggregate's
	// stored version differs from the expected version. The caller must
	// reload the aggregate and retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict: expected version does not match stored version")

	// ErrNoEvents is returned by Append when called with an empty event set.
	ErrNoEvents = errors.New("no events to append")
)

// Event represents a committed domain event. Version is the 1-based
// sequence number of the event within its aggregate's log: contiguous,
// monotonically increasing, unique per (AggregateID, Version). Immutable
// once written.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// MarshalJSON returns the JSON encoding of the event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct{ Alias }{Alias: Alias(e)})
}

// EventData is an event produced by an aggregate command but not yet
// assigned a version by the store.
type EventData struct {
	EventType string
	Data      json.RawMessage
}

// NewEventData marshals payload into an EventData record.
func NewEventData(eventType string, payload any) (EventData, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return EventData{}, err
	}
	return EventData{EventType: eventType, Data: data}, nil
}

// EventStoreInterface defines the append-only per-aggregate event log.
//
// Append succeeds only if the log's current version for aggregateID equals
// expectedVersion at the moment of the write; the accept/reject decision
// and the write are a single atomic operation in every backend, so two
// concurrent commands against the same aggregate can never both succeed.
// On success the events are stored with versions expectedVersion+1 ..
// expectedVersion+len(events) and returned with their assigned versions.
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType string, events []EventData, expectedVersion int) ([]Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
	GetEventsAfterVersion(ctx context.Context, aggregateID string, version int) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)
}

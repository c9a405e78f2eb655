package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

// Aggregate defines the interface for event-sourced aggregates. Version
// always equals the number of events folded into the current state,
// whether from a snapshot tail plus replayed events or from full replay.
type Aggregate interface {
	GetID() string
	GetVersion() int
	SetVersion(int)
	// ApplyEvent mutates in-memory fields as a pure function of
	// (prior state, event). Version bookkeeping belongs to the caller.
	ApplyEvent(store.Event) error
	UncommittedEvents() []store.EventData
	ClearUncommittedEvents()
}

// Base carries identity, version and uncommitted-event bookkeeping.
// Aggregates embed it and implement ApplyEvent.
type Base struct {
	ID      string `json:"id"`
	Version int    `json:"version"`

	uncommitted []store.EventData
}

func (b *Base) GetID() string    { return b.ID }
func (b *Base) GetVersion() int  { return b.Version }
func (b *Base) SetVersion(v int) { b.Version = v }

func (b *Base) UncommittedEvents() []store.EventData { return b.uncommitted }
func (b *Base) ClearUncommittedEvents()              { b.uncommitted = nil }

// Raise applies the event to agg, advances the in-memory version and
// queues the event for the next append. Events raised by a command are
// durable only after the command handler's store+publish cycle.
func (b *Base) Raise(agg Aggregate, eventType string, payload any) error {
	e, err := store.NewEventData(eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	if err := agg.ApplyEvent(store.Event{
		AggregateID: b.ID,
		EventType:   eventType,
		Data:        e.Data,
		Version:     b.Version + 1,
	}); err != nil {
		return err
	}

	b.Version++
	b.uncommitted = append(b.uncommitted, e)
	return nil
}

// Load rebuilds an aggregate from the latest snapshot plus trailing
// events, falling back to full replay. Returns the aggregate, a boolean
// indicating whether any data was found, and any error. Correctness is
// identical with or without a snapshot: only events with a version
// greater than the snapshot's are re-applied.
func Load[T Aggregate](
	ctx context.Context,
	eventStore store.EventStoreInterface,
	snapshotStore store.SnapshotStoreInterface,
	id string,
	newAggregate func() T,
) (T, bool, error) {
	agg := newAggregate()

	snapshot, err := snapshotStore.Load(ctx, id)
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var events []store.Event
	if snapshot != nil {
		if err := json.Unmarshal(snapshot.State, agg); err != nil {
			var zero T
			return zero, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		agg.SetVersion(snapshot.Version)
		events, err = eventStore.GetEventsAfterVersion(ctx, id, snapshot.Version)
	} else {
		events, err = eventStore.GetEvents(ctx, id)
	}
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("failed to load events: %w", err)
	}

	hasData := snapshot != nil || len(events) > 0

	for _, event := range events {
		if err := agg.ApplyEvent(event); err != nil {
			var zero T
			return zero, false, fmt.Errorf("failed to apply event: %w", err)
		}
		agg.SetVersion(event.Version)
	}

	return agg, hasData, nil
}

// TakeSnapshot serializes the aggregate's current state into a snapshot
// record at its current version.
func TakeSnapshot(agg Aggregate, aggregateType string) (*store.Snapshot, error) {
	state, err := json.Marshal(agg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aggregate state: %w", err)
	}

	return &store.Snapshot{
		AggregateID:   agg.GetID(),
		AggregateType: aggregateType,
		Version:       agg.GetVersion(),
		State:         state,
		CreatedAt:     time.Now(),
	}, nil
}

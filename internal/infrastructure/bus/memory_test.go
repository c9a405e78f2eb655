package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

func TestMemoryBus_FanoutToAllSubscribers(t *testing.T) {
	b := NewMemoryBus()

	var first, second []store.Event
	b.Subscribe(func(ctx context.Context, event store.Event) error {
		first = append(first, event)
		return nil
	})
	b.Subscribe(func(ctx context.Context, event store.Event) error {
		second = append(second, event)
		return nil
	})

	err := b.Publish(context.Background(), store.Event{ID: "evt-1", EventType: "ReservationCreated"})

	require.NoError(t, err)
	// Fanout: every subscriber gets its own copy.
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "evt-1", first[0].ID)
	assert.Equal(t, "evt-1", second[0].ID)
}

func TestMemoryBus_SubscriberErrorDoesNotStopDelivery(t *testing.T) {
	b := NewMemoryBus()
	boom := errors.New("boom")

	var delivered int
	b.Subscribe(func(ctx context.Context, event store.Event) error {
		return boom
	})
	b.Subscribe(func(ctx context.Context, event store.Event) error {
		delivered++
		return nil
	})

	err := b.Publish(context.Background(), store.Event{ID: "evt-1"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, delivered)
}

func TestMemoryBus_NoSubscribers(t *testing.T) {
	b := NewMemoryBus()

	err := b.Publish(context.Background(), store.Event{ID: "evt-1"})

	assert.NoError(t, err)
}

func TestMemoryBus_PublishAfterClose(t *testing.T) {
	b := NewMemoryBus()

	var delivered int
	b.Subscribe(func(ctx context.Context, event store.Event) error {
		delivered++
		return nil
	})
	require.NoError(t, b.Close())

	err := b.Publish(context.Background(), store.Event{ID: "evt-1"})

	assert.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestMemoryBus_PreservesPublishOrder(t *testing.T) {
	b := NewMemoryBus()

	var versions []int
	b.Subscribe(func(ctx context.Context, event store.Event) error {
		versions = append(versions, event.Version)
		return nil
	})

	ctx := context.Background()
	for v := 1; v <= 5; v++ {
		require.NoError(t, b.Publish(ctx, store.Event{AggregateID: "agg-1", Version: v}))
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, versions)
}

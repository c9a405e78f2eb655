package query

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
	"github.com/example/parking-event-driven/internal/infrastructure/store/mocks"
	"github.com/example/parking-event-driven/internal/readmodel"
)

func newTestHandler() (*Handler, *mocks.MockReadStore) {
	readStore := mocks.NewMockReadStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(readStore, logger), readStore
}

func TestGetReservation(t *testing.T) {
	handler, readStore := newTestHandler()
	readStore.SetData(store.CollectionReservations, "res-1", &readmodel.ReservationReadModel{
		ID:     "res-1",
		UserID: "user-1",
		Status: "confirmed",
	})

	r, ok := handler.GetReservation("res-1")

	require.True(t, ok)
	assert.Equal(t, "confirmed", r.Status)
}

func TestGetReservation_NotFound(t *testing.T) {
	handler, _ := newTestHandler()

	r, ok := handler.GetReservation("missing")

	assert.False(t, ok)
	assert.Nil(t, r)
}

func TestListReservationsByUser(t *testing.T) {
	handler, readStore := newTestHandler()
	readStore.SetData(store.CollectionReservations, "res-1", &readmodel.ReservationReadModel{ID: "res-1", UserID: "user-1"})
	readStore.SetData(store.CollectionReservations, "res-2", &readmodel.ReservationReadModel{ID: "res-2", UserID: "user-2"})
	readStore.SetData(store.CollectionReservations, "res-3", &readmodel.ReservationReadModel{ID: "res-3", UserID: "user-1"})

	reservations := handler.ListReservationsByUser("user-1")

	assert.Len(t, reservations, 2)
	for _, r := range reservations {
		assert.Equal(t, "user-1", r.UserID)
	}
}

func TestListReservationsByUser_Empty(t *testing.T) {
	handler, _ := newTestHandler()

	reservations := handler.ListReservationsByUser("user-1")

	assert.Empty(t, reservations)
	assert.NotNil(t, reservations)
}

func TestGetSlot(t *testing.T) {
	handler, readStore := newTestHandler()
	readStore.SetData(store.CollectionSlots, "slot-1", &readmodel.SlotReadModel{ID: "slot-1", Name: "B2-017"})

	s, ok := handler.GetSlot("slot-1")

	require.True(t, ok)
	assert.Equal(t, "B2-017", s.Name)
}

func TestListSlotsBySite(t *testing.T) {
	handler, readStore := newTestHandler()
	readStore.SetData(store.CollectionSlots, "slot-1", &readmodel.SlotReadModel{ID: "slot-1", SiteID: "site-1"})
	readStore.SetData(store.CollectionSlots, "slot-2", &readmodel.SlotReadModel{ID: "slot-2", SiteID: "site-2"})

	slots := handler.ListSlotsBySite("site-1")

	require.Len(t, slots, 1)
	assert.Equal(t, "slot-1", slots[0].ID)
}

func TestGetUser(t *testing.T) {
	handler, readStore := newTestHandler()
	readStore.SetData(store.CollectionUsers, "user-1", &readmodel.UserReadModel{ID: "user-1", Email: "mei@example.com"})

	u, ok := handler.GetUser("user-1")

	require.True(t, ok)
	assert.Equal(t, "mei@example.com", u.Email)
}

func TestGetHistory_SortedByVersion(t *testing.T) {
	handler, readStore := newTestHandler()
	readStore.SetData(store.CollectionHistory, "evt-2", &readmodel.HistoryEntry{EventID: "evt-2", AggregateID: "res-1", Version: 2})
	readStore.SetData(store.CollectionHistory, "evt-1", &readmodel.HistoryEntry{EventID: "evt-1", AggregateID: "res-1", Version: 1})
	readStore.SetData(store.CollectionHistory, "evt-3", &readmodel.HistoryEntry{EventID: "evt-3", AggregateID: "res-1", Version: 3})
	readStore.SetData(store.CollectionHistory, "evt-other", &readmodel.HistoryEntry{EventID: "evt-other", AggregateID: "res-2", Version: 1})

	entries := handler.GetHistory("res-1")

	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Version)
	assert.Equal(t, 2, entries[1].Version)
	assert.Equal(t, 3, entries[2].Version)
}

func TestGetHistory_UnknownAggregate(t *testing.T) {
	handler, _ := newTestHandler()

	entries := handler.GetHistory("missing")

	assert.Empty(t, entries)
}

package command

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/parking-event-driven/internal/domain/reservation"
	"github.com/example/parking-event-driven/internal/domain/slot"
	"github.com/example/parking-event-driven/internal/domain/user"
	"github.com/example/parking-event-driven/internal/errs"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
	"github.com/example/parking-event-driven/internal/infrastructure/store/mocks"
)

func newTestHandler(snapshotFrequency int) (*Handler, *mocks.MockEventStore, *mocks.MockSnapshotStore, *mocks.MockPublisher) {
	eventStore := mocks.NewMockEventStore()
	snapshotStore := mocks.NewMockSnapshotStore()
	publisher := mocks.NewMockPublisher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(eventStore, snapshotStore, publisher, snapshotFrequency, logger)
	return handler, eventStore, snapshotStore, publisher
}

func validCreateReservation() CreateReservation {
	return CreateReservation{
		UserID:      "user-1",
		SlotID:      "slot-1",
		SiteID:      "site-1",
		StartDate:   "2026-09-01",
		StartTime:   "09:00",
		EndDate:     "2026-09-01",
		EndTime:     "17:00",
		UTCOffset:   "+08:00",
		VehicleType: "car",
	}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// ============================================
// CreateReservation Tests
// ============================================

func TestHandler_CreateReservation_Success(t *testing.T) {
	handler, eventStore, _, publisher := newTestHandler(10)
	ctx := context.Background()

	r, err := handler.CreateReservation(ctx, validCreateReservation())

	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, reservation.StatusCreated, r.Status)
	assert.Equal(t, 1, r.Version)
	assert.Empty(t, r.UncommittedEvents())

	require.Len(t, eventStore.AppendCalls, 1)
	call := eventStore.AppendCalls[0]
	assert.Equal(t, r.ID, call.AggregateID)
	assert.Equal(t, reservation.AggregateType, call.AggregateType)
	assert.Equal(t, 0, call.ExpectedVersion)
	require.Len(t, call.Events, 1)
	assert.Equal(t, reservation.EventReservationCreated, call.Events[0].EventType)

	// The stored event, with its assigned id and version, is what goes out.
	require.Len(t, publisher.Published, 1)
	assert.Equal(t, r.ID, publisher.Published[0].AggregateID)
	assert.Equal(t, 1, publisher.Published[0].Version)
	assert.NotEmpty(t, publisher.Published[0].ID)
}

func TestHandler_CreateReservation_ValidationRejected(t *testing.T) {
	handler, eventStore, _, publisher := newTestHandler(10)

	cmd := validCreateReservation()
	cmd.EndTime = "08:00" // before start

	r, err := handler.CreateReservation(context.Background(), cmd)

	assert.ErrorIs(t, err, reservation.ErrEndBeforeStart)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Nil(t, r)
	assert.Empty(t, eventStore.AppendCalls)
	assert.Empty(t, publisher.Published)
}

func TestHandler_CreateReservation_StoreError(t *testing.T) {
	handler, eventStore, _, publisher := newTestHandler(10)
	eventStore.AppendErr = io.ErrUnexpectedEOF

	r, err := handler.CreateReservation(context.Background(), validCreateReservation())

	assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
	assert.Nil(t, r)
	assert.Empty(t, publisher.Published)
}

func TestHandler_CreateReservation_PublishError(t *testing.T) {
	handler, eventStore, _, publisher := newTestHandler(10)
	publisher.PublishErr = io.ErrUnexpectedEOF

	_, err := handler.CreateReservation(context.Background(), validCreateReservation())

	assert.ErrorIs(t, err, errs.ErrBrokerUnavailable)
	// The event is durable even though delivery failed.
	assert.Len(t, eventStore.AppendCalls, 1)
}

func TestHandler_CreateReservation_NilPublisher(t *testing.T) {
	// Outbox mode: the store writes outbox rows, no direct publisher.
	eventStore := mocks.NewMockEventStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(eventStore, mocks.NewMockSnapshotStore(), nil, 10, logger)

	r, err := handler.CreateReservation(context.Background(), validCreateReservation())

	require.NoError(t, err)
	assert.NotNil(t, r)
	assert.Len(t, eventStore.AppendCalls, 1)
}

// ============================================
// UpdateReservationStatus Tests
// ============================================

func seedReservation(t *testing.T, eventStore *mocks.MockEventStore, id string) {
	t.Helper()
	eventStore.AddEvent(id, reservation.AggregateType, reservation.EventReservationCreated,
		mustMarshal(t, reservation.ReservationCreated{
			ReservationID: id,
			UserID:        "user-1",
			SlotID:        "slot-1",
			SiteID:        "site-1",
			Status:        reservation.StatusCreated,
			CreatedAt:     time.Now(),
		}))
}

func TestHandler_UpdateReservationStatus_Success(t *testing.T) {
	handler, eventStore, _, publisher := newTestHandler(10)
	ctx := context.Background()
	seedReservation(t, eventStore, "res-1")

	err := handler.UpdateReservationStatus(ctx, UpdateReservationStatus{
		ReservationID: "res-1",
		NewStatus:     reservation.StatusConfirmed,
	})

	require.NoError(t, err)
	require.Len(t, eventStore.AppendCalls, 1)
	call := eventStore.AppendCalls[0]
	assert.Equal(t, 1, call.ExpectedVersion)
	require.Len(t, call.Events, 1)
	assert.Equal(t, reservation.EventReservationStatusUpdated, call.Events[0].EventType)

	require.Len(t, publisher.Published, 1)
	assert.Equal(t, 2, publisher.Published[0].Version)
}

func TestHandler_UpdateReservationStatus_NotFound(t *testing.T) {
	handler, eventStore, _, _ := newTestHandler(10)

	err := handler.UpdateReservationStatus(context.Background(), UpdateReservationStatus{
		ReservationID: "missing",
		NewStatus:     reservation.StatusConfirmed,
	})

	assert.ErrorIs(t, err, reservation.ErrReservationNotFound)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestHandler_UpdateReservationStatus_SameStatusIsNoOp(t *testing.T) {
	handler, eventStore, _, publisher := newTestHandler(10)
	seedReservation(t, eventStore, "res-1")

	err := handler.UpdateReservationStatus(context.Background(), UpdateReservationStatus{
		ReservationID: "res-1",
		NewStatus:     reservation.StatusCreated,
	})

	require.NoError(t, err)
	assert.Empty(t, eventStore.AppendCalls)
	assert.Empty(t, publisher.Published)
}

func TestHandler_UpdateReservationStatus_Conflict(t *testing.T) {
	handler, eventStore, _, _ := newTestHandler(10)
	seedReservation(t, eventStore, "res-1")

	// A concurrent writer moved the log between load and append.
	eventStore.AppendCallback = func(ctx context.Context, aggregateID, aggregateType string, events []store.EventData, expectedVersion int) ([]store.Event, error) {
		return nil, store.ErrConcurrencyConflict
	}

	err := handler.UpdateReservationStatus(context.Background(), UpdateReservationStatus{
		ReservationID: "res-1",
		NewStatus:     reservation.StatusConfirmed,
	})

	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.ErrorIs(t, err, store.ErrConcurrencyConflict)
}

func TestHandler_UpdateReservationStatus_CancelledIsTerminal(t *testing.T) {
	handler, eventStore, _, _ := newTestHandler(10)
	ctx := context.Background()
	seedReservation(t, eventStore, "res-1")
	eventStore.AddEvent("res-1", reservation.AggregateType, reservation.EventReservationStatusUpdated,
		mustMarshal(t, reservation.ReservationStatusUpdated{ReservationID: "res-1", Status: reservation.StatusCancelled}))

	err := handler.UpdateReservationStatus(ctx, UpdateReservationStatus{
		ReservationID: "res-1",
		NewStatus:     reservation.StatusCheckedIn,
	})

	assert.ErrorIs(t, err, reservation.ErrReservationClosed)
}

// ============================================
// CreateSlot / CreateUser Tests
// ============================================

func TestHandler_CreateSlot_Success(t *testing.T) {
	handler, eventStore, _, publisher := newTestHandler(10)

	s, err := handler.CreateSlot(context.Background(), CreateSlot{
		Name:        "B2-017",
		SiteID:      "site-1",
		FloorID:     "floor-b2",
		ZoneID:      "zone-a",
		SlotNumber:  "017",
		VehicleType: "car",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, slot.StatusAvailable, s.Status)
	assert.Equal(t, 1, s.Version)

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, slot.AggregateType, eventStore.AppendCalls[0].AggregateType)
	assert.Len(t, publisher.Published, 1)
}

func TestHandler_CreateSlot_ValidationRejected(t *testing.T) {
	handler, eventStore, _, _ := newTestHandler(10)

	s, err := handler.CreateSlot(context.Background(), CreateSlot{SiteID: "site-1"})

	assert.ErrorIs(t, err, slot.ErrMissingName)
	assert.Nil(t, s)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestHandler_CreateUser_Success(t *testing.T) {
	handler, eventStore, _, publisher := newTestHandler(10)

	u, err := handler.CreateUser(context.Background(), CreateUser{Name: "Mei Lin", Email: "mei@example.com"})

	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, user.StatusActive, u.Status)
	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Len(t, publisher.Published, 1)
}

func TestHandler_CreateUser_InvalidEmail(t *testing.T) {
	handler, eventStore, _, _ := newTestHandler(10)

	u, err := handler.CreateUser(context.Background(), CreateUser{Name: "Mei Lin", Email: "not-an-email"})

	assert.ErrorIs(t, err, user.ErrInvalidEmail)
	assert.Nil(t, u)
	assert.Empty(t, eventStore.AppendCalls)
}

// ============================================
// Snapshot Tests
// ============================================

func TestHandler_SnapshotAtFrequency(t *testing.T) {
	handler, _, snapshotStore, _ := newTestHandler(1)

	r, err := handler.CreateReservation(context.Background(), validCreateReservation())

	require.NoError(t, err)
	require.Len(t, snapshotStore.SaveCalls, 1)
	saved := snapshotStore.SaveCalls[0]
	assert.Equal(t, r.ID, saved.AggregateID)
	assert.Equal(t, reservation.AggregateType, saved.AggregateType)
	assert.Equal(t, 1, saved.Version)
}

func TestHandler_NoSnapshotBelowFrequency(t *testing.T) {
	handler, _, snapshotStore, _ := newTestHandler(10)

	_, err := handler.CreateReservation(context.Background(), validCreateReservation())

	require.NoError(t, err)
	assert.Empty(t, snapshotStore.SaveCalls)
}

func TestHandler_SnapshotCrossingFrequency(t *testing.T) {
	handler, eventStore, snapshotStore, _ := newTestHandler(2)
	seedReservation(t, eventStore, "res-1")

	err := handler.UpdateReservationStatus(context.Background(), UpdateReservationStatus{
		ReservationID: "res-1",
		NewStatus:     reservation.StatusConfirmed,
	})

	require.NoError(t, err)
	require.Len(t, snapshotStore.SaveCalls, 1)
	assert.Equal(t, 2, snapshotStore.SaveCalls[0].Version)
}

func TestHandler_SnapshotFailureDoesNotFailCommand(t *testing.T) {
	handler, _, snapshotStore, publisher := newTestHandler(1)
	snapshotStore.SaveErr = io.ErrUnexpectedEOF

	r, err := handler.CreateReservation(context.Background(), validCreateReservation())

	require.NoError(t, err)
	assert.NotNil(t, r)
	assert.Len(t, publisher.Published, 1)
}

func TestHandler_LoadUsesSnapshotTail(t *testing.T) {
	handler, eventStore, snapshotStore, _ := newTestHandler(0)

	state := reservation.New()
	require.NoError(t, state.Create("res-1", reservation.CreateParams{
		UserID:    "user-1",
		SlotID:    "slot-1",
		SiteID:    "site-1",
		StartDate: "2026-09-01",
		StartTime: "09:00",
		EndDate:   "2026-09-01",
		EndTime:   "17:00",
		UTCOffset: "+08:00",
	}))
	state.ClearUncommittedEvents()
	state.SetVersion(3)
	snapshotStore.SetSnapshot(&store.Snapshot{
		AggregateID:   "res-1",
		AggregateType: reservation.AggregateType,
		Version:       3,
		State:         mustMarshal(t, state),
	})

	err := handler.UpdateReservationStatus(context.Background(), UpdateReservationStatus{
		ReservationID: "res-1",
		NewStatus:     reservation.StatusConfirmed,
	})

	require.NoError(t, err)
	require.Len(t, eventStore.AppendCalls, 1)
	// The load started from the snapshot's version, not from zero.
	assert.Equal(t, 3, eventStore.AppendCalls[0].ExpectedVersion)
}

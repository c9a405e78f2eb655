package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/parking-event-driven/internal/errs"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

func validParams() CreateParams {
	return CreateParams{
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

// ============================================
// Create Tests
// ============================================

func TestReservation_Create_Success(t *testing.T) {
	r := New()

	err := r.Create("res-1", validParams())

	require.NoError(t, err)
	assert.Equal(t, "res-1", r.ID)
	assert.Equal(t, "user-1", r.UserID)
	assert.Equal(t, "slot-1", r.SlotID)
	assert.Equal(t, "site-1", r.SiteID)
	assert.Equal(t, StatusCreated, r.Status)
	assert.Equal(t, 1, r.Version)

	events := r.UncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventReservationCreated, events[0].EventType)
}

func TestReservation_Create_AlreadyExists(t *testing.T) {
	r := New()
	require.NoError(t, r.Create("res-1", validParams()))

	err := r.Create("res-1", validParams())

	assert.ErrorIs(t, err, ErrReservationExists)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	assert.Len(t, r.UncommittedEvents(), 1)
}

func TestReservation_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateParams)
		wantErr error
	}{
		{
			name:    "missing user",
			mutate:  func(p *CreateParams) { p.UserID = "" },
			wantErr: ErrMissingUser,
		},
		{
			name:    "missing slot",
			mutate:  func(p *CreateParams) { p.SlotID = "" },
			wantErr: ErrMissingSlot,
		},
		{
			name:    "missing site",
			mutate:  func(p *CreateParams) { p.SiteID = "" },
			wantErr: ErrMissingSite,
		},
		{
			name:    "missing start date",
			mutate:  func(p *CreateParams) { p.StartDate = "" },
			wantErr: ErrMissingTimeWindow,
		},
		{
			name:    "missing offset",
			mutate:  func(p *CreateParams) { p.UTCOffset = "" },
			wantErr: ErrMissingTimeWindow,
		},
		{
			name:    "malformed start",
			mutate:  func(p *CreateParams) { p.StartDate = "01-09-2026" },
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name:    "malformed end time",
			mutate:  func(p *CreateParams) { p.EndTime = "5pm" },
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name: "end before start",
			mutate: func(p *CreateParams) {
				p.StartTime = "17:00"
				p.EndTime = "09:00"
			},
			wantErr: ErrEndBeforeStart,
		},
		{
			name: "end equals start",
			mutate: func(p *CreateParams) {
				p.EndDate = p.StartDate
				p.EndTime = p.StartTime
			},
			wantErr: ErrEndBeforeStart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			p := validParams()
			tt.mutate(&p)

			err := r.Create("res-1", p)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, errs.ErrValidation)
			// Rejected commands never produce events.
			assert.Empty(t, r.UncommittedEvents())
			assert.Equal(t, 0, r.Version)
		})
	}
}

func TestReservation_Create_CrossesMidnight(t *testing.T) {
	r := New()
	p := validParams()
	p.StartDate = "2026-09-01"
	p.StartTime = "22:00"
	p.EndDate = "2026-09-02"
	p.EndTime = "02:00"

	err := r.Create("res-1", p)

	require.NoError(t, err)
}

// ============================================
// UpdateStatus Tests
// ============================================

func created(t *testing.T) *Reservation {
	t.Helper()
	r := New()
	require.NoError(t, r.Create("res-1", validParams()))
	r.ClearUncommittedEvents()
	return r
}

func TestReservation_UpdateStatus_Success(t *testing.T) {
	r := created(t)

	err := r.UpdateStatus(StatusConfirmed)

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Equal(t, 2, r.Version)

	events := r.UncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventReservationStatusUpdated, events[0].EventType)
}

func TestReservation_UpdateStatus_NotFound(t *testing.T) {
	r := New()

	err := r.UpdateStatus(StatusConfirmed)

	assert.ErrorIs(t, err, ErrReservationNotFound)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReservation_UpdateStatus_UnknownStatus(t *testing.T) {
	r := created(t)

	err := r.UpdateStatus("teleported")

	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, r.UncommittedEvents())
}

func TestReservation_UpdateStatus_SameStatusIsNoOp(t *testing.T) {
	r := created(t)

	err := r.UpdateStatus(StatusCreated)

	require.NoError(t, err)
	assert.Empty(t, r.UncommittedEvents())
	assert.Equal(t, 1, r.Version)
}

func TestReservation_UpdateStatus_CancelledIsTerminal(t *testing.T) {
	r := created(t)
	require.NoError(t, r.UpdateStatus(StatusCancelled))

	err := r.UpdateStatus(StatusConfirmed)

	assert.ErrorIs(t, err, ErrReservationClosed)
	assert.Equal(t, StatusCancelled, r.Status)
}

func TestReservation_Lifecycle(t *testing.T) {
	r := created(t)

	require.NoError(t, r.UpdateStatus(StatusConfirmed))
	require.NoError(t, r.UpdateStatus(StatusCheckedIn))
	require.NoError(t, r.UpdateStatus(StatusCheckedOut))

	assert.Equal(t, StatusCheckedOut, r.Status)
	assert.Equal(t, 4, r.Version)
	assert.Len(t, r.UncommittedEvents(), 3)
}

// ============================================
// Replay Tests
// ============================================

func TestReservation_ReplayRebuildsState(t *testing.T) {
	original := New()
	require.NoError(t, original.Create("res-1", validParams()))
	require.NoError(t, original.UpdateStatus(StatusConfirmed))
	require.NoError(t, original.UpdateStatus(StatusCheckedIn))

	replayed := New()
	for i, e := range original.UncommittedEvents() {
		err := replayed.ApplyEvent(store.Event{
			AggregateID: "res-1",
			EventType:   e.EventType,
			Data:        e.Data,
			Version:     i + 1,
		})
		require.NoError(t, err)
		replayed.SetVersion(i + 1)
	}

	assert.Equal(t, original.ID, replayed.ID)
	assert.Equal(t, original.UserID, replayed.UserID)
	assert.Equal(t, original.Status, replayed.Status)
	assert.Equal(t, original.Version, replayed.Version)
}

func TestReservation_ApplyEvent_UnknownType(t *testing.T) {
	r := New()

	err := r.ApplyEvent(store.Event{EventType: "ReservationTeleported", Data: []byte("{}")})

	assert.Error(t, err)
}

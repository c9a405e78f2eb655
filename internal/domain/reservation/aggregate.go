package reservation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/parking-event-driven/internal/domain/aggregate"
	"github.com/example/parking-event-driven/internal/errs"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

const AggregateType = "Reservation"

// Reservation lifecycle statuses.
const (
	StatusCreated    = "created"
	StatusConfirmed  = "confirmed"
	StatusCheckedIn  = "checked_in"
	StatusCheckedOut = "checked_out"
	StatusCancelled  = "cancelled"
)

var (
	ErrReservationNotFound = errs.Mark(errors.New("reservation not found"), errs.ErrNotFound)
	ErrReservationExists   = errs.Mark(errors.New("reservation already exists"), errs.ErrAlreadyExists)

	ErrMissingUser       = errs.Mark(errors.New("user id is required"), errs.ErrValidation)
	ErrMissingSlot       = errs.Mark(errors.New("slot id is required"), errs.ErrValidation)
	ErrMissingSite       = errs.Mark(errors.New("site id is required"), errs.ErrValidation)
	ErrMissingTimeWindow = errs.Mark(errors.New("start and end date/time are required"), errs.ErrValidation)
	ErrInvalidTimeWindow = errs.Mark(errors.New("start or end date/time is malformed"), errs.ErrValidation)
	ErrEndBeforeStart    = errs.Mark(errors.New("end must be after start"), errs.ErrValidation)
	ErrInvalidStatus     = errs.Mark(errors.New("unknown reservation status"), errs.ErrValidation)
	ErrReservationClosed = errs.Mark(errors.New("reservation is cancelled"), errs.ErrValidation)
)

// windowLayout parses the local-date + local-time + UTC-offset triplet.
const windowLayout = "2006-01-02 15:04 -07:00"

var validStatuses = map[string]bool{
	StatusCreated:    true,
	StatusConfirmed:  true,
	StatusCheckedIn:  true,
	StatusCheckedOut: true,
	StatusCancelled:  true,
}

// Reservation represents a reservation aggregate
type Reservation struct {
	aggregate.Base
	UserID      string    `json:"user_id"`
	SlotID      string    `json:"slot_id"`
	SiteID      string    `json:"site_id"`
	StartDate   string    `json:"start_date"`
	StartTime   string    `json:"start_time"`
	EndDate     string    `json:"end_date"`
	EndTime     string    `json:"end_time"`
	UTCOffset   string    `json:"utc_offset"`
	VehicleType string    `json:"vehicle_type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func New() *Reservation {
	return &Reservation{}
}

// CreateParams carries the fields of a reservation-create command.
// VehicleType is optional; everything else is required.
type CreateParams struct {
	UserID      string
	SlotID      string
	SiteID      string
	StartDate   string
	StartTime   string
	EndDate     string
	EndTime     string
	UTCOffset   string
	VehicleType string
}

// Create validates the command and raises ReservationCreated. Validation
// failures never produce events.
func (r *Reservation) Create(id string, p CreateParams) error {
	if r.Version > 0 {
		return ErrReservationExists
	}
	if p.UserID == "" {
		return ErrMissingUser
	}
	if p.SlotID == "" {
		return ErrMissingSlot
	}
	if p.SiteID == "" {
		return ErrMissingSite
	}
	if p.StartDate == "" || p.StartTime == "" || p.EndDate == "" || p.EndTime == "" || p.UTCOffset == "" {
		return ErrMissingTimeWindow
	}

	start, err := parseInstant(p.StartDate, p.StartTime, p.UTCOffset)
	if err != nil {
		return ErrInvalidTimeWindow
	}
	end, err := parseInstant(p.EndDate, p.EndTime, p.UTCOffset)
	if err != nil {
		return ErrInvalidTimeWindow
	}
	if !start.Before(end) {
		return ErrEndBeforeStart
	}

	r.ID = id
	return r.Raise(r, EventReservationCreated, ReservationCreated{
		ReservationID: id,
		UserID:        p.UserID,
		SlotID:        p.SlotID,
		SiteID:        p.SiteID,
		StartDate:     p.StartDate,
		StartTime:     p.StartTime,
		EndDate:       p.EndDate,
		EndTime:       p.EndTime,
		UTCOffset:     p.UTCOffset,
		VehicleType:   p.VehicleType,
		Status:        StatusCreated,
		CreatedAt:     time.Now(),
	})
}

// UpdateStatus raises ReservationStatusUpdated. Setting the current status
// again is a no-op, not an error: no event is produced.
func (r *Reservation) UpdateStatus(status string) error {
	if r.Version == 0 {
		return ErrReservationNotFound
	}
	if !validStatuses[status] {
		return ErrInvalidStatus
	}
	if r.Status == StatusCancelled {
		return ErrReservationClosed
	}
	if r.Status == status {
		return nil
	}

	return r.Raise(r, EventReservationStatusUpdated, ReservationStatusUpdated{
		ReservationID: r.ID,
		Status:        status,
		UpdatedAt:     time.Now(),
	})
}

// ApplyEvent mutates the reservation state from a single event.
func (r *Reservation) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventReservationCreated:
		var data ReservationCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		r.ID = data.ReservationID
		r.UserID = data.UserID
		r.SlotID = data.SlotID
		r.SiteID = data.SiteID
		r.StartDate = data.StartDate
		r.StartTime = data.StartTime
		r.EndDate = data.EndDate
		r.EndTime = data.EndTime
		r.UTCOffset = data.UTCOffset
		r.VehicleType = data.VehicleType
		r.Status = data.Status
		r.CreatedAt = data.CreatedAt
		r.UpdatedAt = data.CreatedAt
	case EventReservationStatusUpdated:
		var data ReservationStatusUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		r.Status = data.Status
		r.UpdatedAt = data.UpdatedAt
	default:
		return fmt.Errorf("unknown reservation event type: %s", event.EventType)
	}
	return nil
}

func parseInstant(date, clock, offset string) (time.Time, error) {
	return time.Parse(windowLayout, fmt.Sprintf("%s %s %s", date, clock, offset))
}

var _ aggregate.Aggregate = (*Reservation)(nil)

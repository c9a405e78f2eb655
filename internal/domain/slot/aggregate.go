package slot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/parking-event-driven/internal/domain/aggregate"
	"github.com/example/parking-event-driven/internal/errs"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

const AggregateType = "Slot"

// StatusAvailable is the status of every created slot. No further
// lifecycle transitions are modeled.
const StatusAvailable = "available"

var (
	ErrSlotNotFound = errs.Mark(errors.New("slot not found"), errs.ErrNotFound)
	ErrSlotExists   = errs.Mark(errors.New("slot already exists"), errs.ErrAlreadyExists)

	ErrMissingName       = errs.Mark(errors.New("slot name is required"), errs.ErrValidation)
	ErrMissingSite       = errs.Mark(errors.New("site id is required"), errs.ErrValidation)
	ErrMissingSlotNumber = errs.Mark(errors.New("slot number is required"), errs.ErrValidation)
)

// Slot represents a parking slot aggregate
type Slot struct {
	aggregate.Base
	Name        string    `json:"name"`
	SiteID      string    `json:"site_id"`
	FloorID     string    `json:"floor_id"`
	ZoneID      string    `json:"zone_id"`
	SlotNumber  string    `json:"slot_number"`
	VehicleType string    `json:"vehicle_type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func New() *Slot {
	return &Slot{}
}

// Create validates the command and raises SlotCreated.
func (s *Slot) Create(id, name, siteID, floorID, zoneID, slotNumber, vehicleType string) error {
	if s.Version > 0 {
		return ErrSlotExists
	}
	if name == "" {
		return ErrMissingName
	}
	if siteID == "" {
		return ErrMissingSite
	}
	if slotNumber == "" {
		return ErrMissingSlotNumber
	}

	s.ID = id
	return s.Raise(s, EventSlotCreated, SlotCreated{
		SlotID:      id,
		Name:        name,
		SiteID:      siteID,
		FloorID:     floorID,
		ZoneID:      zoneID,
		SlotNumber:  slotNumber,
		VehicleType: vehicleType,
		Status:      StatusAvailable,
		CreatedAt:   time.Now(),
	})
}

// ApplyEvent mutates the slot state from a single event.
func (s *Slot) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventSlotCreated:
		var data SlotCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		s.ID = data.SlotID
		s.Name = data.Name
		s.SiteID = data.SiteID
		s.FloorID = data.FloorID
		s.ZoneID = data.ZoneID
		s.SlotNumber = data.SlotNumber
		s.VehicleType = data.VehicleType
		s.Status = data.Status
		s.CreatedAt = data.CreatedAt
	default:
		return fmt.Errorf("unknown slot event type: %s", event.EventType)
	}
	return nil
}

var _ aggregate.Aggregate = (*Slot)(nil)

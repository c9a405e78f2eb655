// Package readmodel defines the read-optimized structures maintained by
// the projections. Each model is owned by exactly one consumer instance
// and derived solely from the event stream.
package readmodel

import (
	"encoding/json"
	"time"
)

// ReservationReadModel is the reservation detail view.
type ReservationReadModel struct {
	ID          string    `json:"id"`
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

// SlotReadModel is the parking slot detail view.
type SlotReadModel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SiteID      string    `json:"site_id"`
	FloorID     string    `json:"floor_id"`
	ZoneID      string    `json:"zone_id"`
	SlotNumber  string    `json:"slot_number"`
	VehicleType string    `json:"vehicle_type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserReadModel is the user account detail view.
type UserReadModel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry is one row of the audit trail. It is keyed by the event id
// carried in the delivered message, so redelivering the same event
// overwrites the same row instead of duplicating it.
type HistoryEntry struct {
	EventID       string          `json:"event_id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Version       int             `json:"version"`
	Data          json.RawMessage `json:"data"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

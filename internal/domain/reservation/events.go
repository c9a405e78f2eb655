package reservation

import "time"

const (
	EventReservationCreated       = "ReservationCreated"
	EventReservationStatusUpdated = "ReservationStatusUpdated"
)

// ReservationCreated is emitted when a new reservation is placed. The time
// window is carried as local-date/local-time/UTC-offset triplets so replay
// stays timezone-correct regardless of where it happens.
type ReservationCreated struct {
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	SlotID        string    `json:"slot_id"`
	SiteID        string    `json:"site_id"`
	StartDate     string    `json:"start_date"`
	StartTime     string    `json:"start_time"`
	EndDate       string    `json:"end_date"`
	EndTime       string    `json:"end_time"`
	UTCOffset     string    `json:"utc_offset"`
	VehicleType   string    `json:"vehicle_type,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReservationStatusUpdated is emitted when a reservation moves through its
// lifecycle. Cancellation is just another status event; there is no hard
// delete.
type ReservationStatusUpdated struct {
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

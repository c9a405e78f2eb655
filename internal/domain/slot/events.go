package slot

import "time"

const (
	EventSlotCreated = "SlotCreated"
)

// SlotCreated is emitted when a new parking slot is registered. A created
// slot is immediately available.
type SlotCreated struct {
	SlotID      string    `json:"slot_id"`
	Name        string    `json:"name"`
	SiteID      string    `json:"site_id"`
	FloorID     string    `json:"floor_id"`
	ZoneID      string    `json:"zone_id"`
	SlotNumber  string    `json:"slot_number"`
	VehicleType string    `json:"vehicle_type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

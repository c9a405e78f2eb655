package command

// Reservation Commands
type CreateReservation struct {
	UserID      string `json:"user_id"`
	SlotID      string `json:"slot_id"`
	SiteID      string `json:"site_id"`
	StartDate   string `json:"start_date"`
	StartTime   string `json:"start_time"`
	EndDate     string `json:"end_date"`
	EndTime     string `json:"end_time"`
	UTCOffset   string `json:"utc_offset"`
	VehicleType string `json:"vehicle_type,omitempty"`
}

type UpdateReservationStatus struct {
	ReservationID string `json:"reservation_id"`
	NewStatus     string `json:"new_status"`
}

// Slot Commands
type CreateSlot struct {
	Name        string `json:"name"`
	SiteID      string `json:"site_id"`
	FloorID     string `json:"floor_id"`
	ZoneID      string `json:"zone_id"`
	SlotNumber  string `json:"slot_number"`
	VehicleType string `json:"vehicle_type"`
}

// User Commands
type CreateUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

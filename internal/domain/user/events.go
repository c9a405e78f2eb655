package user

import "time"

const (
	EventUserCreated = "UserCreated"
)

// UserCreated is emitted when a new user account is registered. A created
// account is immediately active.
type UserCreated struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

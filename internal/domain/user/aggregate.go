package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/parking-event-driven/internal/domain/aggregate"
	"github.com/example/parking-event-driven/internal/errs"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

const AggregateType = "User"

// StatusActive is the status of every created account.
const StatusActive = "active"

var (
	ErrUserNotFound = errs.Mark(errors.New("user not found"), errs.ErrNotFound)
	ErrUserExists   = errs.Mark(errors.New("user already exists"), errs.ErrAlreadyExists)

	ErrInvalidName  = errs.Mark(errors.New("name is required"), errs.ErrValidation)
	ErrInvalidEmail = errs.Mark(errors.New("a valid email is required"), errs.ErrValidation)
)

// User represents a user account aggregate
type User struct {
	aggregate.Base
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func New() *User {
	return &User{}
}

// Create validates the command and raises UserCreated.
func (u *User) Create(id, name, email string) error {
	if u.Version > 0 {
		return ErrUserExists
	}
	if name == "" {
		return ErrInvalidName
	}
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}

	u.ID = id
	return u.Raise(u, EventUserCreated, UserCreated{
		UserID:    id,
		Name:      name,
		Email:     email,
		Status:    StatusActive,
		CreatedAt: time.Now(),
	})
}

// ApplyEvent mutates the user state from a single event.
func (u *User) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventUserCreated:
		var data UserCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.ID = data.UserID
		u.Name = data.Name
		u.Email = data.Email
		u.Status = data.Status
		u.CreatedAt = data.CreatedAt
	default:
		return fmt.Errorf("unknown user event type: %s", event.EventType)
	}
	return nil
}

var _ aggregate.Aggregate = (*User)(nil)

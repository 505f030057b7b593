package actor

import (
	"time"

	"github.com/google/uuid"
)

// Actor - пользователь системы; учётные записи ведутся снаружи.
type Actor struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	Email       string    `json:"email" db:"email"`
	IsSuperuser bool      `json:"is_superuser" db:"is_superuser"`
	Profile     *Profile  `json:"profile,omitempty"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Profile может отсутствовать, это означает "не руководитель".
type Profile struct {
	IsManager   bool   `json:"is_manager" db:"is_manager"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`
}

func (a *Actor) PhoneNumber() string {
	if a == nil || a.Profile == nil {
		return ""
	}
	return a.Profile.PhoneNumber
}

func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}
	c := *a
	if a.Profile != nil {
		p := *a.Profile
		c.Profile = &p
	}
	return &c
}

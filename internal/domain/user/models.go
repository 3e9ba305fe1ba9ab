package user

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is the internal identity, keyed by the external identity provider's
// UID. Every other entity in the system hangs off a user.
type User struct {
	ID                string     `json:"id"`
	FirebaseUID       string     `json:"-"`
	Email             string     `json:"email"`
	DisplayName       string     `json:"displayName"`
	PhotoURL          string     `json:"photoUrl"`
	PreferredCurrency string     `json:"preferredCurrency"`
	IsEmailVerified   bool       `json:"isEmailVerified"`
	LastLogin         *time.Time `json:"lastLogin"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// UpsertParams carries profile fields synced from the identity provider.
// Nil pointer fields keep their stored value on update.
type UpsertParams struct {
	FirebaseUID       string
	Email             string
	DisplayName       *string
	PhotoURL          *string
	PreferredCurrency *string
	IsEmailVerified   bool
	LastLogin         *time.Time
}

// Validate checks the minimal fields required to provision a user.
func (p UpsertParams) Validate() error {
	if p.FirebaseUID == "" {
		return errors.New("firebase UID is required")
	}
	if p.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

package provider

import (
	"errors"
	"fmt"
	"time"
)

// Connection status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusError    = "error"
)

// How long a stored access token is considered valid after (re-)linking.
const TokenLifetime = 30 * 24 * time.Hour

// Domain errors
var (
	ErrProviderNotFound   = errors.New("provider not found")
	ErrTokenNotFound      = errors.New("provider token not found")
	ErrConnectionNotFound = errors.New("provider connection not found")

	// ErrCorruptCredential means a stored token failed decryption (tampered
	// ciphertext, wrong key). It is fatal: the user must re-link the provider.
	ErrCorruptCredential = errors.New("stored provider credential is corrupt")

	// ErrSyncCursorInvalid means the provider rejected our cursor twice in a
	// row, including once after a reset to a full resync.
	ErrSyncCursorInvalid = errors.New("transaction sync cursor rejected by provider")
)

// Error is a failure reported by the external aggregation API, carried
// through unmodified so callers can inspect the provider's own code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
}

// Provider is a registered external data source.
type Provider struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ProviderType string    `json:"providerType"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Connection links one user to one provider and carries the resumable sync
// cursor. The cursor is mutated only by the sync orchestrator.
type Connection struct {
	ID                 int64      `json:"id"`
	UserID             string     `json:"userId"`
	ProviderID         int64      `json:"providerId"`
	Cursor             Cursor     `json:"-"`
	Status             string     `json:"status"`
	LastSuccessfulSync *time.Time `json:"lastSuccessfulSync"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Token holds encrypted credential material for a (user, provider) pair.
// At most one live row exists per pair.
type Token struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"userId"`
	ProviderID int64     `json:"providerId"`
	Ciphertext string    `json:"-"`
	ItemID     string    `json:"itemId"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

package provider

import (
	"context"
	"time"
)

// Repository defines data access for registered providers.
type Repository interface {
	// EnsureByName returns the provider with the given name, creating it
	// (with the supplied metadata) if it does not exist yet.
	EnsureByName(ctx context.Context, name, description, providerType string) (*Provider, error)

	// GetByName retrieves a provider by its unique name.
	GetByName(ctx context.Context, name string) (*Provider, error)
}

// UpsertTokenParams carries the fields stored for a provider token.
type UpsertTokenParams struct {
	UserID     string
	ProviderID int64
	Ciphertext string
	ItemID     string
	ExpiresAt  time.Time
}

// TokenRepository defines data access for encrypted provider tokens.
type TokenRepository interface {
	// Upsert stores the token for (user, provider), replacing any prior row.
	Upsert(ctx context.Context, params UpsertTokenParams) (*Token, error)

	// GetByUserAndProvider retrieves the live token for a (user, provider)
	// pair, or ErrTokenNotFound.
	GetByUserAndProvider(ctx context.Context, userID string, providerID int64) (*Token, error)

	// Delete removes the token for a (user, provider) pair.
	Delete(ctx context.Context, userID string, providerID int64) error
}

// ConnectionRepository defines data access for user-provider connections.
type ConnectionRepository interface {
	// GetOrCreateForUpdate resolves the connection for (user, provider),
	// creating it with no cursor if absent, and locks the row for the
	// duration of the surrounding transaction so concurrent syncs for the
	// same pair serialize.
	GetOrCreateForUpdate(ctx context.Context, userID string, providerID int64) (*Connection, error)

	// UpdateCursor persists the cursor and last-successful-sync timestamp.
	UpdateCursor(ctx context.Context, connectionID int64, cursor Cursor, syncedAt time.Time) error

	// ResetCursor clears the stored cursor, forcing the next sync to be a
	// full resync.
	ResetCursor(ctx context.Context, connectionID int64) error

	// Delete removes the connection (explicit unlink).
	Delete(ctx context.Context, userID string, providerID int64) error

	// ListActiveUserIDs returns the IDs of users holding an active
	// connection to the given provider, for scheduled refreshes.
	ListActiveUserIDs(ctx context.Context, providerID int64) ([]string, error)
}

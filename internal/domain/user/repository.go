package user

import "context"

// Repository defines the interface for user data access.
// Implemented in the infrastructure layer.
type Repository interface {
	// GetByID retrieves a user by internal ID, or ErrUserNotFound.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByFirebaseUID retrieves a user by identity-provider UID, or
	// ErrUserNotFound.
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)

	// Upsert creates the user on first login and refreshes profile fields
	// on subsequent ones, keyed by firebase UID.
	Upsert(ctx context.Context, params UpsertParams) (*User, error)
}

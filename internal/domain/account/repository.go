package account

import "context"

// Repository defines the interface for account data access.
// This interface is defined in the domain layer, but implemented in the
// infrastructure layer.
type Repository interface {
	// Create inserts a new mirrored account and returns it with its ID.
	Create(ctx context.Context, params CreateParams) (*Account, error)

	// GetByID retrieves an account by its local ID.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// ListByUserID retrieves all accounts for a user, active or not.
	ListByUserID(ctx context.Context, userID string) ([]*Account, error)

	// GetByExternalID resolves a user's account by its provider-side ID.
	// Returns ErrAccountNotFound when no row matches.
	GetByExternalID(ctx context.Context, userID, externalID string) (*Account, error)

	// Update refreshes the mutable fields of an account and bumps its
	// updated timestamp; the row becomes (or stays) active.
	Update(ctx context.Context, id int64, params UpdateParams) error

	// Deactivate marks an account inactive without deleting it.
	Deactivate(ctx context.Context, id int64) error
}

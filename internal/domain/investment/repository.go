package investment

import "context"

// Repository defines the interface for investment data access.
type Repository interface {
	// Create inserts a new holding row.
	Create(ctx context.Context, params CreateParams) (*Investment, error)

	// ListByUserID retrieves all holdings for a user.
	ListByUserID(ctx context.Context, userID string) ([]*Investment, error)

	// Update refreshes quantity, cost basis and valuation for a holding.
	Update(ctx context.Context, id int64, params UpdateParams) error

	// Delete removes a holding permanently.
	Delete(ctx context.Context, id int64) error
}

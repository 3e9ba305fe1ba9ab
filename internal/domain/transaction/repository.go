package transaction

import (
	"context"
	"time"
)

// ListFilter narrows a transaction listing.
type ListFilter struct {
	AccountID *int64
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Repository defines the interface for transaction data access.
type Repository interface {
	// Upsert inserts the transaction or, on natural-key conflict, refreshes
	// its mutable fields. Returns whether a new row was created.
	Upsert(ctx context.Context, params UpsertParams) (created bool, err error)

	// DeleteByExternalID removes the user's transaction matching the
	// provider-side ID. Deleting an absent row is a no-op.
	DeleteByExternalID(ctx context.Context, userID, externalID string) error

	// ListByUserID retrieves transactions for a user, newest first.
	ListByUserID(ctx context.Context, userID string, filter ListFilter) ([]*Transaction, error)

	// CountByUserID returns the number of transactions matching the filter.
	CountByUserID(ctx context.Context, userID string, filter ListFilter) (int64, error)
}

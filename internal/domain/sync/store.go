package sync

import (
	"context"

	"finboard/internal/domain/account"
	"finboard/internal/domain/investment"
	"finboard/internal/domain/provider"
	"finboard/internal/domain/transaction"
)

// Repositories bundles the transaction-scoped data access a sync works with.
// Inside Within, every repository runs on the same database transaction.
type Repositories struct {
	Accounts     account.Repository
	Investments  investment.Repository
	Transactions transaction.Repository
	Connections  provider.ConnectionRepository
}

// Store runs a function inside one database transaction. The transaction
// commits if fn returns nil and rolls back otherwise, so a failed sync leaves
// both the mirrored data and the cursor exactly as they were.
type Store interface {
	Within(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// PartitionEnsurer creates the monthly storage buckets covering a set of
// transaction dates. Implementations run outside the sync transaction:
// partitions, once created, stay created even when the sync rolls back.
type PartitionEnsurer interface {
	EnsureMonths(ctx context.Context, months []transaction.Month) error
}

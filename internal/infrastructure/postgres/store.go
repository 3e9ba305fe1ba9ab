package postgres

import (
	"context"
	"fmt"
	"log"

	"finboard/internal/domain/sync"
)

// Store implements sync.Store on a postgres transaction. The repositories
// handed to the callback all run on that one transaction, so a sync's
// reconciliation and cursor advance commit or roll back as a unit.
type Store struct {
	db *DB
}

// NewStore creates a sync store over the pool.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Within runs fn inside one transaction, committing on nil and rolling back
// otherwise.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, repos sync.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	repos := sync.Repositories{
		Accounts:     NewAccountRepository(tx),
		Investments:  NewInvestmentRepository(tx),
		Transactions: NewTransactionRepository(tx),
		Connections:  NewConnectionRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("Failed to roll back sync transaction: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync transaction: %w", err)
	}
	return nil
}

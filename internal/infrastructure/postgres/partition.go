package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"finboard/internal/domain/transaction"
)

// duplicateTable is the postgres error raised when two sessions race to
// create the same partition and one loses.
const duplicateTable = "42P07"

// PartitionManager lazily creates the monthly partitions of the transactions
// table. It runs DDL on the pool, never inside a data transaction: partition
// creation must not be rolled back with a failed sync, and CREATE TABLE takes
// locks that would deadlock against concurrent syncs if held for a whole
// transaction.
type PartitionManager struct {
	db *DB
}

// NewPartitionManager creates a partition manager over the pool.
func NewPartitionManager(db *DB) *PartitionManager {
	return &PartitionManager{db: db}
}

// EnsureMonths creates any missing partitions covering the given months.
// Creation is idempotent; losing a creation race to another session is
// treated as success.
func (m *PartitionManager) EnsureMonths(ctx context.Context, months []transaction.Month) error {
	for _, month := range months {
		if err := m.ensureMonth(ctx, month); err != nil {
			return err
		}
	}
	return nil
}

func (m *PartitionManager) ensureMonth(ctx context.Context, month transaction.Month) error {
	name := fmt.Sprintf("transactions_%04d_%02d", month.Year, int(month.Month))
	from := month.Start().Format("2006-01-02")
	to := month.Next().Start().Format("2006-01-02")

	// DDL takes no bind parameters; the bounds are formatted dates derived
	// from integers, not user input.
	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s PARTITION OF transactions FOR VALUES FROM ('%s') TO ('%s')`,
		name, from, to,
	)

	if _, err := m.db.ExecContext(ctx, query); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == duplicateTable {
			log.Printf("Partition %s created concurrently, continuing", name)
			return nil
		}
		return fmt.Errorf("failed to create partition %s: %w", name, err)
	}
	return nil
}

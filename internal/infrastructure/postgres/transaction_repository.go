package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"finboard/internal/domain/transaction"
)

// TransactionRepository implements the transaction.Repository interface for
// PostgreSQL. The transactions table is range-partitioned by transaction
// date; callers must ensure the covering partitions exist before writing.
type TransactionRepository struct {
	db Querier
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db Querier) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, account_id, transaction_source_id, source, amount, transaction_date,
	       authorized_date, description, category, transaction_type, pending, is_manual, metadata,
	       created_at, updated_at`

// Upsert inserts the transaction or, on natural-key conflict, refreshes its
// mutable fields. xmax = 0 distinguishes a fresh insert from a conflict
// update.
func (r *TransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) (bool, error) {
	if err := params.Validate(); err != nil {
		return false, fmt.Errorf("invalid transaction params: %w", err)
	}

	metadata, err := marshalMetadata(params.Metadata)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO transactions (user_id, account_id, transaction_source_id, source, amount, transaction_date,
		                          authorized_date, description, category, transaction_type, pending, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, account_id, transaction_source_id, transaction_date) DO UPDATE SET
			amount = EXCLUDED.amount,
			authorized_date = EXCLUDED.authorized_date,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			transaction_type = EXCLUDED.transaction_type,
			pending = EXCLUDED.pending,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`

	var created bool
	err = r.db.QueryRowContext(
		ctx, query,
		params.UserID, params.AccountID, params.ExternalID, params.Source,
		params.Amount, params.Date, nullTime(params.AuthorizedDate), params.Description,
		pq.Array(transaction.NormalizeCategory(params.Category)),
		nullString(params.Type), params.Pending, metadata,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert transaction: %w", err)
	}

	return created, nil
}

// DeleteByExternalID removes the user's transaction matching the
// provider-side ID. Deleting an absent row is a no-op.
func (r *TransactionRepository) DeleteByExternalID(ctx context.Context, userID, externalID string) error {
	query := `DELETE FROM transactions WHERE user_id = $1 AND transaction_source_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, externalID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

// ListByUserID retrieves transactions for a user, newest first
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
	`
	args := []any{userID}
	query, args = applyFilter(query, args, filter)

	query += " ORDER BY transaction_date DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// CountByUserID returns the number of transactions matching the filter
func (r *TransactionRepository) CountByUserID(ctx context.Context, userID string, filter transaction.ListFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = $1`
	args := []any{userID}
	query, args = applyFilter(query, args, filter)

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func applyFilter(query string, args []any, filter transaction.ListFilter) (string, []any) {
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		query += fmt.Sprintf(" AND account_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND transaction_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND transaction_date <= $%d", len(args))
	}
	return query, args
}

func scanTransaction(rows *sql.Rows) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var authorizedDate sql.NullTime
	var txType sql.NullString
	var category pq.StringArray
	var metadata []byte

	err := rows.Scan(
		&tx.ID, &tx.UserID, &tx.AccountID, &tx.ExternalID, &tx.Source,
		&tx.Amount, &tx.Date, &authorizedDate, &tx.Description,
		&category, &txType, &tx.Pending, &tx.IsManual, &metadata,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Category = transaction.NormalizeCategory(category)
	if authorizedDate.Valid {
		tx.AuthorizedDate = &authorizedDate.Time
	}
	if txType.Valid {
		tx.Type = txType.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	return &tx, nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}
	return raw, nil
}

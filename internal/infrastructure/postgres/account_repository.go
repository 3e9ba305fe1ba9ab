package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finboard/internal/domain/account"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	db Querier
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, user_id, external_account_id, source, name, official_name, account_type, subtype,
	       currency_code, balance, available_balance, credit_limit, mask, last_four, is_active, is_manual,
	       created_at, updated_at`

// Create inserts a new mirrored account
func (r *AccountRepository) Create(ctx context.Context, params account.CreateParams) (*account.Account, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO accounts (user_id, external_account_id, source, name, official_name, account_type, subtype,
		                      currency_code, balance, available_balance, credit_limit, mask, last_four)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + accountColumns + `
	`

	row := r.db.QueryRowContext(
		ctx, query,
		params.UserID, params.ExternalID, params.Source, params.Name, nullString(params.OfficialName),
		params.AccountType, nullString(params.Subtype), params.CurrencyCode, params.Balance,
		nullFloat64(params.AvailableBalance), nullFloat64(params.CreditLimit),
		nullString(params.Mask), nullString(account.LastFourOf(params.Mask)),
	)
	return scanAccount(row)
}

// GetByID retrieves an account by its local ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// ListByUserID retrieves all accounts for a user, active or not
func (r *AccountRepository) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// GetByExternalID resolves a user's account by its provider-side ID
func (r *AccountRepository) GetByExternalID(ctx context.Context, userID, externalID string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND external_account_id = $2
	`
	return scanAccount(r.db.QueryRowContext(ctx, query, userID, externalID))
}

// Update refreshes the mutable fields of an account. The row becomes (or
// stays) active: an account present in the provider snapshot is live.
func (r *AccountRepository) Update(ctx context.Context, id int64, params account.UpdateParams) error {
	query := `
		UPDATE accounts
		SET external_account_id = $2, name = $3, official_name = $4, account_type = $5, subtype = $6,
		    currency_code = $7, balance = $8, available_balance = $9, credit_limit = $10,
		    mask = $11, last_four = $12, is_active = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx, query,
		id, params.ExternalID, params.Name, nullString(params.OfficialName),
		params.AccountType, nullString(params.Subtype), params.CurrencyCode, params.Balance,
		nullFloat64(params.AvailableBalance), nullFloat64(params.CreditLimit),
		nullString(params.Mask), nullString(account.LastFourOf(params.Mask)),
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check account update: %w", err)
	}
	if rows == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

// Deactivate marks an account inactive without deleting it
func (r *AccountRepository) Deactivate(ctx context.Context, id int64) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check account deactivation: %w", err)
	}
	if rows == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccountFrom(s scanner) (*account.Account, error) {
	var acc account.Account
	var externalID, officialName, subtype, mask, lastFour sql.NullString
	var availableBalance, creditLimit sql.NullFloat64

	err := s.Scan(
		&acc.ID, &acc.UserID, &externalID, &acc.Source, &acc.Name, &officialName,
		&acc.AccountType, &subtype, &acc.CurrencyCode, &acc.Balance,
		&availableBalance, &creditLimit, &mask, &lastFour,
		&acc.IsActive, &acc.IsManual, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if externalID.Valid {
		acc.ExternalID = externalID.String
	}
	if officialName.Valid {
		acc.OfficialName = officialName.String
	}
	if subtype.Valid {
		acc.Subtype = subtype.String
	}
	if mask.Valid {
		acc.Mask = mask.String
	}
	if lastFour.Valid {
		acc.LastFour = lastFour.String
	}
	if availableBalance.Valid {
		acc.AvailableBalance = &availableBalance.Float64
	}
	if creditLimit.Valid {
		acc.CreditLimit = &creditLimit.Float64
	}

	return &acc, nil
}

func scanAccount(row Row) (*account.Account, error) {
	acc, err := scanAccountFrom(row)
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

func scanAccountRow(rows *sql.Rows) (*account.Account, error) {
	acc, err := scanAccountFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return acc, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finboard/internal/domain/provider"
)

// TokenRepository implements the provider.TokenRepository interface for
// PostgreSQL. Rows hold ciphertext only; encryption happens in the domain
// token store.
type TokenRepository struct {
	db Querier
}

// NewTokenRepository creates a new PostgreSQL token repository
func NewTokenRepository(db Querier) *TokenRepository {
	return &TokenRepository{db: db}
}

// Upsert stores the token for (user, provider), replacing any prior row
func (r *TokenRepository) Upsert(ctx context.Context, params provider.UpsertTokenParams) (*provider.Token, error) {
	query := `
		INSERT INTO provider_tokens (user_id, provider_id, encrypted_token, item_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, provider_id) DO UPDATE SET
			encrypted_token = EXCLUDED.encrypted_token,
			item_id = EXCLUDED.item_id,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING id, user_id, provider_id, encrypted_token, item_id, expires_at, created_at, updated_at
	`

	row := r.db.QueryRowContext(
		ctx, query,
		params.UserID, params.ProviderID, params.Ciphertext, nullString(params.ItemID), params.ExpiresAt,
	)
	return scanToken(row)
}

// GetByUserAndProvider retrieves the live token for a (user, provider) pair
func (r *TokenRepository) GetByUserAndProvider(ctx context.Context, userID string, providerID int64) (*provider.Token, error) {
	query := `
		SELECT id, user_id, provider_id, encrypted_token, item_id, expires_at, created_at, updated_at
		FROM provider_tokens
		WHERE user_id = $1 AND provider_id = $2
	`
	return scanToken(r.db.QueryRowContext(ctx, query, userID, providerID))
}

// Delete removes the token for a (user, provider) pair
func (r *TokenRepository) Delete(ctx context.Context, userID string, providerID int64) error {
	query := `DELETE FROM provider_tokens WHERE user_id = $1 AND provider_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, providerID); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

func scanToken(row Row) (*provider.Token, error) {
	var t provider.Token
	var itemID sql.NullString

	err := row.Scan(
		&t.ID, &t.UserID, &t.ProviderID, &t.Ciphertext, &itemID,
		&t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, provider.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if itemID.Valid {
		t.ItemID = itemID.String
	}

	return &t, nil
}

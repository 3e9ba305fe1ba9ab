package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finboard/internal/domain/provider"
)

// ConnectionRepository implements the provider.ConnectionRepository interface
// for PostgreSQL.
type ConnectionRepository struct {
	db Querier
}

// NewConnectionRepository creates a new PostgreSQL connection repository
func NewConnectionRepository(db Querier) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// GetOrCreateForUpdate resolves the connection for (user, provider), creating
// it if absent, and locks the row. Run inside a transaction: the FOR UPDATE
// lock is what serializes concurrent syncs for the same pair.
func (r *ConnectionRepository) GetOrCreateForUpdate(ctx context.Context, userID string, providerID int64) (*provider.Connection, error) {
	// The insert takes no lock on conflict, so the select below locks in
	// either case.
	insert := `
		INSERT INTO user_provider_connections (user_id, provider_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, provider_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, userID, providerID, provider.StatusActive); err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	query := `
		SELECT id, user_id, provider_id, sync_cursor, status, last_successful_sync, created_at, updated_at
		FROM user_provider_connections
		WHERE user_id = $1 AND provider_id = $2
		FOR UPDATE
	`
	return scanConnection(r.db.QueryRowContext(ctx, query, userID, providerID))
}

// UpdateCursor persists the cursor and last-successful-sync timestamp
func (r *ConnectionRepository) UpdateCursor(ctx context.Context, connectionID int64, cursor provider.Cursor, syncedAt time.Time) error {
	query := `
		UPDATE user_provider_connections
		SET sync_cursor = $2, status = $3, last_successful_sync = $4, updated_at = NOW()
		WHERE id = $1
	`

	var token sql.NullString
	if raw, ok := cursor.Token(); ok {
		token = sql.NullString{String: raw, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query, connectionID, token, provider.StatusActive, syncedAt)
	if err != nil {
		return fmt.Errorf("failed to update cursor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cursor update: %w", err)
	}
	if rows == 0 {
		return provider.ErrConnectionNotFound
	}
	return nil
}

// ResetCursor clears the stored cursor, forcing the next sync to be full
func (r *ConnectionRepository) ResetCursor(ctx context.Context, connectionID int64) error {
	query := `
		UPDATE user_provider_connections
		SET sync_cursor = NULL, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, connectionID); err != nil {
		return fmt.Errorf("failed to reset cursor: %w", err)
	}
	return nil
}

// Delete removes the connection (explicit unlink)
func (r *ConnectionRepository) Delete(ctx context.Context, userID string, providerID int64) error {
	query := `DELETE FROM user_provider_connections WHERE user_id = $1 AND provider_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, providerID); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return nil
}

// ListActiveUserIDs returns users holding an active connection to the provider
func (r *ConnectionRepository) ListActiveUserIDs(ctx context.Context, providerID int64) ([]string, error) {
	query := `
		SELECT user_id
		FROM user_provider_connections
		WHERE provider_id = $1 AND status = $2
		ORDER BY last_successful_sync ASC NULLS FIRST
	`

	rows, err := r.db.QueryContext(ctx, query, providerID, provider.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		userIDs = append(userIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return userIDs, nil
}

func scanConnection(row Row) (*provider.Connection, error) {
	var c provider.Connection
	var cursor sql.NullString
	var lastSync sql.NullTime

	err := row.Scan(
		&c.ID, &c.UserID, &c.ProviderID, &cursor, &c.Status,
		&lastSync, &c.CreatedAt, &c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, provider.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	if cursor.Valid {
		c.Cursor = provider.NewCursor(cursor.String)
	}
	if lastSync.Valid {
		c.LastSuccessfulSync = &lastSync.Time
	}

	return &c, nil
}

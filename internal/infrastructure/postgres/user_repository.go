package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"finboard/internal/domain/user"
)

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	db Querier
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, firebase_uid, email, display_name, photo_url, preferred_currency,
	       is_email_verified, last_login, created_at, updated_at`

// GetByID retrieves a user by internal ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByFirebaseUID retrieves a user by identity-provider UID
func (r *UserRepository) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE firebase_uid = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, firebaseUID))
}

// Upsert creates the user on first login, keyed by firebase UID. On conflict
// the profile fields are refreshed; nil params keep the stored value.
func (r *UserRepository) Upsert(ctx context.Context, params user.UpsertParams) (*user.User, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid user params: %w", err)
	}

	query := `
		INSERT INTO users (id, firebase_uid, email, display_name, photo_url, preferred_currency, is_email_verified, last_login)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, 'USD'), $7, $8)
		ON CONFLICT (firebase_uid) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = COALESCE($4, users.display_name),
			photo_url = COALESCE($5, users.photo_url),
			preferred_currency = COALESCE($6, users.preferred_currency),
			is_email_verified = EXCLUDED.is_email_verified,
			last_login = COALESCE($8, users.last_login),
			updated_at = NOW()
		RETURNING ` + userColumns + `
	`

	row := r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.FirebaseUID, params.Email,
		params.DisplayName, params.PhotoURL, params.PreferredCurrency,
		params.IsEmailVerified, nullTime(params.LastLogin),
	)
	return r.scanUser(row)
}

func (r *UserRepository) scanUser(row Row) (*user.User, error) {
	var u user.User
	var displayName, photoURL sql.NullString
	var lastLogin sql.NullTime

	err := row.Scan(
		&u.ID, &u.FirebaseUID, &u.Email, &displayName, &photoURL,
		&u.PreferredCurrency, &u.IsEmailVerified, &lastLogin,
		&u.CreatedAt, &u.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if displayName.Valid {
		u.DisplayName = displayName.String
	}
	if photoURL.Valid {
		u.PhotoURL = photoURL.String
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}

	return &u, nil
}

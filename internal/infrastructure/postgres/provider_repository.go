package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finboard/internal/domain/provider"
)

// ProviderRepository implements the provider.Repository interface for PostgreSQL
type ProviderRepository struct {
	db Querier
}

// NewProviderRepository creates a new PostgreSQL provider repository
func NewProviderRepository(db Querier) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// EnsureByName returns the provider with the given name, creating it if absent.
func (r *ProviderRepository) EnsureByName(ctx context.Context, name, description, providerType string) (*provider.Provider, error) {
	query := `
		INSERT INTO data_providers (name, description, provider_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description, provider_type, is_active, created_at
	`

	var p provider.Provider
	var desc sql.NullString

	err := r.db.QueryRowContext(ctx, query, name, nullString(description), providerType).Scan(
		&p.ID, &p.Name, &desc, &p.ProviderType, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure provider: %w", err)
	}

	if desc.Valid {
		p.Description = desc.String
	}

	return &p, nil
}

// GetByName retrieves a provider by its unique name
func (r *ProviderRepository) GetByName(ctx context.Context, name string) (*provider.Provider, error) {
	query := `
		SELECT id, name, description, provider_type, is_active, created_at
		FROM data_providers
		WHERE name = $1
	`

	var p provider.Provider
	var desc sql.NullString

	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&p.ID, &p.Name, &desc, &p.ProviderType, &p.IsActive, &p.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, provider.ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	if desc.Valid {
		p.Description = desc.String
	}

	return &p, nil
}

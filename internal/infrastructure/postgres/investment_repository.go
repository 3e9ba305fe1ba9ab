package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finboard/internal/domain/investment"
)

// InvestmentRepository implements the investment.Repository interface for PostgreSQL
type InvestmentRepository struct {
	db Querier
}

// NewInvestmentRepository creates a new PostgreSQL investment repository
func NewInvestmentRepository(db Querier) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

const investmentColumns = `id, user_id, account_id, holding_id, security_id, security_name, security_type,
	       ticker_symbol, quantity, cost_basis, market_value, created_at, updated_at`

// Create inserts a new holding row
func (r *InvestmentRepository) Create(ctx context.Context, params investment.CreateParams) (*investment.Investment, error) {
	query := `
		INSERT INTO investments (user_id, account_id, holding_id, security_id, security_name, security_type,
		                         ticker_symbol, quantity, cost_basis, market_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + investmentColumns + `
	`

	row := r.db.QueryRowContext(
		ctx, query,
		params.UserID, params.AccountID, params.HoldingID, params.SecurityID,
		params.SecurityName, nullString(params.SecurityType), nullString(params.TickerSymbol),
		params.Quantity, params.CostBasis, params.MarketValue,
	)
	return scanInvestment(row)
}

// ListByUserID retrieves all holdings for a user
func (r *InvestmentRepository) ListByUserID(ctx context.Context, userID string) ([]*investment.Investment, error) {
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE user_id = $1
		ORDER BY account_id, security_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	var investments []*investment.Investment
	for rows.Next() {
		inv, err := scanInvestmentFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate investments: %w", err)
	}
	return investments, nil
}

// Update refreshes quantity, cost basis and valuation for a holding
func (r *InvestmentRepository) Update(ctx context.Context, id int64, params investment.UpdateParams) error {
	query := `
		UPDATE investments
		SET security_name = $2, security_type = $3, ticker_symbol = $4,
		    quantity = $5, cost_basis = $6, market_value = $7, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx, query,
		id, params.SecurityName, nullString(params.SecurityType), nullString(params.TickerSymbol),
		params.Quantity, params.CostBasis, params.MarketValue,
	)
	if err != nil {
		return fmt.Errorf("failed to update investment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check investment update: %w", err)
	}
	if rows == 0 {
		return investment.ErrInvestmentNotFound
	}
	return nil
}

// Delete removes a holding permanently
func (r *InvestmentRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM investments WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}
	return nil
}

func scanInvestmentFrom(s scanner) (*investment.Investment, error) {
	var inv investment.Investment
	var securityType, tickerSymbol sql.NullString

	err := s.Scan(
		&inv.ID, &inv.UserID, &inv.AccountID, &inv.HoldingID, &inv.SecurityID,
		&inv.SecurityName, &securityType, &tickerSymbol,
		&inv.Quantity, &inv.CostBasis, &inv.MarketValue,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if securityType.Valid {
		inv.SecurityType = securityType.String
	}
	if tickerSymbol.Valid {
		inv.TickerSymbol = tickerSymbol.String
	}

	return &inv, nil
}

func scanInvestment(row Row) (*investment.Investment, error) {
	inv, err := scanInvestmentFrom(row)
	if err == sql.ErrNoRows {
		return nil, investment.ErrInvestmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	return inv, nil
}

package investment

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvestmentNotFound = errors.New("investment not found")

// Investment mirrors one holding reported by the provider, keyed by
// (AccountID, SecurityID, HoldingID). Unlike accounts, holdings have no
// dependent history: a position that disappears from the snapshot is deleted.
type Investment struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	AccountID    int64     `json:"accountId"`
	HoldingID    string    `json:"holdingId"`
	SecurityID   string    `json:"securityId"`
	SecurityName string    `json:"securityName"`
	SecurityType string    `json:"securityType"`
	TickerSymbol string    `json:"tickerSymbol"`
	Quantity     float64   `json:"quantity"`
	CostBasis    float64   `json:"costBasis"`
	MarketValue  float64   `json:"marketValue"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Key returns the natural key used to match holdings across syncs.
func (i *Investment) Key() string {
	return Key(i.AccountID, i.SecurityID, i.HoldingID)
}

// Key builds the (account, security, holding) lookup key.
func Key(accountID int64, securityID, holdingID string) string {
	return fmt.Sprintf("%d-%s-%s", accountID, securityID, holdingID)
}

// CreateParams contains the fields written when inserting a holding.
type CreateParams struct {
	UserID       string
	AccountID    int64
	HoldingID    string
	SecurityID   string
	SecurityName string
	SecurityType string
	TickerSymbol string
	Quantity     float64
	CostBasis    float64
	MarketValue  float64
}

// UpdateParams contains the fields refreshed for an existing holding.
type UpdateParams struct {
	SecurityName string
	SecurityType string
	TickerSymbol string
	Quantity     float64
	CostBasis    float64
	MarketValue  float64
}

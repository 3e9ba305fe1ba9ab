package account

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// Account is the local mirror of an external financial account. The natural
// key is (ExternalID, Source); accounts that disappear from the provider
// snapshot are deactivated, never deleted, because transactions and
// investments keep pointing at them.
type Account struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"userId"`
	ExternalID       string    `json:"externalId"`
	Source           string    `json:"source"`
	Name             string    `json:"name"`
	OfficialName     string    `json:"officialName"`
	AccountType      string    `json:"accountType"`
	Subtype          string    `json:"subtype"`
	CurrencyCode     string    `json:"currencyCode"`
	Balance          float64   `json:"balance"`
	AvailableBalance *float64  `json:"availableBalance"`
	CreditLimit      *float64  `json:"creditLimit"`
	Mask             string    `json:"mask"`
	LastFour         string    `json:"lastFour"`
	IsActive         bool      `json:"isActive"`
	IsManual         bool      `json:"isManual"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CreateParams contains the fields written when inserting a mirrored account.
type CreateParams struct {
	UserID           string
	ExternalID       string
	Source           string
	Name             string
	OfficialName     string
	AccountType      string
	Subtype          string
	CurrencyCode     string
	Balance          float64
	AvailableBalance *float64
	CreditLimit      *float64
	Mask             string
}

// Validate checks the minimal invariants for an insert.
func (p CreateParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if p.ExternalID == "" {
		return errors.New("external account ID is required")
	}
	if p.Name == "" {
		return errors.New("account name is required")
	}
	if p.AccountType == "" {
		return errors.New("account type is required")
	}
	return nil
}

// UpdateParams contains the mutable fields refreshed on every sync. The
// external ID is included because a provider can rotate it for an account we
// matched by the fallback heuristic.
type UpdateParams struct {
	ExternalID       string
	Name             string
	OfficialName     string
	AccountType      string
	Subtype          string
	CurrencyCode     string
	Balance          float64
	AvailableBalance *float64
	CreditLimit      *float64
	Mask             string
}

// LastFourOf derives the stored last-four digits from a mask.
func LastFourOf(mask string) string {
	if len(mask) <= 4 {
		return mask
	}
	return mask[len(mask)-4:]
}

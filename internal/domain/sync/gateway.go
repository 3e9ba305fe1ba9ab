package sync

import (
	"context"
	"time"

	"finboard/internal/domain/provider"
)

// SourceAccount is one account as reported by the provider snapshot.
type SourceAccount struct {
	ExternalID       string
	Name             string
	OfficialName     string
	Type             string
	Subtype          string
	Mask             string
	CurrencyCode     string
	Balance          float64
	AvailableBalance *float64
	CreditLimit      *float64
}

// SourceHolding is one investment position as reported by the provider,
// already joined with its security metadata.
type SourceHolding struct {
	AccountExternalID string
	SecurityID        string
	HoldingID         string
	SecurityName      string
	SecurityType      string
	TickerSymbol      string
	Quantity          float64
	CostBasis         float64
	MarketValue       float64
}

// SourceTransaction is one added or modified transaction from the delta feed.
type SourceTransaction struct {
	ExternalID        string
	AccountExternalID string
	Amount            float64
	Date              time.Time
	AuthorizedDate    *time.Time
	Description       string
	MerchantName      string
	Category          []string
	Type              string
	Pending           bool
}

// Delta is everything the provider reports as changed since a cursor, plus
// the cursor to persist once the changes are applied.
type Delta struct {
	Added      []SourceTransaction
	Modified   []SourceTransaction
	Removed    []string
	NextCursor provider.Cursor
}

// Gateway is the read surface of the external aggregation API. Accounts and
// holdings are full snapshots; transactions are an incremental delta feed.
//
// FetchTransactions must recover from a provider-side cursor rejection by
// restarting once without a cursor; a second rejection surfaces as
// provider.ErrSyncCursorInvalid.
type Gateway interface {
	FetchAccounts(ctx context.Context, accessToken string) ([]SourceAccount, error)
	FetchHoldings(ctx context.Context, accessToken string) ([]SourceHolding, error)
	FetchTransactions(ctx context.Context, accessToken string, cursor provider.Cursor) (*Delta, error)
}

// Linker is the credential lifecycle surface of the aggregation API.
type Linker interface {
	ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error)
	RemoveItem(ctx context.Context, accessToken string) error
}

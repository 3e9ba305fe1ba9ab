package plaid

import (
	"context"
	"fmt"

	"finboard/internal/domain/provider"
	"finboard/internal/domain/sync"
)

// Gateway adapts the wire-level client to the sync domain's provider
// surface. It embeds Client, so the credential lifecycle methods
// (ExchangePublicToken, RemoveItem) pass through unchanged.
type Gateway struct {
	*Client
}

// NewGateway wraps a client.
func NewGateway(client *Client) *Gateway {
	return &Gateway{Client: client}
}

// FetchAccounts returns the account snapshot in domain form.
func (g *Gateway) FetchAccounts(ctx context.Context, accessToken string) ([]sync.SourceAccount, error) {
	accounts, err := g.GetAccounts(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	out := make([]sync.SourceAccount, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, sync.SourceAccount{
			ExternalID:       acc.AccountID,
			Name:             acc.Name,
			OfficialName:     acc.OfficialName,
			Type:             acc.Type,
			Subtype:          acc.Subtype,
			Mask:             acc.Mask,
			CurrencyCode:     acc.Balances.ISOCurrencyCode,
			Balance:          acc.Balances.Current,
			AvailableBalance: acc.Balances.Available,
			CreditLimit:      acc.Balances.Limit,
		})
	}
	return out, nil
}

// FetchHoldings returns the holdings snapshot joined with its securities.
// A holding whose security the provider failed to list still syncs, just
// without security metadata.
func (g *Gateway) FetchHoldings(ctx context.Context, accessToken string) ([]sync.SourceHolding, error) {
	snapshot, err := g.GetHoldings(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	securities := make(map[string]Security, len(snapshot.Securities))
	for _, sec := range snapshot.Securities {
		securities[sec.SecurityID] = sec
	}

	out := make([]sync.SourceHolding, 0, len(snapshot.Holdings))
	for _, h := range snapshot.Holdings {
		sec := securities[h.SecurityID]
		out = append(out, sync.SourceHolding{
			AccountExternalID: h.AccountID,
			SecurityID:        h.SecurityID,
			HoldingID:         h.HoldingID,
			SecurityName:      sec.Name,
			SecurityType:      sec.Type,
			TickerSymbol:      sec.TickerSymbol,
			Quantity:          h.Quantity,
			CostBasis:         h.CostBasis,
			MarketValue:       h.InstitutionValue,
		})
	}
	return out, nil
}

// FetchTransactions pages the delta feed and returns it in domain form.
func (g *Gateway) FetchTransactions(ctx context.Context, accessToken string, cursor provider.Cursor) (*sync.Delta, error) {
	raw, err := g.SyncTransactions(ctx, accessToken, cursor)
	if err != nil {
		return nil, err
	}

	delta := &sync.Delta{NextCursor: raw.NextCursor}

	if delta.Added, err = mapTransactions(raw.Added); err != nil {
		return nil, err
	}
	if delta.Modified, err = mapTransactions(raw.Modified); err != nil {
		return nil, err
	}
	for _, r := range raw.Removed {
		delta.Removed = append(delta.Removed, r.TransactionID)
	}

	return delta, nil
}

func mapTransactions(raw []Transaction) ([]sync.SourceTransaction, error) {
	out := make([]sync.SourceTransaction, 0, len(raw))
	for i := range raw {
		tx := &raw[i]

		date, err := tx.GetDate()
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.TransactionID, err)
		}
		authorized, err := tx.GetAuthorizedDate()
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.TransactionID, err)
		}

		out = append(out, sync.SourceTransaction{
			ExternalID:        tx.TransactionID,
			AccountExternalID: tx.AccountID,
			Amount:            tx.Amount,
			Date:              date,
			AuthorizedDate:    authorized,
			Description:       tx.Name,
			MerchantName:      tx.MerchantName,
			Category:          tx.Category,
			Type:              tx.Type,
			Pending:           tx.Pending,
		})
	}
	return out, nil
}

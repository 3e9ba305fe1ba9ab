package sync

import (
	"context"
	"fmt"
	"log"

	"finboard/internal/domain/investment"
)

// reconcileHoldings folds the provider's holdings snapshot into storage.
// Holdings are matched by (account, security, holding) and, unlike accounts,
// positions missing from the snapshot are deleted outright: a holding has no
// dependent history to preserve.
//
// A holding referencing an account the snapshot never delivered is skipped
// with a warning rather than failing the sync.
func reconcileHoldings(ctx context.Context, repos Repositories, userID string, holdings []SourceHolding, accountIndex map[string]int64, report *Report) error {
	existing, err := repos.Investments.ListByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load investments: %w", err)
	}

	byKey := make(map[string]*investment.Investment, len(existing))
	for _, inv := range existing {
		byKey[inv.Key()] = inv
	}

	seen := make(map[string]bool, len(holdings))
	for _, src := range holdings {
		accountID, ok := accountIndex[src.AccountExternalID]
		if !ok {
			log.Printf("Skipping holding %s: account %s not in snapshot", src.HoldingID, src.AccountExternalID)
			report.HoldingsSkipped++
			continue
		}

		key := investment.Key(accountID, src.SecurityID, src.HoldingID)
		seen[key] = true

		if inv, ok := byKey[key]; ok {
			err := repos.Investments.Update(ctx, inv.ID, investment.UpdateParams{
				SecurityName: src.SecurityName,
				SecurityType: src.SecurityType,
				TickerSymbol: src.TickerSymbol,
				Quantity:     src.Quantity,
				CostBasis:    src.CostBasis,
				MarketValue:  src.MarketValue,
			})
			if err != nil {
				return fmt.Errorf("failed to update holding %s: %w", src.HoldingID, err)
			}
			report.HoldingsUpdated++
			continue
		}

		_, err := repos.Investments.Create(ctx, investment.CreateParams{
			UserID:       userID,
			AccountID:    accountID,
			HoldingID:    src.HoldingID,
			SecurityID:   src.SecurityID,
			SecurityName: src.SecurityName,
			SecurityType: src.SecurityType,
			TickerSymbol: src.TickerSymbol,
			Quantity:     src.Quantity,
			CostBasis:    src.CostBasis,
			MarketValue:  src.MarketValue,
		})
		if err != nil {
			return fmt.Errorf("failed to create holding %s: %w", src.HoldingID, err)
		}
		report.HoldingsCreated++
	}

	for _, inv := range existing {
		if seen[inv.Key()] {
			continue
		}
		if err := repos.Investments.Delete(ctx, inv.ID); err != nil {
			return fmt.Errorf("failed to delete holding %d: %w", inv.ID, err)
		}
		report.HoldingsRemoved++
	}

	return nil
}

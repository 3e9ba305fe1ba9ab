package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"finboard/internal/domain/transaction"
)

// applyTransactions writes the provider's transaction delta. Added and
// modified entries both go through the upsert: the provider may re-deliver a
// transaction we already hold, and which bucket the feed put it in does not
// change what storage must do. Removed entries are deleted by external ID;
// deleting one we never held is a no-op.
func applyTransactions(ctx context.Context, repos Repositories, userID, source string, delta *Delta, accountIndex map[string]int64, report *Report) error {
	upsert := func(src SourceTransaction) error {
		accountID, ok := accountIndex[src.AccountExternalID]
		if !ok {
			log.Printf("Skipping transaction %s: account %s not in snapshot", src.ExternalID, src.AccountExternalID)
			report.TransactionsSkipped++
			return nil
		}

		var metadata map[string]string
		if src.MerchantName != "" {
			metadata = map[string]string{"merchant_name": src.MerchantName}
		}

		created, err := repos.Transactions.Upsert(ctx, transaction.UpsertParams{
			UserID:         userID,
			AccountID:      accountID,
			ExternalID:     src.ExternalID,
			Source:         source,
			Amount:         src.Amount,
			Date:           src.Date,
			AuthorizedDate: src.AuthorizedDate,
			Description:    src.Description,
			Category:       src.Category,
			Type:           src.Type,
			Pending:        src.Pending,
			Metadata:       metadata,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert transaction %s: %w", src.ExternalID, err)
		}

		if created {
			report.TransactionsAdded++
		} else {
			report.TransactionsModified++
		}
		return nil
	}

	for _, src := range delta.Added {
		if err := upsert(src); err != nil {
			return err
		}
	}
	for _, src := range delta.Modified {
		if err := upsert(src); err != nil {
			return err
		}
	}

	for _, externalID := range delta.Removed {
		if err := repos.Transactions.DeleteByExternalID(ctx, userID, externalID); err != nil {
			return fmt.Errorf("failed to remove transaction %s: %w", externalID, err)
		}
		report.TransactionsRemoved++
	}

	return nil
}

// deltaMonths collects the transaction dates a delta writes into, for
// partition pre-creation. Removals need no partition: deletes against a
// missing partition simply match nothing.
func deltaMonths(delta *Delta) []transaction.Month {
	dates := make([]time.Time, 0, len(delta.Added)+len(delta.Modified))
	for _, src := range delta.Added {
		dates = append(dates, src.Date)
	}
	for _, src := range delta.Modified {
		dates = append(dates, src.Date)
	}
	return transaction.MonthsOf(dates)
}

package sync

import (
	"context"
	"fmt"
	"strings"

	"finboard/internal/domain/account"
)

// reconcileAccounts folds the provider's account snapshot into storage and
// returns the external-ID → local-ID index the rest of the sync resolves
// against.
//
// Matching runs in two passes: exact match on the provider-side ID first,
// then a fallback on (name, type, subtype) for accounts whose external ID
// the provider rotated. Accounts the snapshot no longer mentions are
// deactivated, never deleted, because transactions and holdings keep
// referencing them. Manual accounts and accounts from other sources are
// never touched.
func reconcileAccounts(ctx context.Context, repos Repositories, userID, source string, snapshot []SourceAccount, report *Report) (map[string]int64, error) {
	existing, err := repos.Accounts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	byExternal := make(map[string]*account.Account)
	byProfile := make(map[string][]*account.Account)
	for _, acc := range existing {
		if acc.IsManual || acc.Source != source {
			continue
		}
		byExternal[acc.ExternalID] = acc
		key := profileKey(acc.Name, acc.AccountType, acc.Subtype)
		byProfile[key] = append(byProfile[key], acc)
	}

	matched := make(map[int64]bool, len(snapshot))
	index := make(map[string]int64, len(snapshot))

	// Pass 1: exact external-ID matches claim their rows first, so the
	// fallback below cannot steal an account another snapshot entry owns.
	pending := make([]SourceAccount, 0, len(snapshot))
	for _, src := range snapshot {
		acc, ok := byExternal[src.ExternalID]
		if !ok {
			pending = append(pending, src)
			continue
		}
		if err := updateAccount(ctx, repos, acc.ID, src, report); err != nil {
			return nil, err
		}
		matched[acc.ID] = true
		index[src.ExternalID] = acc.ID
	}

	// Pass 2: fallback match by profile, else insert.
	for _, src := range pending {
		var target *account.Account
		for _, acc := range byProfile[profileKey(src.Name, src.Type, src.Subtype)] {
			if !matched[acc.ID] {
				target = acc
				break
			}
		}

		if target != nil {
			if err := updateAccount(ctx, repos, target.ID, src, report); err != nil {
				return nil, err
			}
			matched[target.ID] = true
			index[src.ExternalID] = target.ID
			continue
		}

		created, err := repos.Accounts.Create(ctx, account.CreateParams{
			UserID:           userID,
			ExternalID:       src.ExternalID,
			Source:           source,
			Name:             src.Name,
			OfficialName:     src.OfficialName,
			AccountType:      src.Type,
			Subtype:          src.Subtype,
			CurrencyCode:     src.CurrencyCode,
			Balance:          src.Balance,
			AvailableBalance: src.AvailableBalance,
			CreditLimit:      src.CreditLimit,
			Mask:             src.Mask,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create account %s: %w", src.ExternalID, err)
		}
		report.AccountsCreated++
		index[src.ExternalID] = created.ID
	}

	// Anything the snapshot no longer mentions goes dormant.
	for _, acc := range existing {
		if acc.IsManual || acc.Source != source || matched[acc.ID] || !acc.IsActive {
			continue
		}
		if err := repos.Accounts.Deactivate(ctx, acc.ID); err != nil {
			return nil, fmt.Errorf("failed to deactivate account %d: %w", acc.ID, err)
		}
		report.AccountsDeactivated++
	}

	return index, nil
}

func updateAccount(ctx context.Context, repos Repositories, id int64, src SourceAccount, report *Report) error {
	err := repos.Accounts.Update(ctx, id, account.UpdateParams{
		ExternalID:       src.ExternalID,
		Name:             src.Name,
		OfficialName:     src.OfficialName,
		AccountType:      src.Type,
		Subtype:          src.Subtype,
		CurrencyCode:     src.CurrencyCode,
		Balance:          src.Balance,
		AvailableBalance: src.AvailableBalance,
		CreditLimit:      src.CreditLimit,
		Mask:             src.Mask,
	})
	if err != nil {
		return fmt.Errorf("failed to update account %d: %w", id, err)
	}
	report.AccountsUpdated++
	return nil
}

func profileKey(name, accountType, subtype string) string {
	return strings.ToLower(name) + "|" + strings.ToLower(accountType) + "|" + strings.ToLower(subtype)
}

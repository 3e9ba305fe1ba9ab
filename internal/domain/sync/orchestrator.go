package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"finboard/internal/domain/provider"
)

// ErrNotLinked means the user has no stored credential for the provider, so
// there is nothing to sync or unlink.
var ErrNotLinked = errors.New("no provider credential linked")

// Orchestrator drives one provider's data into local storage. A sync runs
// fetch, reconcile and cursor advance inside a single database transaction,
// so either every change of a sync lands together with its new cursor, or
// none do.
type Orchestrator struct {
	providerID int64
	source     string
	tokens     *provider.TokenStore
	gateway    Gateway
	linker     Linker
	store      Store
	partitions PartitionEnsurer
	// Pool-backed, for reads outside any sync transaction.
	connections provider.ConnectionRepository
	now         func() time.Time
}

// OrchestratorConfig wires an orchestrator.
type OrchestratorConfig struct {
	ProviderID  int64
	Source      string
	Tokens      *provider.TokenStore
	Gateway     Gateway
	Linker      Linker
	Store       Store
	Partitions  PartitionEnsurer
	Connections provider.ConnectionRepository
}

// NewOrchestrator creates a sync orchestrator for one provider.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		providerID:  cfg.ProviderID,
		source:      cfg.Source,
		tokens:      cfg.Tokens,
		gateway:     cfg.Gateway,
		linker:      cfg.Linker,
		store:       cfg.Store,
		partitions:  cfg.Partitions,
		connections: cfg.Connections,
		now:         time.Now,
	}
}

// SyncUser runs one incremental sync for a user. With fullSync the stored
// cursor is ignored and the provider replays its full history; the
// reconciliation is idempotent, so replay converges on the same state.
//
// The connection row is locked for the duration, which serializes concurrent
// syncs for the same (user, provider) pair. Credential retrieval happens
// before the transaction: a corrupt credential must not tie up a row lock.
func (o *Orchestrator) SyncUser(ctx context.Context, userID string, fullSync bool) (*Report, error) {
	accessToken, err := o.tokens.Retrieve(ctx, userID, o.providerID)
	if err != nil {
		if errors.Is(err, provider.ErrTokenNotFound) {
			return nil, ErrNotLinked
		}
		return nil, err
	}

	report := &Report{}
	err = o.store.Within(ctx, func(ctx context.Context, repos Repositories) error {
		conn, err := repos.Connections.GetOrCreateForUpdate(ctx, userID, o.providerID)
		if err != nil {
			return err
		}

		cursor := conn.Cursor
		if fullSync {
			cursor = provider.NoCursor
		}
		report.FullSync = cursor.IsNone()

		accounts, err := o.gateway.FetchAccounts(ctx, accessToken)
		if err != nil {
			return fmt.Errorf("failed to fetch accounts: %w", err)
		}
		holdings, err := o.gateway.FetchHoldings(ctx, accessToken)
		if err != nil {
			return fmt.Errorf("failed to fetch holdings: %w", err)
		}
		delta, err := o.gateway.FetchTransactions(ctx, accessToken, cursor)
		if err != nil {
			return fmt.Errorf("failed to fetch transactions: %w", err)
		}

		accountIndex, err := reconcileAccounts(ctx, repos, userID, o.source, accounts, report)
		if err != nil {
			return err
		}
		if err := reconcileHoldings(ctx, repos, userID, holdings, accountIndex, report); err != nil {
			return err
		}

		// Partition creation runs on the pool so the DDL survives a
		// rollback; re-running a failed sync finds them already there.
		if err := o.partitions.EnsureMonths(ctx, deltaMonths(delta)); err != nil {
			return err
		}

		if err := applyTransactions(ctx, repos, userID, o.source, delta, accountIndex, report); err != nil {
			return err
		}

		return repos.Connections.UpdateCursor(ctx, conn.ID, delta.NextCursor, o.now())
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Sync complete for user %s: %d/%d/%d accounts, %d/%d/%d holdings, %d/%d/%d transactions",
		userID,
		report.AccountsCreated, report.AccountsUpdated, report.AccountsDeactivated,
		report.HoldingsCreated, report.HoldingsUpdated, report.HoldingsRemoved,
		report.TransactionsAdded, report.TransactionsModified, report.TransactionsRemoved)

	return report, nil
}

// Link exchanges a public token, stores the resulting credential and ensures
// the connection row exists so scheduled refreshes pick the user up.
// Re-linking overwrites the prior credential; the existing cursor stays
// valid for the new token only if the provider says so, and a rejected
// cursor is already handled by the gateway's resync fallback.
func (o *Orchestrator) Link(ctx context.Context, userID, publicToken string) error {
	accessToken, itemID, err := o.linker.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return fmt.Errorf("failed to exchange public token: %w", err)
	}

	if err := o.tokens.Store(ctx, userID, o.providerID, accessToken, itemID); err != nil {
		return err
	}

	return o.store.Within(ctx, func(ctx context.Context, repos Repositories) error {
		_, err := repos.Connections.GetOrCreateForUpdate(ctx, userID, o.providerID)
		return err
	})
}

// Unlink invalidates the credential at the provider and removes it locally
// along with the connection. Mirrored data stays: accounts, transactions and
// holdings remain readable after an unlink.
func (o *Orchestrator) Unlink(ctx context.Context, userID string) error {
	accessToken, err := o.tokens.Retrieve(ctx, userID, o.providerID)
	if err != nil {
		if errors.Is(err, provider.ErrTokenNotFound) {
			return ErrNotLinked
		}
		return err
	}

	if err := o.linker.RemoveItem(ctx, accessToken); err != nil {
		return fmt.Errorf("failed to remove item at provider: %w", err)
	}

	if err := o.tokens.Remove(ctx, userID, o.providerID); err != nil {
		return fmt.Errorf("failed to remove stored credential: %w", err)
	}

	return o.store.Within(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Connections.Delete(ctx, userID, o.providerID)
	})
}

// ListSyncableUsers returns the users with an active connection, ordered so
// the longest-unsynced go first.
func (o *Orchestrator) ListSyncableUsers(ctx context.Context) ([]string, error) {
	return o.connections.ListActiveUserIDs(ctx, o.providerID)
}

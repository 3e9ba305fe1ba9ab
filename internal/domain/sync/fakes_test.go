package sync

import (
	"context"
	"fmt"
	"time"

	"finboard/internal/domain/account"
	"finboard/internal/domain/investment"
	"finboard/internal/domain/provider"
	"finboard/internal/domain/transaction"
)

// fakeState is shared in-memory storage for the fake repositories. fakeStore
// snapshots it before each Within and restores the snapshot on error, which
// mirrors the rollback behavior the orchestrator relies on.
type fakeState struct {
	accounts      map[int64]account.Account
	nextAccountID int64

	investments      map[int64]investment.Investment
	nextInvestmentID int64

	transactions map[string]transaction.Transaction
	nextTxID     int64

	connections map[string]provider.Connection
	nextConnID  int64
}

func newFakeState() *fakeState {
	return &fakeState{
		accounts:     make(map[int64]account.Account),
		investments:  make(map[int64]investment.Investment),
		transactions: make(map[string]transaction.Transaction),
		connections:  make(map[string]provider.Connection),
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.investments {
		c.investments[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.connections {
		c.connections[k] = v
	}
	c.nextAccountID = s.nextAccountID
	c.nextInvestmentID = s.nextInvestmentID
	c.nextTxID = s.nextTxID
	c.nextConnID = s.nextConnID
	return c
}

func txKey(userID string, accountID int64, externalID string, date time.Time) string {
	return fmt.Sprintf("%s|%d|%s|%s", userID, accountID, externalID, date.Format("2006-01-02"))
}

func connKey(userID string, providerID int64) string {
	return fmt.Sprintf("%s|%d", userID, providerID)
}

type fakeAccounts struct{ state *fakeState }

func (f *fakeAccounts) Create(_ context.Context, params account.CreateParams) (*account.Account, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	f.state.nextAccountID++
	acc := account.Account{
		ID:               f.state.nextAccountID,
		UserID:           params.UserID,
		ExternalID:       params.ExternalID,
		Source:           params.Source,
		Name:             params.Name,
		OfficialName:     params.OfficialName,
		AccountType:      params.AccountType,
		Subtype:          params.Subtype,
		CurrencyCode:     params.CurrencyCode,
		Balance:          params.Balance,
		AvailableBalance: params.AvailableBalance,
		CreditLimit:      params.CreditLimit,
		Mask:             params.Mask,
		LastFour:         account.LastFourOf(params.Mask),
		IsActive:         true,
	}
	f.state.accounts[acc.ID] = acc
	return &acc, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*account.Account, error) {
	acc, ok := f.state.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return &acc, nil
}

func (f *fakeAccounts) ListByUserID(_ context.Context, userID string) ([]*account.Account, error) {
	var out []*account.Account
	for id := int64(1); id <= f.state.nextAccountID; id++ {
		if acc, ok := f.state.accounts[id]; ok && acc.UserID == userID {
			c := acc
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAccounts) GetByExternalID(_ context.Context, userID, externalID string) (*account.Account, error) {
	for _, acc := range f.state.accounts {
		if acc.UserID == userID && acc.ExternalID == externalID {
			c := acc
			return &c, nil
		}
	}
	return nil, account.ErrAccountNotFound
}

func (f *fakeAccounts) Update(_ context.Context, id int64, params account.UpdateParams) error {
	acc, ok := f.state.accounts[id]
	if !ok {
		return account.ErrAccountNotFound
	}
	acc.ExternalID = params.ExternalID
	acc.Name = params.Name
	acc.OfficialName = params.OfficialName
	acc.AccountType = params.AccountType
	acc.Subtype = params.Subtype
	acc.CurrencyCode = params.CurrencyCode
	acc.Balance = params.Balance
	acc.AvailableBalance = params.AvailableBalance
	acc.CreditLimit = params.CreditLimit
	acc.Mask = params.Mask
	acc.LastFour = account.LastFourOf(params.Mask)
	acc.IsActive = true
	f.state.accounts[id] = acc
	return nil
}

func (f *fakeAccounts) Deactivate(_ context.Context, id int64) error {
	acc, ok := f.state.accounts[id]
	if !ok {
		return account.ErrAccountNotFound
	}
	acc.IsActive = false
	f.state.accounts[id] = acc
	return nil
}

type fakeInvestments struct{ state *fakeState }

func (f *fakeInvestments) Create(_ context.Context, params investment.CreateParams) (*investment.Investment, error) {
	f.state.nextInvestmentID++
	inv := investment.Investment{
		ID:           f.state.nextInvestmentID,
		UserID:       params.UserID,
		AccountID:    params.AccountID,
		HoldingID:    params.HoldingID,
		SecurityID:   params.SecurityID,
		SecurityName: params.SecurityName,
		SecurityType: params.SecurityType,
		TickerSymbol: params.TickerSymbol,
		Quantity:     params.Quantity,
		CostBasis:    params.CostBasis,
		MarketValue:  params.MarketValue,
	}
	f.state.investments[inv.ID] = inv
	return &inv, nil
}

func (f *fakeInvestments) ListByUserID(_ context.Context, userID string) ([]*investment.Investment, error) {
	var out []*investment.Investment
	for id := int64(1); id <= f.state.nextInvestmentID; id++ {
		if inv, ok := f.state.investments[id]; ok && inv.UserID == userID {
			c := inv
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeInvestments) Update(_ context.Context, id int64, params investment.UpdateParams) error {
	inv, ok := f.state.investments[id]
	if !ok {
		return investment.ErrInvestmentNotFound
	}
	inv.SecurityName = params.SecurityName
	inv.SecurityType = params.SecurityType
	inv.TickerSymbol = params.TickerSymbol
	inv.Quantity = params.Quantity
	inv.CostBasis = params.CostBasis
	inv.MarketValue = params.MarketValue
	f.state.investments[id] = inv
	return nil
}

func (f *fakeInvestments) Delete(_ context.Context, id int64) error {
	delete(f.state.investments, id)
	return nil
}

type fakeTransactions struct {
	state *fakeState

	// beforeUpsert runs on every upsert; tests use it to assert partitions
	// were created before any write.
	beforeUpsert func(params transaction.UpsertParams) error
}

func (f *fakeTransactions) Upsert(_ context.Context, params transaction.UpsertParams) (bool, error) {
	if err := params.Validate(); err != nil {
		return false, err
	}
	if f.beforeUpsert != nil {
		if err := f.beforeUpsert(params); err != nil {
			return false, err
		}
	}

	key := txKey(params.UserID, params.AccountID, params.ExternalID, params.Date)
	existing, ok := f.state.transactions[key]

	tx := transaction.Transaction{
		UserID:         params.UserID,
		AccountID:      params.AccountID,
		ExternalID:     params.ExternalID,
		Source:         params.Source,
		Amount:         params.Amount,
		Date:           params.Date,
		AuthorizedDate: params.AuthorizedDate,
		Description:    params.Description,
		Category:       transaction.NormalizeCategory(params.Category),
		Type:           params.Type,
		Pending:        params.Pending,
		Metadata:       params.Metadata,
	}
	if ok {
		tx.ID = existing.ID
	} else {
		f.state.nextTxID++
		tx.ID = f.state.nextTxID
	}
	f.state.transactions[key] = tx
	return !ok, nil
}

func (f *fakeTransactions) DeleteByExternalID(_ context.Context, userID, externalID string) error {
	for key, tx := range f.state.transactions {
		if tx.UserID == userID && tx.ExternalID == externalID {
			delete(f.state.transactions, key)
		}
	}
	return nil
}

func (f *fakeTransactions) ListByUserID(_ context.Context, userID string, _ transaction.ListFilter) ([]*transaction.Transaction, error) {
	var out []*transaction.Transaction
	for _, tx := range f.state.transactions {
		if tx.UserID == userID {
			c := tx
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeTransactions) CountByUserID(_ context.Context, userID string, _ transaction.ListFilter) (int64, error) {
	var n int64
	for _, tx := range f.state.transactions {
		if tx.UserID == userID {
			n++
		}
	}
	return n, nil
}

type fakeConnections struct{ state *fakeState }

func (f *fakeConnections) GetOrCreateForUpdate(_ context.Context, userID string, providerID int64) (*provider.Connection, error) {
	key := connKey(userID, providerID)
	if conn, ok := f.state.connections[key]; ok {
		c := conn
		return &c, nil
	}
	f.state.nextConnID++
	conn := provider.Connection{
		ID:         f.state.nextConnID,
		UserID:     userID,
		ProviderID: providerID,
		Status:     provider.StatusActive,
	}
	f.state.connections[key] = conn
	return &conn, nil
}

func (f *fakeConnections) UpdateCursor(_ context.Context, connectionID int64, cursor provider.Cursor, syncedAt time.Time) error {
	for key, conn := range f.state.connections {
		if conn.ID == connectionID {
			conn.Cursor = cursor
			conn.Status = provider.StatusActive
			conn.LastSuccessfulSync = &syncedAt
			f.state.connections[key] = conn
			return nil
		}
	}
	return provider.ErrConnectionNotFound
}

func (f *fakeConnections) ResetCursor(_ context.Context, connectionID int64) error {
	for key, conn := range f.state.connections {
		if conn.ID == connectionID {
			conn.Cursor = provider.NoCursor
			f.state.connections[key] = conn
			return nil
		}
	}
	return provider.ErrConnectionNotFound
}

func (f *fakeConnections) Delete(_ context.Context, userID string, providerID int64) error {
	delete(f.state.connections, connKey(userID, providerID))
	return nil
}

func (f *fakeConnections) ListActiveUserIDs(_ context.Context, providerID int64) ([]string, error) {
	var out []string
	for _, conn := range f.state.connections {
		if conn.ProviderID == providerID && conn.Status == provider.StatusActive {
			out = append(out, conn.UserID)
		}
	}
	return out, nil
}

// fakeStore hands out repositories over the shared state and restores a
// snapshot when the callback fails.
type fakeStore struct {
	state        *fakeState
	transactions *fakeTransactions
}

func newFakeStore(state *fakeState) *fakeStore {
	return &fakeStore{state: state, transactions: &fakeTransactions{state: state}}
}

func (s *fakeStore) Within(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	snapshot := s.state.clone()
	repos := Repositories{
		Accounts:     &fakeAccounts{state: s.state},
		Investments:  &fakeInvestments{state: s.state},
		Transactions: s.transactions,
		Connections:  &fakeConnections{state: s.state},
	}
	if err := fn(ctx, repos); err != nil {
		*s.state = *snapshot
		return err
	}
	return nil
}

// fakeGateway scripts provider responses with func fields, defaulting to
// empty snapshots.
type fakeGateway struct {
	fetchAccounts     func(ctx context.Context, accessToken string) ([]SourceAccount, error)
	fetchHoldings     func(ctx context.Context, accessToken string) ([]SourceHolding, error)
	fetchTransactions func(ctx context.Context, accessToken string, cursor provider.Cursor) (*Delta, error)
}

func (g *fakeGateway) FetchAccounts(ctx context.Context, accessToken string) ([]SourceAccount, error) {
	if g.fetchAccounts == nil {
		return nil, nil
	}
	return g.fetchAccounts(ctx, accessToken)
}

func (g *fakeGateway) FetchHoldings(ctx context.Context, accessToken string) ([]SourceHolding, error) {
	if g.fetchHoldings == nil {
		return nil, nil
	}
	return g.fetchHoldings(ctx, accessToken)
}

func (g *fakeGateway) FetchTransactions(ctx context.Context, accessToken string, cursor provider.Cursor) (*Delta, error) {
	if g.fetchTransactions == nil {
		return &Delta{NextCursor: provider.NewCursor("cursor-empty")}, nil
	}
	return g.fetchTransactions(ctx, accessToken, cursor)
}

type fakeLinker struct {
	exchangePublicToken func(ctx context.Context, publicToken string) (string, string, error)
	removeItem          func(ctx context.Context, accessToken string) error
	removed             []string
}

func (l *fakeLinker) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	if l.exchangePublicToken == nil {
		return "access-" + publicToken, "item-1", nil
	}
	return l.exchangePublicToken(ctx, publicToken)
}

func (l *fakeLinker) RemoveItem(ctx context.Context, accessToken string) error {
	l.removed = append(l.removed, accessToken)
	if l.removeItem == nil {
		return nil
	}
	return l.removeItem(ctx, accessToken)
}

type fakePartitions struct {
	ensured []transaction.Month
	err     error
}

func (p *fakePartitions) EnsureMonths(_ context.Context, months []transaction.Month) error {
	if p.err != nil {
		return p.err
	}
	p.ensured = append(p.ensured, months...)
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]provider.Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]provider.Token)}
}

func (r *fakeTokenRepo) Upsert(_ context.Context, params provider.UpsertTokenParams) (*provider.Token, error) {
	t := provider.Token{
		ID:         int64(len(r.tokens) + 1),
		UserID:     params.UserID,
		ProviderID: params.ProviderID,
		Ciphertext: params.Ciphertext,
		ItemID:     params.ItemID,
		ExpiresAt:  params.ExpiresAt,
	}
	r.tokens[connKey(params.UserID, params.ProviderID)] = t
	return &t, nil
}

func (r *fakeTokenRepo) GetByUserAndProvider(_ context.Context, userID string, providerID int64) (*provider.Token, error) {
	t, ok := r.tokens[connKey(userID, providerID)]
	if !ok {
		return nil, provider.ErrTokenNotFound
	}
	return &t, nil
}

func (r *fakeTokenRepo) Delete(_ context.Context, userID string, providerID int64) error {
	delete(r.tokens, connKey(userID, providerID))
	return nil
}

package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"finboard/internal/domain/provider"
)

const (
	defaultTimeout = 30 * time.Second

	accountsPath      = "/accounts/get"
	holdingsPath      = "/investments/holdings/get"
	transactionsPath  = "/transactions/sync"
	tokenExchangePath = "/item/public_token/exchange"
	itemRemovePath    = "/item/remove"
)

// Config holds the credentials and endpoint for the aggregation API.
type Config struct {
	BaseURL      string
	ClientID     string
	Secret       string
	SyncPageSize int
}

// Client is a typed client for the Plaid-style aggregation API. It is
// constructed once at process start and shared; it holds no per-user state.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient creates a new aggregation API client.
func NewClient(cfg Config) *Client {
	if cfg.SyncPageSize <= 0 {
		cfg.SyncPageSize = 100
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		cfg:        cfg,
	}
}

// Balances carries the balance block of an account snapshot.
type Balances struct {
	Available       *float64 `json:"available"`
	Current         float64  `json:"current"`
	Limit           *float64 `json:"limit"`
	ISOCurrencyCode string   `json:"iso_currency_code"`
}

// Account is one entry of the account snapshot.
type Account struct {
	AccountID    string   `json:"account_id"`
	Balances     Balances `json:"balances"`
	Mask         string   `json:"mask"`
	Name         string   `json:"name"`
	OfficialName string   `json:"official_name"`
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype"`
}

// Holding is one position of the holdings snapshot.
type Holding struct {
	AccountID        string  `json:"account_id"`
	SecurityID       string  `json:"security_id"`
	HoldingID        string  `json:"holding_id"`
	Quantity         float64 `json:"quantity"`
	CostBasis        float64 `json:"cost_basis"`
	InstitutionValue float64 `json:"institution_value"`
}

// Security describes an instrument referenced by holdings.
type Security struct {
	SecurityID   string `json:"security_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	TickerSymbol string `json:"ticker_symbol"`
}

// HoldingsSnapshot is the full point-in-time holdings + securities listing.
type HoldingsSnapshot struct {
	Holdings   []Holding  `json:"holdings"`
	Securities []Security `json:"securities"`
}

// Transaction is one entry of the transactions delta feed. Dates arrive as
// YYYY-MM-DD strings.
type Transaction struct {
	TransactionID  string   `json:"transaction_id"`
	AccountID      string   `json:"account_id"`
	Amount         float64  `json:"amount"`
	DateString     string   `json:"date"`
	AuthorizedDate string   `json:"authorized_date"`
	Name           string   `json:"name"`
	MerchantName   string   `json:"merchant_name"`
	Category       []string `json:"category"`
	Type           string   `json:"transaction_type"`
	Pending        bool     `json:"pending"`
}

// GetDate parses the transaction date.
func (t *Transaction) GetDate() (time.Time, error) {
	d, err := time.Parse("2006-01-02", t.DateString)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", t.DateString, err)
	}
	return d, nil
}

// GetAuthorizedDate parses the optional authorized date; nil when absent.
func (t *Transaction) GetAuthorizedDate() (*time.Time, error) {
	if t.AuthorizedDate == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", t.AuthorizedDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authorized date %q: %w", t.AuthorizedDate, err)
	}
	return &d, nil
}

// RemovedTransaction identifies a transaction deleted on the provider side.
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// TransactionDelta is the accumulated result of a full paging pass over the
// delta feed: everything added, modified and removed since the input cursor,
// plus the cursor to store for the next sync.
type TransactionDelta struct {
	Added      []Transaction
	Modified   []Transaction
	Removed    []RemovedTransaction
	NextCursor provider.Cursor
}

// apiError is the provider's error envelope.
type apiError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// isCursorInvalid matches the provider's "cursor not recognized" failure,
// the only error the gateway recovers from.
func isCursorInvalid(err error) bool {
	var provErr *provider.Error
	if !asProviderError(err, &provErr) {
		return false
	}
	return provErr.Code == "INVALID_FIELD" && strings.Contains(provErr.Message, "cursor")
}

func asProviderError(err error, target **provider.Error) bool {
	pe, ok := err.(*provider.Error)
	if ok {
		*target = pe
	}
	return ok
}

// GetAccounts fetches the full account snapshot for an access token.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	body := map[string]any{"access_token": accessToken}

	var resp struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.post(ctx, accountsPath, body, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// GetHoldings fetches the full holdings + securities snapshot.
func (c *Client) GetHoldings(ctx context.Context, accessToken string) (*HoldingsSnapshot, error) {
	body := map[string]any{"access_token": accessToken}

	var resp HoldingsSnapshot
	if err := c.post(ctx, holdingsPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncTransactions walks the delta feed from the given cursor until the
// provider reports no more pages, accumulating added/modified/removed across
// pages. If the provider rejects the cursor, the walk restarts once from a
// full resync (no cursor); a second rejection is fatal.
func (c *Client) SyncTransactions(ctx context.Context, accessToken string, cursor provider.Cursor) (*TransactionDelta, error) {
	delta := &TransactionDelta{}
	retries := 0

	for {
		body := map[string]any{
			"access_token": accessToken,
			"count":        c.cfg.SyncPageSize,
		}
		if token, ok := cursor.Token(); ok {
			body["cursor"] = token
		}

		var page struct {
			Added      []Transaction        `json:"added"`
			Modified   []Transaction        `json:"modified"`
			Removed    []RemovedTransaction `json:"removed"`
			NextCursor string               `json:"next_cursor"`
			HasMore    bool                 `json:"has_more"`
		}

		if err := c.post(ctx, transactionsPath, body, &page); err != nil {
			if isCursorInvalid(err) {
				retries++
				if retries > 1 {
					return nil, provider.ErrSyncCursorInvalid
				}
				log.Printf("Provider rejected sync cursor %s, restarting as full resync", cursor)
				cursor = provider.NoCursor
				delta = &TransactionDelta{}
				continue
			}
			return nil, err
		}

		delta.Added = append(delta.Added, page.Added...)
		delta.Modified = append(delta.Modified, page.Modified...)
		delta.Removed = append(delta.Removed, page.Removed...)

		cursor = provider.NewCursor(page.NextCursor)
		if !page.HasMore {
			delta.NextCursor = cursor
			return delta, nil
		}
	}
}

// ExchangePublicToken trades a short-lived public token for a long-lived
// access token and the provider's item ID.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error) {
	body := map[string]any{"public_token": publicToken}

	var resp struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	if err := c.post(ctx, tokenExchangePath, body, &resp); err != nil {
		return "", "", err
	}
	return resp.AccessToken, resp.ItemID, nil
}

// RemoveItem invalidates an access token on the provider side.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	body := map[string]any{"access_token": accessToken}

	var resp struct {
		Removed bool `json:"removed"`
	}
	return c.post(ctx, itemRemovePath, body, &resp)
}

// post issues one authenticated JSON request. Non-200 responses are decoded
// into the provider's error envelope and surfaced as *provider.Error.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	body["client_id"] = c.cfg.ClientID
	body["secret"] = c.cfg.Secret

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if err := json.Unmarshal(raw, &errResp); err != nil || errResp.ErrorCode == "" {
			return &provider.Error{
				Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
				Message: string(raw),
			}
		}
		return &provider.Error{Code: errResp.ErrorCode, Message: errResp.ErrorMessage}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

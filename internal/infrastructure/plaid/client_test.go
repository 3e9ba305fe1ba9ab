package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finboard/internal/domain/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:      srv.URL,
		ClientID:     "test-client",
		Secret:       "test-secret",
		SyncPageSize: 2,
	})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode request body: %v", err)
	}
	return body
}

func TestClient_GetAccounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != accountsPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["client_id"] != "test-client" || body["secret"] != "test-secret" {
			t.Error("credentials missing from request body")
		}
		if body["access_token"] != "access-123" {
			t.Errorf("access_token = %v, want access-123", body["access_token"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"accounts": []map[string]any{
				{
					"account_id": "acc-1",
					"name":       "Checking",
					"type":       "depository",
					"subtype":    "checking",
					"mask":       "4321",
					"balances": map[string]any{
						"available":         100.50,
						"current":           120.25,
						"iso_currency_code": "USD",
					},
				},
			},
		})
	})

	accounts, err := client.GetAccounts(context.Background(), "access-123")
	if err != nil {
		t.Fatalf("GetAccounts() error = %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("got %d accounts, want 1", len(accounts))
	}
	acc := accounts[0]
	if acc.AccountID != "acc-1" || acc.Name != "Checking" || acc.Subtype != "checking" {
		t.Errorf("unexpected account: %+v", acc)
	}
	if acc.Balances.Available == nil || *acc.Balances.Available != 100.50 {
		t.Errorf("available balance = %v, want 100.50", acc.Balances.Available)
	}
	if acc.Balances.Limit != nil {
		t.Errorf("limit = %v, want nil", acc.Balances.Limit)
	}
}

func TestClient_SyncTransactions_Paging(t *testing.T) {
	cursors := []string{}
	page := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		if c, ok := body["cursor"]; ok {
			cursors = append(cursors, c.(string))
		} else {
			cursors = append(cursors, "<none>")
		}
		if body["count"] != float64(2) {
			t.Errorf("count = %v, want 2", body["count"])
		}

		page++
		switch page {
		case 1:
			json.NewEncoder(w).Encode(map[string]any{
				"added": []map[string]any{
					{"transaction_id": "tx-1", "account_id": "acc-1", "amount": 12.34, "date": "2026-01-05"},
					{"transaction_id": "tx-2", "account_id": "acc-1", "amount": 5.00, "date": "2026-01-06"},
				},
				"modified":    []map[string]any{},
				"removed":     []map[string]any{},
				"next_cursor": "cursor-a",
				"has_more":    true,
			})
		case 2:
			json.NewEncoder(w).Encode(map[string]any{
				"added": []map[string]any{
					{"transaction_id": "tx-3", "account_id": "acc-1", "amount": 9.99, "date": "2026-02-01"},
				},
				"modified": []map[string]any{
					{"transaction_id": "tx-1", "account_id": "acc-1", "amount": 13.00, "date": "2026-01-05"},
				},
				"removed":     []map[string]any{{"transaction_id": "tx-0"}},
				"next_cursor": "cursor-b",
				"has_more":    false,
			})
		default:
			t.Errorf("unexpected extra page request %d", page)
		}
	})

	delta, err := client.SyncTransactions(context.Background(), "access-123", provider.NoCursor)
	if err != nil {
		t.Fatalf("SyncTransactions() error = %v", err)
	}

	if len(delta.Added) != 3 {
		t.Errorf("got %d added, want 3", len(delta.Added))
	}
	if len(delta.Modified) != 1 {
		t.Errorf("got %d modified, want 1", len(delta.Modified))
	}
	if len(delta.Removed) != 1 || delta.Removed[0].TransactionID != "tx-0" {
		t.Errorf("unexpected removed set: %+v", delta.Removed)
	}
	if token, ok := delta.NextCursor.Token(); !ok || token != "cursor-b" {
		t.Errorf("next cursor = %v, want cursor-b", delta.NextCursor)
	}

	// First request has no cursor key, second carries the page-1 cursor.
	if len(cursors) != 2 || cursors[0] != "<none>" || cursors[1] != "cursor-a" {
		t.Errorf("cursor sequence = %v", cursors)
	}
}

func TestClient_SyncTransactions_CursorInvalidRecovers(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		body := decodeBody(t, r)
		if calls == 1 {
			if body["cursor"] != "stale-cursor" {
				t.Errorf("first call cursor = %v, want stale-cursor", body["cursor"])
			}
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error_type":    "INVALID_INPUT",
				"error_code":    "INVALID_FIELD",
				"error_message": "cursor not associated with access_token",
			})
			return
		}
		if _, ok := body["cursor"]; ok {
			t.Error("retry must be a full resync without a cursor")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"added": []map[string]any{
				{"transaction_id": "tx-1", "account_id": "acc-1", "amount": 1.00, "date": "2026-01-05"},
			},
			"next_cursor": "cursor-fresh",
			"has_more":    false,
		})
	})

	delta, err := client.SyncTransactions(context.Background(), "access-123", provider.NewCursor("stale-cursor"))
	if err != nil {
		t.Fatalf("SyncTransactions() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("got %d calls, want 2", calls)
	}
	if len(delta.Added) != 1 {
		t.Errorf("got %d added, want 1", len(delta.Added))
	}
	if token, _ := delta.NextCursor.Token(); token != "cursor-fresh" {
		t.Errorf("next cursor = %v, want cursor-fresh", delta.NextCursor)
	}
}

func TestClient_SyncTransactions_CursorInvalidTwiceIsFatal(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error_type":    "INVALID_INPUT",
			"error_code":    "INVALID_FIELD",
			"error_message": "cursor not associated with access_token",
		})
	})

	_, err := client.SyncTransactions(context.Background(), "access-123", provider.NewCursor("stale-cursor"))
	if !errors.Is(err, provider.ErrSyncCursorInvalid) {
		t.Fatalf("error = %v, want ErrSyncCursorInvalid", err)
	}
	if calls != 2 {
		t.Errorf("got %d calls, want 2 (original + one retry)", calls)
	}
}

func TestClient_SyncTransactions_OtherErrorNotRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error_type":    "ITEM_ERROR",
			"error_code":    "ITEM_LOGIN_REQUIRED",
			"error_message": "the login details of this item have changed",
		})
	})

	_, err := client.SyncTransactions(context.Background(), "access-123", provider.NewCursor("c"))
	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *provider.Error", err)
	}
	if provErr.Code != "ITEM_LOGIN_REQUIRED" {
		t.Errorf("code = %s, want ITEM_LOGIN_REQUIRED", provErr.Code)
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
}

func TestClient_ExchangePublicToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tokenExchangePath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["public_token"] != "public-abc" {
			t.Errorf("public_token = %v, want public-abc", body["public_token"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-xyz",
			"item_id":      "item-1",
		})
	})

	accessToken, itemID, err := client.ExchangePublicToken(context.Background(), "public-abc")
	if err != nil {
		t.Fatalf("ExchangePublicToken() error = %v", err)
	}
	if accessToken != "access-xyz" || itemID != "item-1" {
		t.Errorf("got (%s, %s), want (access-xyz, item-1)", accessToken, itemID)
	}
}

func TestClient_GetHoldings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"holdings": []map[string]any{
				{
					"account_id":        "acc-1",
					"security_id":       "sec-1",
					"holding_id":        "hold-1",
					"quantity":          10,
					"cost_basis":        1000.0,
					"institution_value": 1234.56,
				},
			},
			"securities": []map[string]any{
				{"security_id": "sec-1", "name": "Acme Corp", "type": "equity", "ticker_symbol": "ACME"},
			},
		})
	})

	snapshot, err := client.GetHoldings(context.Background(), "access-123")
	if err != nil {
		t.Fatalf("GetHoldings() error = %v", err)
	}
	if len(snapshot.Holdings) != 1 || snapshot.Holdings[0].HoldingID != "hold-1" {
		t.Errorf("unexpected holdings: %+v", snapshot.Holdings)
	}
	if len(snapshot.Securities) != 1 || snapshot.Securities[0].TickerSymbol != "ACME" {
		t.Errorf("unexpected securities: %+v", snapshot.Securities)
	}
}

func TestTransaction_GetDate(t *testing.T) {
	tx := Transaction{DateString: "2026-03-15"}
	d, err := tx.GetDate()
	if err != nil {
		t.Fatalf("GetDate() error = %v", err)
	}
	if d.Year() != 2026 || d.Month() != 3 || d.Day() != 15 {
		t.Errorf("GetDate() = %v", d)
	}

	tx.DateString = "not-a-date"
	if _, err := tx.GetDate(); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestTransaction_GetAuthorizedDate_Empty(t *testing.T) {
	tx := Transaction{}
	d, err := tx.GetAuthorizedDate()
	if err != nil {
		t.Fatalf("GetAuthorizedDate() error = %v", err)
	}
	if d != nil {
		t.Errorf("GetAuthorizedDate() = %v, want nil", d)
	}
}

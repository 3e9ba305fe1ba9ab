package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"finboard/internal/domain/account"
	"finboard/internal/domain/transaction"
	"finboard/internal/shared/middleware"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

type TransactionHandler struct {
	transactions transaction.Repository
	accounts     account.Repository
}

func NewTransactionHandler(transactions transaction.Repository, accounts account.Repository) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		accounts:     accounts,
	}
}

// TransactionListResponse wraps a page of transactions with the total match
// count so clients can paginate.
type TransactionListResponse struct {
	Transactions []*transaction.Transaction `json:"transactions"`
	Total        int64                      `json:"total"`
	Limit        int                        `json:"limit"`
	Offset       int                        `json:"offset"`
}

// HandleListTransactions returns the user's transactions, newest first.
// Supports accountId, from, to (YYYY-MM-DD), limit and offset query params.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filter, err := h.parseFilter(r, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	transactions, err := h.transactions.ListByUserID(r.Context(), userID, *filter)
	if err != nil {
		log.Printf("Error listing transactions for user %s: %v", userID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	total, err := h.transactions.CountByUserID(r.Context(), userID, *filter)
	if err != nil {
		log.Printf("Error counting transactions for user %s: %v", userID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TransactionListResponse{
		Transactions: transactions,
		Total:        total,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// parseFilter builds a ListFilter from query parameters, verifying that a
// requested account belongs to the caller.
func (h *TransactionHandler) parseFilter(r *http.Request, userID string) (*transaction.ListFilter, error) {
	filter := transaction.ListFilter{
		Limit: defaultTransactionLimit,
	}

	if accountIDStr := r.URL.Query().Get("accountId"); accountIDStr != "" {
		accountID, err := strconv.ParseInt(accountIDStr, 10, 64)
		if err != nil {
			return nil, errBadParam("accountId must be numeric")
		}
		acc, err := h.accounts.GetByID(r.Context(), accountID)
		if err != nil || acc.UserID != userID {
			return nil, errBadParam("unknown account")
		}
		filter.AccountID = &accountID
	}

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return nil, errBadParam("from must be YYYY-MM-DD")
		}
		filter.From = &from
	}

	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return nil, errBadParam("to must be YYYY-MM-DD")
		}
		filter.To = &to
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return nil, errBadParam("limit must be a positive integer")
		}
		if limit > maxTransactionLimit {
			limit = maxTransactionLimit
		}
		filter.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return nil, errBadParam("offset must be a non-negative integer")
		}
		filter.Offset = offset
	}

	return &filter, nil
}

type errBadParam string

func (e errBadParam) Error() string { return string(e) }

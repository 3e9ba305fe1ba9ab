package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"finboard/internal/domain/account"
	"finboard/internal/shared/middleware"
)

type AccountHandler struct {
	accounts account.Repository
}

func NewAccountHandler(accounts account.Repository) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// HandleListAccounts returns all accounts for the authenticated user.
// Pass ?active=true to hide accounts the provider no longer reports.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accounts, err := h.accounts.ListByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing accounts for user %s: %v", userID, err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("active") == "true" {
		filtered := make([]*account.Account, 0, len(accounts))
		for _, acc := range accounts {
			if acc.IsActive {
				filtered = append(filtered, acc)
			}
		}
		accounts = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// HandleAccountByID returns a specific account owned by the caller.
func (h *AccountHandler) HandleAccountByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accountID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	acc, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}
	if acc.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(acc)
}

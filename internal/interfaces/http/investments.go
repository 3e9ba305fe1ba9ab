package http

import (
	"encoding/json"
	"log"
	"net/http"

	"finboard/internal/domain/investment"
	"finboard/internal/shared/middleware"
)

type InvestmentHandler struct {
	investments investment.Repository
}

func NewInvestmentHandler(investments investment.Repository) *InvestmentHandler {
	return &InvestmentHandler{investments: investments}
}

// HandleListInvestments returns all holdings for the authenticated user.
func (h *InvestmentHandler) HandleListInvestments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	holdings, err := h.investments.ListByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing investments for user %s: %v", userID, err)
		http.Error(w, "Failed to list investments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(holdings)
}

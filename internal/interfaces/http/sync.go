package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"finboard/internal/domain/provider"
	"finboard/internal/domain/sync"
	"finboard/internal/shared/middleware"
)

// Syncer is the slice of the sync orchestrator the HTTP layer needs.
type Syncer interface {
	SyncUser(ctx context.Context, userID string, fullSync bool) (*sync.Report, error)
	Link(ctx context.Context, userID, publicToken string) error
	Unlink(ctx context.Context, userID string) error
}

type SyncHandler struct {
	syncer Syncer
}

func NewSyncHandler(syncer Syncer) *SyncHandler {
	return &SyncHandler{syncer: syncer}
}

type SyncRequest struct {
	FullSync bool `json:"fullSync"`
}

type LinkRequest struct {
	PublicToken string `json:"publicToken"`
}

// HandleSync runs one synchronization pass for the authenticated user and
// returns the reconciliation report.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.syncer.SyncUser(r.Context(), userID, req.FullSync)
	if err != nil {
		writeSyncError(w, userID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// HandleLink exchanges a public token from the client-side link flow for a
// stored credential, connecting the user to the provider.
func (h *SyncHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PublicToken == "" {
		http.Error(w, "publicToken is required", http.StatusBadRequest)
		return
	}

	if err := h.syncer.Link(r.Context(), userID, req.PublicToken); err != nil {
		var provErr *provider.Error
		if errors.As(err, &provErr) {
			log.Printf("Provider rejected link for user %s: %v", userID, err)
			http.Error(w, "Provider rejected the link token", http.StatusBadGateway)
			return
		}
		log.Printf("Error linking provider for user %s: %v", userID, err)
		http.Error(w, "Failed to link provider", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUnlink revokes the provider credential and removes the connection.
// Mirrored accounts and transactions stay in place.
func (h *SyncHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.syncer.Unlink(r.Context(), userID); err != nil {
		if errors.Is(err, sync.ErrNotLinked) {
			http.Error(w, "No linked provider", http.StatusNotFound)
			return
		}
		log.Printf("Error unlinking provider for user %s: %v", userID, err)
		http.Error(w, "Failed to unlink provider", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeSyncError maps sync failures to HTTP statuses. Credential problems
// point the client at re-linking; provider-side failures surface as 502.
func writeSyncError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, sync.ErrNotLinked):
		http.Error(w, "No linked provider", http.StatusNotFound)
	case errors.Is(err, provider.ErrCorruptCredential):
		log.Printf("Corrupt credential for user %s: %v", userID, err)
		http.Error(w, "Stored credential is unusable, re-link the provider", http.StatusConflict)
	case errors.Is(err, provider.ErrSyncCursorInvalid):
		log.Printf("Sync cursor rejected for user %s: %v", userID, err)
		http.Error(w, "Provider rejected sync state", http.StatusBadGateway)
	default:
		var provErr *provider.Error
		if errors.As(err, &provErr) {
			log.Printf("Provider error during sync for user %s: %v", userID, err)
			http.Error(w, "Provider request failed", http.StatusBadGateway)
			return
		}
		log.Printf("Error syncing user %s: %v", userID, err)
		http.Error(w, "Sync failed", http.StatusInternalServerError)
	}
}

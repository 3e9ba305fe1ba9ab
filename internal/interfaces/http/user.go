package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"finboard/internal/domain/sync"
	"finboard/internal/domain/user"
	"finboard/internal/shared/middleware"
)

type UserHandler struct {
	users  user.Repository
	syncer Syncer
}

func NewUserHandler(users user.Repository, syncer Syncer) *UserHandler {
	return &UserHandler{users: users, syncer: syncer}
}

// HandleMe returns the authenticated user's profile.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting user %s: %v", userID, err)
		http.Error(w, "Failed to get user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

type SyncUserRequest struct {
	UID               string  `json:"uid,omitempty"`
	DisplayName       *string `json:"displayName,omitempty"`
	PhotoURL          *string `json:"photoUrl,omitempty"`
	PreferredCurrency *string `json:"preferredCurrency,omitempty"`
}

// HandleSyncUser refreshes the caller's profile from the login payload and
// kicks off a background data sync. Called by the client after each sign-in.
func (h *UserHandler) HandleSyncUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	firebaseUID, _ := r.Context().Value(middleware.FirebaseUIDKey).(string)
	email, _ := r.Context().Value(middleware.EmailKey).(string)
	emailVerified, _ := r.Context().Value(middleware.EmailVerifiedKey).(bool)

	var req SyncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The body's uid must belong to the verified token, never someone else.
	if req.UID != "" && req.UID != firebaseUID {
		http.Error(w, "UID mismatch", http.StatusForbidden)
		return
	}

	now := time.Now()
	u, err := h.users.Upsert(r.Context(), user.UpsertParams{
		FirebaseUID:       firebaseUID,
		Email:             email,
		DisplayName:       req.DisplayName,
		PhotoURL:          req.PhotoURL,
		PreferredCurrency: req.PreferredCurrency,
		IsEmailVerified:   emailVerified,
		LastLogin:         &now,
	})
	if err != nil {
		log.Printf("Error upserting user %s: %v", userID, err)
		http.Error(w, "Failed to sync user", http.StatusInternalServerError)
		return
	}

	// Refresh the user's data in the background; a user without a linked
	// provider simply has nothing to sync yet.
	if h.syncer != nil {
		go func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := h.syncer.SyncUser(ctx, id, false); err != nil && !errors.Is(err, sync.ErrNotLinked) {
				log.Printf("Post-login sync failed for user %s: %v", id, err)
			}
		}(u.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

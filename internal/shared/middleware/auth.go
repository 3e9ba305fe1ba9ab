package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"finboard/internal/domain/user"
	"finboard/internal/shared/auth"
)

type ContextKey string

const (
	UserIDKey        ContextKey = "user_id"
	FirebaseUIDKey   ContextKey = "firebase_uid"
	EmailKey         ContextKey = "email"
	EmailVerifiedKey ContextKey = "email_verified"
)

// UserIDFrom extracts the authenticated user's internal ID from the context.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok
}

// Auth verifies the Firebase ID token carried in the Authorization header
// and resolves it to an internal user, provisioning one on first request.
func Auth(verifier auth.Verifier, users user.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			identity, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			u, err := resolveUser(r.Context(), users, identity)
			if err != nil {
				http.Error(w, "Failed to resolve user", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, u.ID)
			ctx = context.WithValue(ctx, FirebaseUIDKey, identity.UID)
			ctx = context.WithValue(ctx, EmailKey, u.Email)
			ctx = context.WithValue(ctx, EmailVerifiedKey, identity.EmailVerified)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveUser looks up the identity's user row, creating it on first login.
func resolveUser(ctx context.Context, users user.Repository, identity *auth.Identity) (*user.User, error) {
	u, err := users.GetByFirebaseUID(ctx, identity.UID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	params := user.UpsertParams{
		FirebaseUID:     identity.UID,
		Email:           identity.Email,
		IsEmailVerified: identity.EmailVerified,
	}
	if identity.Name != "" {
		params.DisplayName = &identity.Name
	}
	if identity.PictureURL != "" {
		params.PhotoURL = &identity.PictureURL
	}

	return users.Upsert(ctx, params)
}

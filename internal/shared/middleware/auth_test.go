package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finboard/internal/domain/user"
	"finboard/internal/shared/auth"
)

type mockVerifier struct {
	verifyFunc func(ctx context.Context, idToken string) (*auth.Identity, error)
}

func (m *mockVerifier) Verify(ctx context.Context, idToken string) (*auth.Identity, error) {
	return m.verifyFunc(ctx, idToken)
}

type mockUserRepo struct {
	getByFirebaseUIDFunc func(ctx context.Context, firebaseUID string) (*user.User, error)
	upsertFunc           func(ctx context.Context, params user.UpsertParams) (*user.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (m *mockUserRepo) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*user.User, error) {
	return m.getByFirebaseUIDFunc(ctx, firebaseUID)
}

func (m *mockUserRepo) Upsert(ctx context.Context, params user.UpsertParams) (*user.User, error) {
	return m.upsertFunc(ctx, params)
}

func TestAuth(t *testing.T) {
	knownUser := &user.User{ID: "user-1", FirebaseUID: "uid-1", Email: "test@example.com"}

	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, idToken string) (*auth.Identity, error) {
			if idToken == "valid-token" {
				return &auth.Identity{UID: "uid-1", Email: "test@example.com"}, nil
			}
			return nil, errors.New("invalid token")
		},
	}
	users := &mockUserRepo{
		getByFirebaseUIDFunc: func(_ context.Context, firebaseUID string) (*user.User, error) {
			if firebaseUID == "uid-1" {
				return knownUser, nil
			}
			return nil, user.ErrUserNotFound
		},
	}

	tests := []struct {
		name           string
		setupRequest   func(r *http.Request)
		expectedStatus int
		expectedUser   bool
	}{
		{
			name: "Valid Token",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer valid-token")
			},
			expectedStatus: http.StatusOK,
			expectedUser:   true,
		},
		{
			name:           "No Token",
			setupRequest:   func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Malformed Header",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "valid-token")
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Invalid Token",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer bogus")
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserIDFrom(r.Context())
				if !ok && tt.expectedUser {
					t.Error("Expected user ID in context, got none")
				}
				if ok && !tt.expectedUser {
					t.Error("Unexpected user ID in context")
				}
				if ok && userID != "user-1" {
					t.Errorf("Expected user ID user-1, got %s", userID)
				}
				w.WriteHeader(http.StatusOK)
			})

			handler := Auth(verifier, users)(nextHandler)

			req := httptest.NewRequest("GET", "/", nil)
			tt.setupRequest(req)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestAuth_ProvisionsUnknownUser(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, _ string) (*auth.Identity, error) {
			return &auth.Identity{UID: "uid-new", Email: "new@example.com", Name: "New User", EmailVerified: true}, nil
		},
	}

	var upserted *user.UpsertParams
	users := &mockUserRepo{
		getByFirebaseUIDFunc: func(_ context.Context, _ string) (*user.User, error) {
			return nil, user.ErrUserNotFound
		},
		upsertFunc: func(_ context.Context, params user.UpsertParams) (*user.User, error) {
			upserted = &params
			return &user.User{ID: "user-new", FirebaseUID: params.FirebaseUID, Email: params.Email}, nil
		},
	}

	var gotUserID string
	handler := Auth(verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if upserted == nil {
		t.Fatal("unknown user was not provisioned")
	}
	if upserted.FirebaseUID != "uid-new" || upserted.Email != "new@example.com" {
		t.Errorf("provisioned with %+v", upserted)
	}
	if upserted.DisplayName == nil || *upserted.DisplayName != "New User" {
		t.Error("display name not carried from identity")
	}
	if gotUserID != "user-new" {
		t.Errorf("context user ID = %s, want user-new", gotUserID)
	}
}

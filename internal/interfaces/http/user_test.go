package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"finboard/internal/domain/sync"
	"finboard/internal/domain/user"
	"finboard/internal/shared/middleware"
)

// MockUserRepo implements user.Repository for testing
type MockUserRepo struct {
	GetByIDFunc          func(ctx context.Context, id string) (*user.User, error)
	GetByFirebaseUIDFunc func(ctx context.Context, firebaseUID string) (*user.User, error)
	UpsertFunc           func(ctx context.Context, params user.UpsertParams) (*user.User, error)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserRepo) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*user.User, error) {
	if m.GetByFirebaseUIDFunc != nil {
		return m.GetByFirebaseUIDFunc(ctx, firebaseUID)
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserRepo) Upsert(ctx context.Context, params user.UpsertParams) (*user.User, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return nil, nil
}

func TestHandleMe(t *testing.T) {
	tests := []struct {
		name           string
		repo           *MockUserRepo
		expectedStatus int
	}{
		{
			name: "Success",
			repo: &MockUserRepo{
				GetByIDFunc: func(_ context.Context, id string) (*user.User, error) {
					return &user.User{ID: id, Email: "test@example.com"}, nil
				},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "User Not Found",
			repo:           &MockUserRepo{},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewUserHandler(tt.repo, nil)

			rr := httptest.NewRecorder()
			handler.HandleMe(rr, authedRequest(http.MethodGet, "/api/users/me", nil))

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func syncUserRequest(body string) *http.Request {
	req := authedRequest(http.MethodPost, "/api/auth/sync-user", []byte(body))
	ctx := context.WithValue(req.Context(), middleware.FirebaseUIDKey, "uid-1")
	ctx = context.WithValue(ctx, middleware.EmailKey, "test@example.com")
	ctx = context.WithValue(ctx, middleware.EmailVerifiedKey, true)
	return req.WithContext(ctx)
}

func TestHandleSyncUser(t *testing.T) {
	var upserted user.UpsertParams
	repo := &MockUserRepo{
		UpsertFunc: func(_ context.Context, params user.UpsertParams) (*user.User, error) {
			upserted = params
			return &user.User{ID: "user-1", FirebaseUID: params.FirebaseUID, Email: params.Email}, nil
		},
	}

	var synced atomic.Bool
	syncDone := make(chan struct{})
	handler := NewUserHandler(repo, &MockSyncer{
		SyncUserFunc: func(_ context.Context, userID string, fullSync bool) (*sync.Report, error) {
			if userID == "user-1" && !fullSync {
				synced.Store(true)
			}
			close(syncDone)
			return &sync.Report{}, nil
		},
	})

	rr := httptest.NewRecorder()
	handler.HandleSyncUser(rr, syncUserRequest(`{"uid":"uid-1","displayName":"Test User"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp user.User
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "user-1" {
		t.Errorf("user ID = %s, want user-1", resp.ID)
	}

	if upserted.FirebaseUID != "uid-1" || upserted.Email != "test@example.com" {
		t.Errorf("upserted with %+v", upserted)
	}
	if upserted.DisplayName == nil || *upserted.DisplayName != "Test User" {
		t.Error("display name not carried from request body")
	}
	if !upserted.IsEmailVerified {
		t.Error("email verification flag not carried from token claims")
	}
	if upserted.LastLogin == nil {
		t.Error("last login not set")
	}

	select {
	case <-syncDone:
	case <-time.After(time.Second):
		t.Fatal("background sync was not triggered")
	}
	if !synced.Load() {
		t.Error("background sync ran with wrong arguments")
	}
}

func TestHandleSyncUser_UIDMismatch(t *testing.T) {
	handler := NewUserHandler(&MockUserRepo{}, &MockSyncer{})

	rr := httptest.NewRecorder()
	handler.HandleSyncUser(rr, syncUserRequest(`{"uid":"somebody-else"}`))

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

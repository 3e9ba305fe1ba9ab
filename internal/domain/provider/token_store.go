package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Encryptor is the cipher used for token material at rest.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenStore encrypts and persists per-user, per-provider access tokens.
// Plaintext tokens never leave this type except through Retrieve.
type TokenStore struct {
	repo      TokenRepository
	encryptor Encryptor
	now       func() time.Time
}

// NewTokenStore creates a token store over the given repository and cipher.
func NewTokenStore(repo TokenRepository, encryptor Encryptor) *TokenStore {
	return &TokenStore{repo: repo, encryptor: encryptor, now: time.Now}
}

// Store encrypts rawToken and upserts it for (user, provider). Re-linking the
// same provider overwrites the prior token and restarts the expiry window.
func (s *TokenStore) Store(ctx context.Context, userID string, providerID int64, rawToken, itemID string) error {
	if rawToken == "" {
		return fmt.Errorf("raw token must not be empty")
	}

	ciphertext, err := s.encryptor.Encrypt(rawToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	_, err = s.repo.Upsert(ctx, UpsertTokenParams{
		UserID:     userID,
		ProviderID: providerID,
		Ciphertext: ciphertext,
		ItemID:     itemID,
		ExpiresAt:  s.now().Add(TokenLifetime),
	})
	if err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	return nil
}

// Retrieve loads and decrypts the token for (user, provider). A missing row
// is ErrTokenNotFound; a decryption failure is ErrCorruptCredential and must
// never be treated as "no token".
func (s *TokenStore) Retrieve(ctx context.Context, userID string, providerID int64) (string, error) {
	token, err := s.repo.GetByUserAndProvider(ctx, userID, providerID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}

	plaintext, err := s.encryptor.Decrypt(token.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptCredential, err)
	}

	return plaintext, nil
}

// Remove deletes the stored token for (user, provider).
func (s *TokenStore) Remove(ctx context.Context, userID string, providerID int64) error {
	return s.repo.Delete(ctx, userID, providerID)
}

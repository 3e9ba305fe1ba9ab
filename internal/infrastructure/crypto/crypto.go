package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// Salt for key derivation. Changing it invalidates every stored ciphertext,
// so it is versioned rather than configurable.
const keySalt = "finboard-token-v1"

var (
	ErrInvalidKey        = errors.New("encryption key must not be empty")
	ErrInvalidCiphertext = errors.New("ciphertext is malformed")
)

// Encryptor provides authenticated symmetric encryption (AES-256-GCM) for
// provider access tokens. The AES key is derived from the configured
// passphrase with scrypt.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives an AES-256 key from the passphrase and returns an
// encryptor ready for use.
func NewEncryptor(key string) (*Encryptor, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	derived, err := scrypt.Key([]byte(key), []byte(keySalt), 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt encrypts plaintext and returns base64(nonce || ciphertext || tag).
// A fresh random nonce is used per call, so encrypting the same plaintext
// twice yields different ciphertexts.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any tampering, truncation, or key mismatch fails
// authentication and returns an error; callers must treat that as a corrupt
// credential, not as an absent one.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	nonceSize := e.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: shorter than nonce", ErrInvalidCiphertext)
	}

	plaintext, err := e.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

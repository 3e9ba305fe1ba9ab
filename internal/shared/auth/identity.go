package auth

import "context"

// Identity is a verified external identity, as attested by the identity
// provider's ID token.
type Identity struct {
	UID           string
	Email         string
	Name          string
	PictureURL    string
	EmailVerified bool
}

// Verifier validates a raw ID token and returns the identity it attests.
// Implemented by the firebase infrastructure client.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"finboard/internal/shared/auth"
)

// Verifier implements auth.Verifier by validating Firebase ID tokens.
type Verifier struct {
	authClient *firebaseauth.Client
}

// NewVerifier initializes a Firebase app and returns an ID token verifier.
func NewVerifier(ctx context.Context, credentialsFile string) (*Verifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}

	return &Verifier{authClient: authClient}, nil
}

// Verify validates the ID token's signature and expiry and extracts the
// profile claims the identity provider attached.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*auth.Identity, error) {
	token, err := v.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	identity := &auth.Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		identity.EmailVerified = verified
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.Name = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		identity.PictureURL = picture
	}

	return identity, nil
}

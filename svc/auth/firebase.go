package auth

import (
	"context"
	"errors"

	fbauth "firebase.google.com/go/v4/auth"
)

// IDTokenVerifier is the subset of the Firebase auth client used here.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier validates Firebase ID tokens issued to the app.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

// NewFirebaseVerifier wraps a Firebase auth client.
func NewFirebaseVerifier(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// Verify checks the token signature and expiry with Firebase and maps the claims to a User.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*User, error) {
	if v == nil || v.client == nil {
		return nil, ErrVerifierNotSet
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if t.UID == "" {
		return nil, ErrMissingSubject
	}

	u := &User{ID: t.UID, Provider: ProviderFirebase}
	if email, ok := t.Claims["email"].(string); ok {
		u.Email = email
	}
	if verified, ok := t.Claims["email_verified"].(bool); ok {
		u.EmailVerified = verified
	}
	if t.Firebase.SignInProvider != "" {
		u.Provider = t.Firebase.SignInProvider
	}
	return u, nil
}

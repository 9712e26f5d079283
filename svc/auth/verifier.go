package auth

import (
	"context"
	"strings"
)

// Provider names accepted in IDENTITY_PROVIDER.
const (
	ProviderFirebase = "firebase"
	ProviderJWT      = "jwt"
)

// Config selects the identity provider.
type Config struct {
	Provider string `env:"IDENTITY_PROVIDER" envDefault:"firebase"`
}

// Verifier turns a bearer token into a User.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (*User, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (*User, error) {
	return f(ctx, token)
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

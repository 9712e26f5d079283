package auth

import (
	"context"
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/rafiki-assist/rafiki/pkg/jwt"
)

// IdentityClaims are carried by locally issued identity tokens.
type IdentityClaims struct {
	gojwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// JWTVerifier accepts HS256 identity tokens signed with the service key.
// It stands in for Firebase in development and tests.
type JWTVerifier struct {
	tokens *jwt.Service
}

// NewJWTVerifier returns a verifier backed by tokens.
func NewJWTVerifier(tokens *jwt.Service) *JWTVerifier {
	return &JWTVerifier{tokens: tokens}
}

// Verify parses the token and maps its claims to a User.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*User, error) {
	if v == nil || v.tokens == nil {
		return nil, ErrVerifierNotSet
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	var claims IdentityClaims
	if err := v.tokens.Parse(token, &claims); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return &User{
		ID:            claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Provider:      ProviderJWT,
	}, nil
}

// Issue signs an identity token for u valid for ttl.
func (v *JWTVerifier) Issue(u *User, ttl time.Duration) (string, error) {
	if v == nil || v.tokens == nil {
		return "", ErrVerifierNotSet
	}
	if !u.Valid() {
		return "", ErrMissingSubject
	}
	token, err := v.tokens.Sign(IdentityClaims{
		RegisteredClaims: v.tokens.Claims(u.ID, ttl),
		Email:            u.Email,
		EmailVerified:    u.EmailVerified,
	})
	if err != nil {
		return "", errors.Join(ErrFailedToIssueToken, err)
	}
	return token, nil
}

// Package jwt signs and parses HS256 tokens with golang-jwt. The service
// issues short-lived assurance tokens after a passed two-factor challenge
// and development identity tokens when Firebase is not configured.
package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSigningKey = errors.New("jwt: missing signing key")
	ErrInvalidToken      = errors.New("jwt: invalid token")
	ErrExpiredToken      = errors.New("jwt: token is expired")
)

// Config holds token settings read from the environment.
type Config struct {
	SigningKey   string        `env:"JWT_SIGNING_KEY,required"`
	Issuer       string        `env:"JWT_ISSUER" envDefault:"rafiki-2fa"`
	AssuranceTTL time.Duration `env:"JWT_ASSURANCE_TTL" envDefault:"12h"`
}

// Service signs and verifies tokens with a single HMAC key.
type Service struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the iss claim on issued tokens and requires it on parse.
func WithIssuer(iss string) Option {
	return func(s *Service) { s.issuer = iss }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Service. Keys shorter than 32 bytes are accepted but weak.
func New(key []byte, opts ...Option) (*Service, error) {
	if len(key) == 0 {
		return nil, ErrMissingSigningKey
	}
	s := &Service{key: key, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromConfig builds a Service from Config.
func NewFromConfig(cfg Config, opts ...Option) (*Service, error) {
	return New([]byte(cfg.SigningKey), append([]Option{WithIssuer(cfg.Issuer)}, opts...)...)
}

// Claims returns registered claims for subject valid for ttl from now,
// with a random jti.
func (s *Service) Claims(subject string, ttl time.Duration) gojwt.RegisteredClaims {
	now := s.now()
	return gojwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
}

// Sign returns the compact HS256 serialization of claims.
func (s *Service) Sign(claims gojwt.Claims) (string, error) {
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	return token, nil
}

// Parse verifies the signature, algorithm, expiry and issuer and fills claims.
func (s *Service) Parse(token string, claims gojwt.Claims) error {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}

	_, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return s.key, nil
	}, opts...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gojwt.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}

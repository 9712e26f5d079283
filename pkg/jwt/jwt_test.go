package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/pkg/jwt"
)

type assuranceClaims struct {
	gojwt.RegisteredClaims
	AMR []string `json:"amr"`
}

func TestService_SignParse(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return now }

	svc, err := jwt.New([]byte("0123456789abcdef0123456789abcdef"), jwt.WithIssuer("rafiki"), jwt.WithClock(clock))
	require.NoError(t, err)

	token, err := svc.Sign(assuranceClaims{
		RegisteredClaims: svc.Claims("user-1", time.Hour),
		AMR:              []string{"otp"},
	})
	require.NoError(t, err)

	var got assuranceClaims
	require.NoError(t, svc.Parse(token, &got))
	assert.Equal(t, "user-1", got.Subject)
	assert.Equal(t, "rafiki", got.Issuer)
	assert.Equal(t, []string{"otp"}, got.AMR)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, now.Add(time.Hour).Unix(), got.ExpiresAt.Unix())
}

func TestService_Parse_Rejects(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	key := []byte("0123456789abcdef0123456789abcdef")

	issuer, err := jwt.New(key, jwt.WithIssuer("rafiki"), jwt.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	token, err := issuer.Sign(issuer.Claims("user-1", time.Minute))
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		later, err := jwt.New(key, jwt.WithIssuer("rafiki"), jwt.WithClock(func() time.Time { return now.Add(2 * time.Minute) }))
		require.NoError(t, err)
		var c gojwt.RegisteredClaims
		assert.ErrorIs(t, later.Parse(token, &c), jwt.ErrExpiredToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()
		other, err := jwt.New([]byte("another-key-another-key-another!"), jwt.WithIssuer("rafiki"), jwt.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		var c gojwt.RegisteredClaims
		assert.ErrorIs(t, other.Parse(token, &c), jwt.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()
		other, err := jwt.New(key, jwt.WithIssuer("someone-else"), jwt.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		var c gojwt.RegisteredClaims
		assert.ErrorIs(t, other.Parse(token, &c), jwt.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		var c gojwt.RegisteredClaims
		assert.ErrorIs(t, issuer.Parse("not.a.token", &c), jwt.ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		t.Parallel()
		raw, err := issuer.Sign(gojwt.RegisteredClaims{Subject: "user-1", Issuer: "rafiki"})
		require.NoError(t, err)
		var c gojwt.RegisteredClaims
		assert.ErrorIs(t, issuer.Parse(raw, &c), jwt.ErrInvalidToken)
	})
}

func TestNew_MissingKey(t *testing.T) {
	t.Parallel()

	_, err := jwt.New(nil)
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)

	_, err = jwt.NewFromConfig(jwt.Config{})
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)
}

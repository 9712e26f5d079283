package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/pkg/jwt"
	"github.com/rafiki-assist/rafiki/svc/auth"
)

type mockIDTokenVerifier struct {
	mock.Mock
}

func (m *mockIDTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fbauth.Token), args.Error(1)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := auth.BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestFirebaseVerifier(t *testing.T) {
	t.Parallel()

	t.Run("maps claims", func(t *testing.T) {
		t.Parallel()
		client := &mockIDTokenVerifier{}
		client.On("VerifyIDToken", mock.Anything, "tok").Return(&fbauth.Token{
			UID:      "uid-1",
			Claims:   map[string]any{"email": "mama@example.com", "email_verified": true},
			Firebase: fbauth.FirebaseInfo{SignInProvider: "password"},
		}, nil)

		u, err := auth.NewFirebaseVerifier(client).Verify(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, &auth.User{ID: "uid-1", Email: "mama@example.com", EmailVerified: true, Provider: "password"}, u)
		client.AssertExpectations(t)
	})

	t.Run("rejected token", func(t *testing.T) {
		t.Parallel()
		client := &mockIDTokenVerifier{}
		client.On("VerifyIDToken", mock.Anything, "bad").Return(nil, errors.New("expired"))

		_, err := auth.NewFirebaseVerifier(client).Verify(context.Background(), "bad")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		_, err := auth.NewFirebaseVerifier(&mockIDTokenVerifier{}).Verify(context.Background(), "")
		assert.ErrorIs(t, err, auth.ErrMissingToken)
	})

	t.Run("no client", func(t *testing.T) {
		t.Parallel()
		_, err := auth.NewFirebaseVerifier(nil).Verify(context.Background(), "tok")
		assert.ErrorIs(t, err, auth.ErrVerifierNotSet)
	})
}

func newJWTVerifier(t *testing.T) *auth.JWTVerifier {
	t.Helper()
	tokens, err := jwt.New([]byte("0123456789abcdef0123456789abcdef"), jwt.WithIssuer("rafiki"))
	require.NoError(t, err)
	return auth.NewJWTVerifier(tokens)
}

func TestJWTVerifier_IssueVerify(t *testing.T) {
	t.Parallel()

	v := newJWTVerifier(t)
	token, err := v.Issue(&auth.User{ID: "uid-7", Email: "a@b.c", EmailVerified: true}, time.Hour)
	require.NoError(t, err)

	u, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "uid-7", u.ID)
	assert.Equal(t, "a@b.c", u.Email)
	assert.True(t, u.EmailVerified)
	assert.Equal(t, auth.ProviderJWT, u.Provider)

	_, err = v.Verify(context.Background(), token+"x")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Issue(&auth.User{}, time.Hour)
	assert.ErrorIs(t, err, auth.ErrMissingSubject)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	v := auth.VerifierFunc(func(_ context.Context, token string) (*auth.User, error) {
		if token == "good" {
			return &auth.User{ID: "uid-1"}, nil
		}
		return nil, auth.ErrInvalidToken
	})

	var seen *auth.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := auth.Middleware(v, nil, nil)(next)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantUser string
	}{
		{"valid token", "Bearer good", http.StatusNoContent, "uid-1"},
		{"anonymous", "", http.StatusNoContent, ""},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, tt.wantCode, rec.Code, tt.name)
		if tt.wantUser == "" {
			assert.Nil(t, seen, tt.name)
		} else {
			require.NotNil(t, seen, tt.name)
			assert.Equal(t, tt.wantUser, seen.ID, tt.name)
		}
	}
}

func TestUser(t *testing.T) {
	t.Parallel()

	var nilUser *auth.User
	assert.False(t, nilUser.Valid())
	assert.False(t, (&auth.User{}).Valid())
	assert.True(t, (&auth.User{ID: "x"}).Valid())
	assert.Equal(t, "x", (&auth.User{ID: "x"}).AccountName())
	assert.Equal(t, "a@b.c", (&auth.User{ID: "x", Email: "a@b.c"}).AccountName())

	ctx := auth.ContextWithUser(context.Background(), &auth.User{ID: "x"})
	assert.Equal(t, "x", auth.UserFromContext(ctx).ID)
	assert.Nil(t, auth.UserFromContext(context.Background()))
	assert.Nil(t, auth.UserFromContext(auth.ContextWithUser(context.Background(), &auth.User{})),
		"a user without an ID is not attached")
}

package twofa_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/handler"
	"github.com/rafiki-assist/rafiki/modules/twofa"
	"github.com/rafiki-assist/rafiki/pkg/ratelimiter"
	"github.com/rafiki-assist/rafiki/pkg/totp"
	"github.com/rafiki-assist/rafiki/svc/auth"
	"github.com/rafiki-assist/rafiki/svc/flow"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type envelope struct {
	Data  json.RawMessage      `json:"data"`
	Error *handler.ErrorDetail `json:"error"`
}

type api struct {
	t      *testing.T
	router http.Handler
	clock  *clock
}

func newAPI(t *testing.T, opts ...twofa.Option) *api {
	t.Helper()

	clk := &clock{now: time.Date(2026, 5, 1, 9, 0, 15, 0, time.UTC)}
	svc := twofactor.NewService(twofactor.NewMemoryStore(),
		twofactor.WithHashParams(totp.HashParams{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32}),
		twofactor.WithClock(clk.Now),
	)
	flows := flow.NewController(svc, flow.NewMemoryStore(time.Minute), flow.WithClock(clk.Now))
	module := twofa.NewModule(svc, flows, opts...)

	verifier := auth.VerifierFunc(func(_ context.Context, token string) (*auth.User, error) {
		id, ok := strings.CutPrefix(token, "token-")
		if !ok {
			return nil, auth.ErrInvalidToken
		}
		return &auth.User{ID: id, Email: id + "@example.com"}, nil
	})

	r := chi.NewRouter()
	r.Use(auth.Middleware(verifier, nil, module.Unauthorized))
	r.Mount("/v1/2fa", module.Handle())

	return &api{t: t, router: r, clock: clk}
}

func (a *api) do(method, path, token, body string) (int, envelope, http.Header) {
	a.t.Helper()

	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env, w.Header()
}

func (a *api) code(secret string) string {
	a.t.Helper()
	code, err := totp.GenerateCode(totp.Params{Secret: secret}, a.clock.Now())
	require.NoError(a.t, err)
	return code
}

func errorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

// enroll walks the setup flow over HTTP and returns the secret and backup
// codes.
func (a *api) enroll(token string) (string, []string) {
	a.t.Helper()

	status, env, _ := a.do(http.MethodPost, "/v1/2fa/setup", token, "")
	require.Equal(a.t, http.StatusCreated, status)
	var view flow.SetupView
	require.NoError(a.t, json.Unmarshal(env.Data, &view))

	status, _, _ = a.do(http.MethodPost, "/v1/2fa/setup/"+view.FlowID+"/code-entry", token, "")
	require.Equal(a.t, http.StatusOK, status)

	status, env, _ = a.do(http.MethodPost, "/v1/2fa/setup/"+view.FlowID+"/verify", token, `{"code":"`+a.code(view.Secret)+`"}`)
	require.Equal(a.t, http.StatusOK, status)
	var codes twofa.BackupCodesResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &codes))

	status, _, _ = a.do(http.MethodPost, "/v1/2fa/setup/"+view.FlowID+"/complete", token, "")
	require.Equal(a.t, http.StatusOK, status)
	return view.Secret, codes.BackupCodes
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	a := newAPI(t)

	status, env, headers := a.do(http.MethodGet, "/v1/2fa/status", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "no_authenticated_user", errorCode(env))
	assert.Equal(t, "no-store", headers.Get("Cache-Control"))

	status, env, _ = a.do(http.MethodGet, "/v1/2fa/status", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", errorCode(env))
}

func TestSetupFlow(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	const token = "token-u1"

	status, env, headers := a.do(http.MethodPost, "/v1/2fa/setup", token, "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "no-store", headers.Get("Cache-Control"))

	var view flow.SetupView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, flow.StateScan, view.State)
	assert.NotEmpty(t, view.FlowID)
	assert.Contains(t, view.ProvisioningURI, "secret="+view.Secret)
	assert.True(t, strings.HasPrefix(view.QRCode, "data:image/png;base64,"))

	base := "/v1/2fa/setup/" + view.FlowID

	status, env, _ = a.do(http.MethodPost, base+"/verify", token, `{"code":"`+a.code(view.Secret)+`"}`)
	assert.Equal(t, http.StatusConflict, status, "code entry must be opened first")
	assert.Equal(t, "invalid_flow_state", errorCode(env))

	status, _, _ = a.do(http.MethodPost, base+"/code-entry", token, "")
	require.Equal(t, http.StatusOK, status)

	status, env, _ = a.do(http.MethodPost, base+"/verify", token, `{"code":"12ab56"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "malformed_code", errorCode(env))

	wrong, err := totp.GenerateCode(totp.Params{Secret: view.Secret}, a.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	status, env, _ = a.do(http.MethodPost, base+"/verify", token, `{"code":"`+wrong+`"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "verification_failed", errorCode(env))

	status, env, _ = a.do(http.MethodPost, base+"/verify", token, `{"code":"123456","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", errorCode(env))

	status, env, _ = a.do(http.MethodPost, base+"/verify", token, `{"code":"`+a.code(view.Secret)+`"}`)
	require.Equal(t, http.StatusOK, status)
	var codes twofa.BackupCodesResponse
	require.NoError(t, json.Unmarshal(env.Data, &codes))
	assert.Len(t, codes.BackupCodes, totp.DefaultBackupCodeCount)

	status, _, _ = a.do(http.MethodPost, base+"/complete", token, `{"skip_backup":true}`)
	require.Equal(t, http.StatusOK, status)

	status, env, _ = a.do(http.MethodGet, "/v1/2fa/status", token, "")
	require.Equal(t, http.StatusOK, status)
	var st twofactor.Status
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.True(t, st.Enabled)
	assert.Equal(t, totp.DefaultBackupCodeCount, st.BackupCodesRemaining)

	status, env, _ = a.do(http.MethodPost, base+"/complete", token, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "flow_not_found", errorCode(env))

	status, env, _ = a.do(http.MethodPost, "/v1/2fa/setup", token, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_enabled", errorCode(env))
}

func TestSetupRestart(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	const token = "token-u1"

	_, env, _ := a.do(http.MethodPost, "/v1/2fa/setup", token, "")
	var first flow.SetupView
	require.NoError(t, json.Unmarshal(env.Data, &first))

	status, env, _ := a.do(http.MethodPost, "/v1/2fa/setup/"+first.FlowID+"/restart", token, "")
	require.Equal(t, http.StatusOK, status)
	var second flow.SetupView
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, first.FlowID, second.FlowID)
	assert.NotEqual(t, first.Secret, second.Secret)

	status, env, _ = a.do(http.MethodPost, "/v1/2fa/setup/"+first.FlowID+"/restart", "token-u2", "")
	assert.Equal(t, http.StatusNotFound, status, "flows are private to their user")
	assert.Equal(t, "flow_not_found", errorCode(env))
}

func TestChallenge(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	const token = "token-u1"

	status, env, _ := a.do(http.MethodPost, "/v1/2fa/challenge", token, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"required":false}`, string(env.Data))

	secret, codes := a.enroll(token)
	a.clock.Advance(time.Minute)

	startChallenge := func() string {
		status, env, _ := a.do(http.MethodPost, "/v1/2fa/challenge", token, "")
		require.Equal(t, http.StatusOK, status)
		var ch flow.Challenge
		require.NoError(t, json.Unmarshal(env.Data, &ch))
		require.True(t, ch.Required)
		return ch.ID
	}

	id := startChallenge()
	status, env, _ = a.do(http.MethodPost, "/v1/2fa/challenge/"+id+"/verify", token, `{"code":"`+a.code(secret)+`"}`)
	require.Equal(t, http.StatusOK, status)
	var res flow.ChallengeResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, flow.StateVerified, res.State)
	assert.Equal(t, flow.MethodOTP, res.Method)

	id = startChallenge()
	status, env, _ = a.do(http.MethodPost, "/v1/2fa/challenge/"+id+"/verify", token, `{"backup_code":"`+codes[0]+`"}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, flow.MethodBackup, res.Method)

	id = startChallenge()
	status, env, _ = a.do(http.MethodPost, "/v1/2fa/challenge/"+id+"/verify", token, `{"backup_code":"`+codes[0]+`"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_or_used_code", errorCode(env))

	status, env, _ = a.do(http.MethodPost, "/v1/2fa/challenge/unknown/verify", token, `{"code":"123456"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "flow_not_found", errorCode(env))
}

func TestChallenge_AttemptsExhausted(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	const token = "token-u1"

	secret, _ := a.enroll(token)
	_, env, _ := a.do(http.MethodPost, "/v1/2fa/challenge", token, "")
	var ch flow.Challenge
	require.NoError(t, json.Unmarshal(env.Data, &ch))

	wrong, err := totp.GenerateCode(totp.Params{Secret: secret}, a.clock.Now().Add(-time.Hour))
	require.NoError(t, err)

	var status int
	for range flow.DefaultMaxAttempts {
		status, env, _ = a.do(http.MethodPost, "/v1/2fa/challenge/"+ch.ID+"/verify", token, `{"code":"`+wrong+`"}`)
	}
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "attempts_exhausted", errorCode(env))
}

func TestChallenge_ConcurrentWrongCodes(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	const token = "token-u1"

	secret, _ := a.enroll(token)
	_, env, _ := a.do(http.MethodPost, "/v1/2fa/challenge", token, "")
	var ch flow.Challenge
	require.NoError(t, json.Unmarshal(env.Data, &ch))

	wrong, err := totp.GenerateCode(totp.Params{Secret: secret}, a.clock.Now().Add(-time.Hour))
	require.NoError(t, err)

	const callers = 20
	statuses := make([]int, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := httptest.NewRequest(http.MethodPost, "/v1/2fa/challenge/"+ch.ID+"/verify",
				strings.NewReader(`{"code":"`+wrong+`"}`))
			r.Header.Set("Content-Type", "application/json")
			r.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			a.router.ServeHTTP(w, r)
			statuses[i] = w.Code
		}()
	}
	wg.Wait()

	counts := map[int]int{}
	for _, st := range statuses {
		counts[st]++
	}
	assert.Equal(t, flow.DefaultMaxAttempts-1, counts[http.StatusUnauthorized], "wrong codes evaluated: %v", counts)
	assert.Positive(t, counts[http.StatusTooManyRequests])
	assert.Equal(t, callers, counts[http.StatusUnauthorized]+counts[http.StatusTooManyRequests]+counts[http.StatusNotFound])
}

func TestChallenge_RateLimited(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithSweepInterval(0))
	t.Cleanup(store.Close)
	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Hour})
	require.NoError(t, err)

	a := newAPI(t, twofa.WithRateLimiter(limiter))
	const token = "token-u1"

	for range 2 {
		status, _, _ := a.do(http.MethodPost, "/v1/2fa/challenge/unknown/verify", token, `{"code":"123456"}`)
		assert.Equal(t, http.StatusNotFound, status)
	}
	status, env, headers := a.do(http.MethodPost, "/v1/2fa/challenge/unknown/verify", token, `{"code":"123456"}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "too_many_requests", errorCode(env))
	assert.NotEmpty(t, headers.Get("Retry-After"))

	status, _, _ = a.do(http.MethodPost, "/v1/2fa/challenge/unknown/verify", "token-u2", `{"code":"123456"}`)
	assert.Equal(t, http.StatusNotFound, status, "limits are per user")
}

func TestBackupCodesAndDisable(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	const token = "token-u1"

	status, _, _ := a.do(http.MethodDelete, "/v1/2fa/", token, "")
	assert.Equal(t, http.StatusNoContent, status, "disabling is idempotent")

	secret, old := a.enroll(token)
	a.clock.Advance(time.Minute)

	status, env, _ := a.do(http.MethodPost, "/v1/2fa/backup-codes", token, `{"code":"000000"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "verification_failed", errorCode(env))

	status, env, _ = a.do(http.MethodPost, "/v1/2fa/backup-codes", token, `{"code":"`+a.code(secret)+`"}`)
	require.Equal(t, http.StatusOK, status)
	var fresh twofa.BackupCodesResponse
	require.NoError(t, json.Unmarshal(env.Data, &fresh))
	assert.Len(t, fresh.BackupCodes, totp.DefaultBackupCodeCount)
	assert.NotEqual(t, old, fresh.BackupCodes)

	status, _, _ = a.do(http.MethodDelete, "/v1/2fa/", token, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, env, _ = a.do(http.MethodGet, "/v1/2fa/status", token, "")
	require.Equal(t, http.StatusOK, status)
	var st twofactor.Status
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.False(t, st.Enabled)
}

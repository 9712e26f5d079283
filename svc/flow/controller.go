package flow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rafiki-assist/rafiki/pkg/jwt"
	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/statemachine"
	"github.com/rafiki-assist/rafiki/pkg/totp"
	"github.com/rafiki-assist/rafiki/svc/auth"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

const (
	DefaultSetupTTL    = 15 * time.Minute
	DefaultLoginTTL    = 5 * time.Minute
	DefaultMaxAttempts = 5
	DefaultTokenTTL    = 12 * time.Hour
)

// TwoFactor is the part of twofactor.Service the flows drive.
type TwoFactor interface {
	GenerateSecret(ctx context.Context, user *auth.User) (*twofactor.Credential, error)
	ProvisioningURI(cred *twofactor.Credential, account string) (string, error)
	ProvisioningQR(cred *twofactor.Credential, account string, size int) (string, error)
	EnableTwoFactor(ctx context.Context, user *auth.User, cred *twofactor.Credential, firstCode string) ([]string, error)
	IsEnabled(ctx context.Context, user *auth.User) (bool, error)
	VerifyLogin(ctx context.Context, user *auth.User, code string, now time.Time) error
	RedeemBackupCode(ctx context.Context, user *auth.User, code string) error
}

// Controller runs the setup and login flows. Each request restores the
// session's state machine, fires one event and saves the session again.
type Controller struct {
	tf          TwoFactor
	sessions    SessionStore
	cipher      *totp.Cipher
	tokens      *jwt.Service
	tokenTTL    time.Duration
	setupTTL    time.Duration
	loginTTL    time.Duration
	maxAttempts int
	now         func() time.Time
	log         *slog.Logger

	setup *statemachine.Definition
	login *statemachine.Definition
}

// Option configures a Controller.
type Option func(*Controller)

// WithCipher encrypts the pending secret inside setup sessions.
func WithCipher(c *totp.Cipher) Option {
	return func(ctl *Controller) { ctl.cipher = c }
}

// WithAssuranceTokens signs a token for every passed login challenge.
func WithAssuranceTokens(tokens *jwt.Service, ttl time.Duration) Option {
	return func(ctl *Controller) {
		ctl.tokens = tokens
		if ttl > 0 {
			ctl.tokenTTL = ttl
		}
	}
}

// WithTTLs overrides how long setup and login sessions live.
func WithTTLs(setup, login time.Duration) Option {
	return func(ctl *Controller) {
		if setup > 0 {
			ctl.setupTTL = setup
		}
		if login > 0 {
			ctl.loginTTL = login
		}
	}
}

// WithMaxAttempts sets how many wrong codes a login challenge tolerates.
func WithMaxAttempts(n int) Option {
	return func(ctl *Controller) {
		if n > 0 {
			ctl.maxAttempts = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(ctl *Controller) {
		if now != nil {
			ctl.now = now
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(log *slog.Logger) Option {
	return func(ctl *Controller) {
		if log != nil {
			ctl.log = log
		}
	}
}

// NewController wires the flows to tf and sessions.
func NewController(tf TwoFactor, sessions SessionStore, opts ...Option) *Controller {
	c := &Controller{
		tf:          tf,
		sessions:    sessions,
		tokenTTL:    DefaultTokenTTL,
		setupTTL:    DefaultSetupTTL,
		loginTTL:    DefaultLoginTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.setup = c.defineSetup()
	c.login = c.defineLogin()
	return c
}

func (c *Controller) defineSetup() *statemachine.Definition {
	logged := statemachine.WithAction(c.logTransition)
	return statemachine.MustDefine(StateIntro,
		statemachine.WithTransition(StateIntro, StateScan, EventSecretGenerated, logged),
		statemachine.WithTransition(StateScan, StateVerify, EventCodeEntryOpened, logged),
		statemachine.WithTransition(StateVerify, StateBackup, EventEnabled,
			statemachine.WithAction(c.enableAction), logged),
		statemachine.WithTransition(StateBackup, StateComplete, EventAcknowledged, logged),
		statemachine.WithTransition(StateBackup, StateComplete, EventSkipped, logged),
		statemachine.WithTransition(StateScan, StateIntro, EventRestarted, logged),
		statemachine.WithTransition(StateVerify, StateIntro, EventRestarted, logged),
	)
}

func (c *Controller) defineLogin() *statemachine.Definition {
	logged := statemachine.WithAction(c.logTransition)
	return statemachine.MustDefine(StateChallenge,
		statemachine.WithTransition(StateChallenge, StateVerified, EventCodeVerified,
			statemachine.WithAction(c.verifyCodeAction), logged),
		statemachine.WithTransition(StateChallenge, StateVerified, EventBackupRedeemed,
			statemachine.WithAction(c.redeemBackupAction), logged),
		statemachine.WithTransition(StateChallenge, StateFailed, EventAttemptsExhausted,
			statemachine.WithGuard(c.attemptsExhausted), logged),
	)
}

// input is the per-request payload handed to transition actions.
type input struct {
	session *Session
	user    *auth.User
	cred    *twofactor.Credential
	code    string
	codes   []string
}

func (c *Controller) enableAction(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	in := data.(*input)
	codes, err := c.tf.EnableTwoFactor(ctx, in.user, in.cred, in.code)
	if err != nil {
		return err
	}
	in.codes = codes
	return nil
}

func (c *Controller) verifyCodeAction(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	in := data.(*input)
	return c.tf.VerifyLogin(ctx, in.user, in.code, c.now())
}

func (c *Controller) redeemBackupAction(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	in := data.(*input)
	return c.tf.RedeemBackupCode(ctx, in.user, in.code)
}

func (c *Controller) attemptsExhausted(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
	in, ok := data.(*input)
	return ok && in.session.Attempts >= c.maxAttempts
}

func (c *Controller) logTransition(ctx context.Context, from, to statemachine.State, event statemachine.Event, data any) error {
	attrs := []any{
		logger.Transition(string(from), string(to), string(event)),
		logger.Component("flow"),
	}
	if in, ok := data.(*input); ok {
		attrs = append(attrs,
			logger.FlowID(in.session.ID),
			logger.UserID(in.session.UserID),
		)
	}
	c.log.InfoContext(ctx, "flow transition", attrs...)
	return nil
}

func (c *Controller) newSession(kind Kind, user *auth.User, state statemachine.State, ttl time.Duration) *Session {
	now := c.now()
	return &Session{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    user.ID,
		State:     state,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// load returns the caller's session of kind. Sessions of other users are
// reported as missing.
func (c *Controller) load(ctx context.Context, user *auth.User, kind Kind, id string) (*Session, error) {
	if !user.Valid() {
		return nil, twofactor.ErrNoAuthenticatedUser
	}
	if id == "" {
		return nil, ErrFlowNotFound
	}
	s, err := c.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Kind != kind || s.UserID != user.ID || s.Expired(c.now()) {
		return nil, ErrFlowNotFound
	}
	return s, nil
}

func (c *Controller) save(ctx context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return ErrFlowNotFound
	}
	return c.sessions.Save(ctx, s, ttl)
}

func (c *Controller) discard(ctx context.Context, s *Session) {
	if err := c.sessions.Delete(ctx, s.ID); err != nil {
		c.log.WarnContext(ctx, "failed to delete finished flow session",
			logger.FlowID(s.ID),
			logger.Error(err),
			logger.Component("flow"),
		)
	}
}

// fire runs event on m and folds state machine errors into flow errors.
func fire(ctx context.Context, m *statemachine.Machine, event statemachine.Event, data any) error {
	err := m.Fire(ctx, event, data)
	if statemachine.IsNoTransition(err) || statemachine.IsRejected(err) {
		return errors.Join(ErrInvalidFlowState, err)
	}
	return err
}

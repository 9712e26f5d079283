package flow

import (
	"context"
	"errors"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/statemachine"
	"github.com/rafiki-assist/rafiki/svc/auth"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// AssuranceClaims mark a session that passed the second factor.
type AssuranceClaims struct {
	gojwt.RegisteredClaims
	AMR []string `json:"amr"`
}

// StartChallenge opens a login challenge when the user has 2FA on.
func (c *Controller) StartChallenge(ctx context.Context, user *auth.User) (*Challenge, error) {
	if !user.Valid() {
		return nil, twofactor.ErrNoAuthenticatedUser
	}
	enabled, err := c.tf.IsEnabled(ctx, user)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return &Challenge{Required: false}, nil
	}

	s := c.newSession(KindLogin, user, StateChallenge, c.loginTTL)
	if err := c.save(ctx, s); err != nil {
		return nil, err
	}
	return &Challenge{Required: true, ID: s.ID, ExpiresAt: &s.ExpiresAt}, nil
}

// VerifyChallenge checks a TOTP code, or a backup code when backupCode is
// set. Every call counts as an attempt before the code is looked at, and
// once the challenge has seen too many attempts it fails and the user has
// to sign in again. A passed challenge is consumed by exactly one caller.
func (c *Controller) VerifyChallenge(ctx context.Context, user *auth.User, challengeID, code, backupCode string) (*ChallengeResult, error) {
	s, err := c.load(ctx, user, KindLogin, challengeID)
	if err != nil {
		return nil, err
	}
	m, err := c.login.Restore(s.State)
	if err != nil {
		return nil, errors.Join(ErrFlowNotFound, err)
	}

	event, method, value := EventCodeVerified, MethodOTP, code
	if strings.TrimSpace(backupCode) != "" {
		event, method, value = EventBackupRedeemed, MethodBackup, backupCode
	}
	in := &input{session: s, user: user, code: value}

	ttl := s.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil, ErrFlowNotFound
	}
	s.Attempts, err = c.sessions.IncrAttempts(ctx, s.ID, ttl)
	if err != nil {
		return nil, err
	}
	if s.Attempts > c.maxAttempts {
		return nil, c.recordFailure(ctx, s, m, in, nil)
	}

	err = fire(ctx, m, event, in)
	switch {
	case err == nil:
	case errors.Is(err, twofactor.ErrVerificationFailed),
		errors.Is(err, twofactor.ErrInvalidOrUsedCode),
		errors.Is(err, twofactor.ErrMalformedCode):
		return nil, c.recordFailure(ctx, s, m, in, err)
	default:
		return nil, err
	}

	consumed, err := c.sessions.Consume(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrFlowNotFound
	}

	res := &ChallengeResult{State: m.Current(), Method: method}
	if c.tokens != nil {
		token, err := c.tokens.Sign(AssuranceClaims{
			RegisteredClaims: c.tokens.Claims(user.ID, c.tokenTTL),
			AMR:              []string{method},
		})
		if err != nil {
			return nil, err
		}
		res.Token = token
	}
	return res, nil
}

// recordFailure fails the challenge once the attempt budget is spent.
// cause is nil when the code was never evaluated.
func (c *Controller) recordFailure(ctx context.Context, s *Session, m *statemachine.Machine, in *input, cause error) error {
	if !m.CanFire(ctx, EventAttemptsExhausted, in) {
		if cause == nil {
			return ErrAttemptsExhausted
		}
		return cause
	}
	if err := fire(ctx, m, EventAttemptsExhausted, in); err != nil {
		return err
	}
	c.log.WarnContext(ctx, "login challenge failed after too many attempts",
		logger.UserID(s.UserID),
		logger.FlowID(s.ID),
		logger.Component("flow"),
	)
	c.discard(ctx, s)
	return errors.Join(ErrAttemptsExhausted, cause)
}

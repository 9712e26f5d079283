package flow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/statemachine"
	"github.com/rafiki-assist/rafiki/pkg/totp"
	"github.com/rafiki-assist/rafiki/svc/auth"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// StartSetup opens a setup session, generates a pending secret and moves
// to the scan step.
func (c *Controller) StartSetup(ctx context.Context, user *auth.User) (*SetupView, error) {
	if !user.Valid() {
		return nil, twofactor.ErrNoAuthenticatedUser
	}
	enabled, err := c.tf.IsEnabled(ctx, user)
	if err != nil {
		return nil, err
	}
	if enabled {
		return nil, twofactor.ErrAlreadyEnabled
	}

	s := c.newSession(KindSetup, user, StateIntro, c.setupTTL)
	m, err := c.setup.Restore(s.State)
	if err != nil {
		return nil, err
	}
	return c.provision(ctx, user, s, m)
}

// provision generates a secret, stores it on s and fires secret_generated.
func (c *Controller) provision(ctx context.Context, user *auth.User, s *Session, m *statemachine.Machine) (*SetupView, error) {
	cred, err := c.tf.GenerateSecret(ctx, user)
	if err != nil {
		return nil, err
	}
	sealed, err := c.seal(user.ID, cred.Secret)
	if err != nil {
		return nil, err
	}
	s.PendingSecret = sealed

	if err := fire(ctx, m, EventSecretGenerated, &input{session: s, user: user}); err != nil {
		return nil, err
	}
	s.State = m.Current()
	if err := c.save(ctx, s); err != nil {
		return nil, err
	}

	account := user.AccountName()
	uri, err := c.tf.ProvisioningURI(cred, account)
	if err != nil {
		return nil, err
	}
	qr, err := c.tf.ProvisioningQR(cred, account, 0)
	if err != nil {
		return nil, err
	}
	return &SetupView{
		FlowID:          s.ID,
		State:           s.State,
		Secret:          cred.Secret,
		FormattedSecret: totp.FormatSecret(cred.Secret),
		ProvisioningURI: uri,
		QRCode:          qr,
		ExpiresAt:       s.ExpiresAt,
	}, nil
}

// OpenCodeEntry moves from the scan step to code entry.
func (c *Controller) OpenCodeEntry(ctx context.Context, user *auth.User, flowID string) (*SetupView, error) {
	s, m, err := c.restoreSetup(ctx, user, flowID)
	if err != nil {
		return nil, err
	}
	if err := fire(ctx, m, EventCodeEntryOpened, &input{session: s, user: user}); err != nil {
		return nil, err
	}
	s.State = m.Current()
	if err := c.save(ctx, s); err != nil {
		return nil, err
	}
	return &SetupView{FlowID: s.ID, State: s.State, ExpiresAt: s.ExpiresAt}, nil
}

// SubmitSetupCode enables 2FA when code matches the pending secret and
// returns the backup codes once. A wrong code leaves the flow in the verify
// step so the user can try again.
func (c *Controller) SubmitSetupCode(ctx context.Context, user *auth.User, flowID, code string) ([]string, error) {
	s, m, err := c.restoreSetup(ctx, user, flowID)
	if err != nil {
		return nil, err
	}
	if s.State != StateVerify {
		return nil, errors.Join(ErrInvalidFlowState, &statemachine.NoTransitionError{State: s.State, Event: EventEnabled})
	}

	secret, err := c.open(s.UserID, s.PendingSecret)
	if err != nil {
		return nil, err
	}
	in := &input{
		session: s,
		user:    user,
		cred:    &twofactor.Credential{Secret: secret},
		code:    code,
	}
	if err := fire(ctx, m, EventEnabled, in); err != nil {
		if errors.Is(err, twofactor.ErrVerificationFailed) || errors.Is(err, twofactor.ErrMalformedCode) {
			s.Attempts++
			if saveErr := c.save(ctx, s); saveErr != nil {
				return nil, saveErr
			}
		}
		return nil, err
	}

	s.State = m.Current()
	s.PendingSecret = ""
	if err := c.save(ctx, s); err != nil {
		return nil, err
	}
	return in.codes, nil
}

// CompleteSetup finishes the flow after the backup codes were shown. When
// skipBackup is set the user chose not to save them; the issued set stays
// valid.
func (c *Controller) CompleteSetup(ctx context.Context, user *auth.User, flowID string, skipBackup bool) (*SetupView, error) {
	s, m, err := c.restoreSetup(ctx, user, flowID)
	if err != nil {
		return nil, err
	}

	event := EventAcknowledged
	if skipBackup {
		event = EventSkipped
	}
	if err := fire(ctx, m, event, &input{session: s, user: user}); err != nil {
		return nil, err
	}
	s.State = m.Current()
	s.BackupSkipped = skipBackup
	if skipBackup {
		c.log.InfoContext(ctx, "backup codes skipped during setup",
			logger.UserID(user.ID),
			logger.FlowID(s.ID),
			logger.Component("flow"),
		)
	}
	c.discard(ctx, s)
	return &SetupView{FlowID: s.ID, State: s.State, ExpiresAt: s.ExpiresAt}, nil
}

// RestartSetup drops the pending secret, returns to intro and provisions a
// new secret in the same session.
func (c *Controller) RestartSetup(ctx context.Context, user *auth.User, flowID string) (*SetupView, error) {
	s, m, err := c.restoreSetup(ctx, user, flowID)
	if err != nil {
		return nil, err
	}
	if err := fire(ctx, m, EventRestarted, &input{session: s, user: user}); err != nil {
		return nil, err
	}
	s.State = m.Current()
	s.PendingSecret = ""
	s.Attempts = 0
	c.log.DebugContext(ctx, "setup restarted",
		logger.FlowID(s.ID),
		logger.Component("flow"),
		slog.Time("expires_at", s.ExpiresAt),
	)
	return c.provision(ctx, user, s, m)
}

func (c *Controller) restoreSetup(ctx context.Context, user *auth.User, flowID string) (*Session, *statemachine.Machine, error) {
	s, err := c.load(ctx, user, KindSetup, flowID)
	if err != nil {
		return nil, nil, err
	}
	m, err := c.setup.Restore(s.State)
	if err != nil {
		return nil, nil, errors.Join(ErrFlowNotFound, err)
	}
	return s, m, nil
}

func (c *Controller) seal(userID, secret string) (string, error) {
	if c.cipher == nil {
		return secret, nil
	}
	return c.cipher.EncryptFor(secret, userID)
}

func (c *Controller) open(userID, sealed string) (string, error) {
	if sealed == "" {
		return "", ErrInvalidFlowState
	}
	if c.cipher == nil {
		return sealed, nil
	}
	return c.cipher.DecryptFor(sealed, userID)
}

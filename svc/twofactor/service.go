package twofactor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/qrcode"
	"github.com/rafiki-assist/rafiki/pkg/totp"
	"github.com/rafiki-assist/rafiki/svc/auth"
)

const (
	purposeSetup = "setup"
	purposeLogin = "login"

	notifyTimeout = 10 * time.Second
)

// Service owns the TOTP credential and backup codes of each account.
type Service struct {
	store       Store
	cipher      *totp.Cipher
	issuer      string
	defaults    totp.Params
	backupCount int
	hashParams  totp.HashParams
	qrSize      int
	now         func() time.Time
	log         *slog.Logger
	metrics     *Metrics
	notifier    Notifier
}

// NewService returns a Service persisting through store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		issuer:      "Rafiki Assist",
		defaults:    totp.Params{}.WithDefaults(),
		backupCount: totp.DefaultBackupCodeCount,
		hashParams:  totp.DefaultHashParams,
		qrSize:      qrcode.DefaultSize,
		now:         time.Now,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issuer is the name shown in authenticator apps.
func (s *Service) Issuer() string { return s.issuer }

// GenerateSecret creates a pending credential for user. Nothing is persisted.
func (s *Service) GenerateSecret(ctx context.Context, user *auth.User) (*Credential, error) {
	if !user.Valid() {
		return nil, ErrNoAuthenticatedUser
	}
	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return nil, err
	}
	s.log.DebugContext(ctx, "pending secret generated",
		logger.UserID(user.ID),
		logger.Component("twofactor"),
	)
	return &Credential{
		Secret:    secret,
		Algorithm: s.defaults.Algorithm,
		Digits:    s.defaults.Digits,
		Period:    s.defaults.Period,
	}, nil
}

// ComputeCode returns the code of cred at t.
func (s *Service) ComputeCode(cred *Credential, t time.Time) (string, error) {
	if cred == nil {
		return "", ErrInvalidCredential
	}
	return totp.GenerateCode(cred.params(), t)
}

// VerifyCode checks code against cred at now with one step of skew.
func (s *Service) VerifyCode(cred *Credential, code string, now time.Time) (bool, error) {
	if cred == nil {
		return false, ErrInvalidCredential
	}
	return totp.Verify(cred.params(), code, now)
}

// ProvisioningURI returns the otpauth URI for cred labelled with account.
func (s *Service) ProvisioningURI(cred *Credential, account string) (string, error) {
	if cred == nil {
		return "", ErrInvalidCredential
	}
	p := cred.params()
	p.AccountName = account
	p.Issuer = s.issuer
	return totp.ProvisioningURI(p)
}

// ProvisioningQR renders the provisioning URI as a PNG data URI. A size of
// zero uses the configured default.
func (s *Service) ProvisioningQR(cred *Credential, account string, size int) (string, error) {
	uri, err := s.ProvisioningURI(cred, account)
	if err != nil {
		return "", err
	}
	if size == 0 {
		size = s.qrSize
	}
	return qrcode.DataURI(uri, qrcode.WithSize(size))
}

// EnableTwoFactor confirms firstCode against the pending credential and
// persists the secret with a fresh backup code set in one write, then marks
// cred enabled. The plaintext backup codes are returned once and never
// stored.
func (s *Service) EnableTwoFactor(ctx context.Context, user *auth.User, cred *Credential, firstCode string) ([]string, error) {
	if !user.Valid() {
		return nil, ErrNoAuthenticatedUser
	}
	if cred == nil || cred.Secret == "" {
		return nil, ErrInvalidCredential
	}

	switch rec, err := s.store.Get(ctx, user.ID); {
	case errors.Is(err, ErrRecordNotFound):
	case err != nil:
		return nil, storageError(err)
	case rec.Enabled:
		return nil, ErrAlreadyEnabled
	}

	now := s.now()
	step, ok, err := totp.Match(cred.params(), firstCode, now)
	if err != nil {
		return nil, err
	}
	s.metrics.verification(purposeSetup, ok)
	if !ok {
		s.log.InfoContext(ctx, "setup code rejected",
			logger.UserID(user.ID),
			logger.Component("twofactor"),
		)
		return nil, ErrVerificationFailed
	}

	codes, hashed, err := s.newBackupSet()
	if err != nil {
		return nil, err
	}
	secret, err := s.seal(user.ID, cred.Secret)
	if err != nil {
		return nil, err
	}

	p := cred.params().WithDefaults()
	rec := &Record{
		UserID:       user.ID,
		Secret:       secret,
		Enabled:      true,
		Algorithm:    p.Algorithm,
		Digits:       p.Digits,
		Period:       p.Period,
		BackupCodes:  hashed,
		LastUsedStep: step,
		EnabledAt:    &now,
		UpdatedAt:    now,
	}
	if err := s.store.Enable(ctx, rec); err != nil {
		return nil, storageError(err)
	}

	s.metrics.enabled()
	s.log.InfoContext(ctx, "two-factor authentication enabled",
		logger.UserID(user.ID),
		logger.Component("twofactor"),
		slog.Int("backup_codes", len(codes)),
	)
	cred.Enabled = true
	s.notify(user, NoticeEnabled, now)
	return codes, nil
}

// DisableTwoFactor removes the credential and backup codes. Calling it on
// an account without 2FA succeeds.
func (s *Service) DisableTwoFactor(ctx context.Context, user *auth.User) error {
	if !user.Valid() {
		return ErrNoAuthenticatedUser
	}

	rec, err := s.store.Get(ctx, user.ID)
	wasEnabled := err == nil && rec.Enabled
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return storageError(err)
	}

	if err := s.store.Disable(ctx, user.ID); err != nil {
		return storageError(err)
	}
	if !wasEnabled {
		return nil
	}

	s.metrics.disabled()
	s.log.InfoContext(ctx, "two-factor authentication disabled",
		logger.UserID(user.ID),
		logger.Component("twofactor"),
	)
	s.notify(user, NoticeDisabled, s.now())
	return nil
}

// IsEnabled reports whether user has 2FA on. Storage failures are returned
// as ErrStorageUnavailable, never as false.
func (s *Service) IsEnabled(ctx context.Context, user *auth.User) (bool, error) {
	if !user.Valid() {
		return false, ErrNoAuthenticatedUser
	}
	rec, err := s.store.Get(ctx, user.ID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, storageError(err)
	}
	return rec.Enabled, nil
}

// Status returns the profile view of the user's 2FA state.
func (s *Service) Status(ctx context.Context, user *auth.User) (*Status, error) {
	if !user.Valid() {
		return nil, ErrNoAuthenticatedUser
	}
	rec, err := s.store.Get(ctx, user.ID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return &Status{}, nil
	case err != nil:
		return nil, storageError(err)
	case !rec.Enabled:
		return &Status{}, nil
	}
	return &Status{
		Enabled:              true,
		EnabledAt:            rec.EnabledAt,
		BackupCodesRemaining: rec.RemainingBackupCodes(),
	}, nil
}

// VerifyLogin checks code against the stored credential. A code whose step
// was already accepted is refused, so each code works once.
func (s *Service) VerifyLogin(ctx context.Context, user *auth.User, code string, now time.Time) error {
	if !user.Valid() {
		return ErrNoAuthenticatedUser
	}
	rec, err := s.enabledRecord(ctx, user.ID)
	if err != nil {
		return err
	}
	secret, err := s.open(user.ID, rec.Secret)
	if err != nil {
		return err
	}

	step, ok, err := totp.Match(totp.Params{
		Secret:    secret,
		Algorithm: rec.Algorithm,
		Digits:    rec.Digits,
		Period:    rec.Period,
	}, code, now)
	if err != nil {
		return err
	}
	if ok {
		advanced, err := s.store.AdvanceStep(ctx, user.ID, step)
		if err != nil {
			return storageError(err)
		}
		if !advanced {
			s.log.WarnContext(ctx, "replayed login code refused",
				logger.UserID(user.ID),
				logger.Component("twofactor"),
			)
			ok = false
		}
	}

	s.metrics.verification(purposeLogin, ok)
	if !ok {
		return ErrVerificationFailed
	}
	return nil
}

func (s *Service) enabledRecord(ctx context.Context, userID string) (*Record, error) {
	rec, err := s.store.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return nil, ErrNotEnabled
	case err != nil:
		return nil, storageError(err)
	case !rec.Enabled:
		return nil, ErrNotEnabled
	}
	return rec, nil
}

// seal binds the stored secret to its owner, so a ciphertext copied into
// another user's record does not open.
func (s *Service) seal(userID, secret string) (string, error) {
	secret = totp.NormalizeSecret(secret)
	if s.cipher == nil {
		return secret, nil
	}
	return s.cipher.EncryptFor(secret, userID)
}

func (s *Service) open(userID, stored string) (string, error) {
	if s.cipher == nil {
		return stored, nil
	}
	secret, err := s.cipher.DecryptFor(stored, userID)
	if err != nil {
		return "", errors.Join(ErrSecretUnreadable, err)
	}
	return secret, nil
}

// notify runs the notifier in the background so mail delivery never
// delays the response.
func (s *Service) notify(user *auth.User, kind string, at time.Time) {
	if s.notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("notifier panicked",
					logger.UserID(user.ID),
					logger.Event(kind),
					slog.Any("panic", r),
					logger.Component("twofactor"),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.Notify(ctx, user, kind, at); err != nil {
			s.log.Warn("notification not sent",
				logger.UserID(user.ID),
				logger.Event(kind),
				logger.Error(err),
				logger.Component("twofactor"),
			)
		}
	}()
}

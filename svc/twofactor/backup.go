package twofactor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/totp"
	"github.com/rafiki-assist/rafiki/svc/auth"
)

// GenerateBackupCodes returns count fresh plaintext codes, or the
// configured number when count is zero.
func (s *Service) GenerateBackupCodes(count int) ([]string, error) {
	if count == 0 {
		count = s.backupCount
	}
	return totp.GenerateBackupCodes(count)
}

// StoreBackupCodes hashes codes with individual salts and replaces the
// user's whole set with them.
func (s *Service) StoreBackupCodes(ctx context.Context, user *auth.User, codes []string) error {
	if !user.Valid() {
		return ErrNoAuthenticatedUser
	}
	hashed, err := s.hashBackupCodes(codes)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceBackupCodes(ctx, user.ID, hashed); err != nil {
		return storageError(err)
	}
	return nil
}

// RedeemBackupCode consumes one unused backup code. Every failure to
// match, including a code that was already used or a lost race with a
// concurrent redemption, returns ErrInvalidOrUsedCode.
func (s *Service) RedeemBackupCode(ctx context.Context, user *auth.User, code string) error {
	if !user.Valid() {
		return ErrNoAuthenticatedUser
	}
	if !totp.ValidBackupCodeFormat(code) {
		s.metrics.redemption(false)
		return ErrInvalidOrUsedCode
	}

	rec, err := s.enabledRecord(ctx, user.ID)
	if errors.Is(err, ErrNotEnabled) {
		s.metrics.redemption(false)
		return ErrInvalidOrUsedCode
	}
	if err != nil {
		return err
	}

	// Each code has its own salt, so every unused entry is hashed. The
	// loop does not stop at the first hit to keep timing independent of
	// the code's position.
	var matched string
	for _, c := range rec.BackupCodes {
		if c.Used {
			continue
		}
		if totp.VerifyBackupCode(code, c.Salt, c.Hash) && matched == "" {
			matched = c.ID
		}
	}
	if matched == "" {
		s.metrics.redemption(false)
		return ErrInvalidOrUsedCode
	}

	won, err := s.store.MarkBackupCodeUsed(ctx, user.ID, matched, s.now())
	if err != nil {
		return storageError(err)
	}
	s.metrics.redemption(won)
	if !won {
		return ErrInvalidOrUsedCode
	}

	s.log.InfoContext(ctx, "backup code redeemed",
		logger.UserID(user.ID),
		logger.Component("twofactor"),
		slog.Int("remaining", rec.RemainingBackupCodes()-1),
	)
	return nil
}

// RegenerateBackupCodes replaces the backup set after checking a current
// TOTP code and returns the new plaintext codes once.
func (s *Service) RegenerateBackupCodes(ctx context.Context, user *auth.User, code string) ([]string, error) {
	if err := s.VerifyLogin(ctx, user, code, s.now()); err != nil {
		return nil, err
	}

	codes, hashed, err := s.newBackupSet()
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceBackupCodes(ctx, user.ID, hashed); err != nil {
		return nil, storageError(err)
	}

	s.log.InfoContext(ctx, "backup codes regenerated",
		logger.UserID(user.ID),
		logger.Component("twofactor"),
	)
	s.notify(user, NoticeBackupCodesReplaced, s.now())
	return codes, nil
}

func (s *Service) newBackupSet() ([]string, []BackupCode, error) {
	codes, err := totp.GenerateBackupCodes(s.backupCount)
	if err != nil {
		return nil, nil, err
	}
	hashed, err := s.hashBackupCodes(codes)
	if err != nil {
		return nil, nil, err
	}
	return codes, hashed, nil
}

func (s *Service) hashBackupCodes(codes []string) ([]BackupCode, error) {
	out := make([]BackupCode, 0, len(codes))
	for _, code := range codes {
		salt, err := totp.NewSalt()
		if err != nil {
			return nil, err
		}
		hash, err := totp.HashBackupCode(code, salt, s.hashParams)
		if err != nil {
			return nil, err
		}
		out = append(out, BackupCode{
			ID:   uuid.NewString(),
			Hash: hash,
			Salt: salt,
		})
	}
	return out, nil
}

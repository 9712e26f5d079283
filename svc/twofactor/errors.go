package twofactor

import (
	"errors"

	"github.com/rafiki-assist/rafiki/pkg/totp"
)

var (
	ErrNoAuthenticatedUser = errors.New("twofactor: no authenticated user")
	ErrMalformedCode       = totp.ErrMalformedCode
	ErrVerificationFailed  = errors.New("twofactor: verification code did not match")
	ErrInvalidOrUsedCode   = errors.New("twofactor: backup code is invalid or already used")
	ErrStorageUnavailable  = errors.New("twofactor: storage unavailable")
	ErrAlreadyEnabled      = errors.New("twofactor: two-factor authentication is already enabled")
	ErrNotEnabled          = errors.New("twofactor: two-factor authentication is not enabled")
	ErrRecordNotFound      = errors.New("twofactor: record not found")
	ErrInvalidCredential   = errors.New("twofactor: invalid credential")
	ErrSecretUnreadable    = errors.New("twofactor: stored secret cannot be decrypted")
)

// storageError keeps the sentinels a Store is allowed to return and folds
// anything else into ErrStorageUnavailable.
func storageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrAlreadyEnabled),
		errors.Is(err, ErrNotEnabled):
		return err
	default:
		return errors.Join(ErrStorageUnavailable, err)
	}
}

package twofactor

import (
	"context"
	"time"
)

// Store persists two-factor records keyed by user ID.
//
// Implementations must make Enable, MarkBackupCodeUsed and AdvanceStep
// atomic with respect to concurrent callers. Backend failures should wrap
// ErrStorageUnavailable.
type Store interface {
	// Get returns ErrRecordNotFound for users that never enabled 2FA.
	Get(ctx context.Context, userID string) (*Record, error)
	// Enable writes rec in one step. It fails with ErrAlreadyEnabled when
	// the stored record is already enabled.
	Enable(ctx context.Context, rec *Record) error
	// Disable clears the secret and backup codes. Unknown users are a no-op.
	Disable(ctx context.Context, userID string) error
	// ReplaceBackupCodes swaps the whole set. ErrNotEnabled when 2FA is off.
	ReplaceBackupCodes(ctx context.Context, userID string, codes []BackupCode) error
	// MarkBackupCodeUsed flips one unused code to used and reports whether
	// this call did it.
	MarkBackupCodeUsed(ctx context.Context, userID, codeID string, at time.Time) (bool, error)
	// AdvanceStep raises lastUsedStep to step if it is strictly greater and
	// reports whether it did.
	AdvanceStep(ctx context.Context, userID string, step int64) (bool, error)
}

// Package storetest holds the behaviour every twofactor.Store backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/pkg/totp"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// Run exercises store. User IDs are random so a shared database can be reused.
func Run(t *testing.T, store twofactor.Store) {
	t.Helper()

	t.Run("get unknown user", func(t *testing.T) {
		_, err := store.Get(context.Background(), newUserID())
		assert.ErrorIs(t, err, twofactor.ErrRecordNotFound)
	})

	t.Run("enable round trip", func(t *testing.T) {
		ctx := context.Background()
		rec := newRecord(newUserID(), 3)
		require.NoError(t, store.Enable(ctx, rec))

		got, err := store.Get(ctx, rec.UserID)
		require.NoError(t, err)
		assert.Equal(t, rec.UserID, got.UserID)
		assert.Equal(t, rec.Secret, got.Secret)
		assert.True(t, got.Enabled)
		assert.Equal(t, rec.Algorithm, got.Algorithm)
		assert.Equal(t, rec.Digits, got.Digits)
		assert.Equal(t, rec.Period, got.Period)
		assert.Equal(t, rec.LastUsedStep, got.LastUsedStep)
		require.NotNil(t, got.EnabledAt)
		assert.WithinDuration(t, *rec.EnabledAt, *got.EnabledAt, time.Millisecond)
		require.Len(t, got.BackupCodes, len(rec.BackupCodes))
		for i := range rec.BackupCodes {
			assert.Equal(t, rec.BackupCodes[i].ID, got.BackupCodes[i].ID)
			assert.Equal(t, rec.BackupCodes[i].Hash, got.BackupCodes[i].Hash)
			assert.Equal(t, rec.BackupCodes[i].Salt, got.BackupCodes[i].Salt)
			assert.False(t, got.BackupCodes[i].Used)
		}
	})

	t.Run("enable twice", func(t *testing.T) {
		ctx := context.Background()
		rec := newRecord(newUserID(), 1)
		require.NoError(t, store.Enable(ctx, rec))
		assert.ErrorIs(t, store.Enable(ctx, rec), twofactor.ErrAlreadyEnabled)
	})

	t.Run("disable", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Disable(ctx, newUserID()), "unknown user is a no-op")

		rec := newRecord(newUserID(), 2)
		require.NoError(t, store.Enable(ctx, rec))
		require.NoError(t, store.Disable(ctx, rec.UserID))
		require.NoError(t, store.Disable(ctx, rec.UserID))

		got, err := store.Get(ctx, rec.UserID)
		require.NoError(t, err)
		assert.False(t, got.Enabled)
		assert.Empty(t, got.Secret)
		assert.Empty(t, got.BackupCodes)

		ok, err := store.AdvanceStep(ctx, rec.UserID, rec.LastUsedStep+1)
		require.NoError(t, err)
		assert.False(t, ok, "disabled records do not accept codes")

		require.NoError(t, store.Enable(ctx, newRecord(rec.UserID, 1)), "re-enable after disable")
	})

	t.Run("replace backup codes", func(t *testing.T) {
		ctx := context.Background()
		assert.ErrorIs(t, store.ReplaceBackupCodes(ctx, newUserID(), newCodes(1)), twofactor.ErrNotEnabled)

		rec := newRecord(newUserID(), 3)
		require.NoError(t, store.Enable(ctx, rec))
		fresh := newCodes(5)
		require.NoError(t, store.ReplaceBackupCodes(ctx, rec.UserID, fresh))

		got, err := store.Get(ctx, rec.UserID)
		require.NoError(t, err)
		require.Len(t, got.BackupCodes, 5)
		assert.Equal(t, fresh[0].ID, got.BackupCodes[0].ID)

		ok, err := store.MarkBackupCodeUsed(ctx, rec.UserID, rec.BackupCodes[0].ID, time.Now())
		require.NoError(t, err)
		assert.False(t, ok, "codes of the replaced set are gone")
	})

	t.Run("mark backup code used once", func(t *testing.T) {
		ctx := context.Background()
		rec := newRecord(newUserID(), 2)
		require.NoError(t, store.Enable(ctx, rec))
		id := rec.BackupCodes[1].ID

		const workers = 8
		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.MarkBackupCodeUsed(ctx, rec.UserID, id, time.Now())
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())

		got, err := store.Get(ctx, rec.UserID)
		require.NoError(t, err)
		assert.False(t, got.BackupCodes[0].Used)
		assert.True(t, got.BackupCodes[1].Used)
		assert.NotNil(t, got.BackupCodes[1].UsedAt)
		assert.Equal(t, 1, got.RemainingBackupCodes())
	})

	t.Run("advance step", func(t *testing.T) {
		ctx := context.Background()
		rec := newRecord(newUserID(), 1)
		require.NoError(t, store.Enable(ctx, rec))

		ok, err := store.AdvanceStep(ctx, rec.UserID, rec.LastUsedStep)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.AdvanceStep(ctx, rec.UserID, rec.LastUsedStep+2)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.AdvanceStep(ctx, rec.UserID, rec.LastUsedStep+1)
		require.NoError(t, err)
		assert.False(t, ok, "steps never move backwards")

		got, err := store.Get(ctx, rec.UserID)
		require.NoError(t, err)
		assert.Equal(t, rec.LastUsedStep+2, got.LastUsedStep)

		ok, err = store.AdvanceStep(ctx, newUserID(), 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func newUserID() string {
	return "user-" + uuid.NewString()
}

func newRecord(userID string, codes int) *twofactor.Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &twofactor.Record{
		UserID:       userID,
		Secret:       "sealed-" + uuid.NewString(),
		Enabled:      true,
		Algorithm:    totp.AlgorithmSHA1,
		Digits:       totp.DefaultDigits,
		Period:       totp.DefaultPeriod,
		BackupCodes:  newCodes(codes),
		LastUsedStep: totp.TimeStep(now, totp.DefaultPeriod),
		EnabledAt:    &now,
		UpdatedAt:    now,
	}
}

func newCodes(n int) []twofactor.BackupCode {
	codes := make([]twofactor.BackupCode, n)
	for i := range codes {
		codes[i] = twofactor.BackupCode{
			ID:   uuid.NewString(),
			Hash: "argon2id$v=19$m=1024,t=1,p=1$" + uuid.NewString(),
			Salt: uuid.NewString(),
		}
	}
	return codes
}

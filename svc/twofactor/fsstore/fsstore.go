// Package fsstore keeps two-factor state on the user's Firestore document
// (users/{uid}). Only the two-factor fields are written; the rest of the
// profile document is left untouched. Conditional changes run inside
// Firestore transactions.
package fsstore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/rafiki-assist/rafiki/pkg/firebase"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// Field names on the user document.
const (
	fieldSecret      = "totpSecret"
	fieldEnabled     = "totpEnabled"
	fieldAlgorithm   = "totpAlgorithm"
	fieldDigits      = "totpDigits"
	fieldPeriod      = "totpPeriod"
	fieldBackupCodes = "backupCodeHashes"
	fieldLastStep    = "lastUsedStep"
	fieldEnabledAt   = "enabledAt"
	fieldUpdatedAt   = "updatedAt"
)

// txAttempts bounds retries when concurrent redemptions contend on one document.
const txAttempts = 10

// Store implements twofactor.Store on a Firestore collection of user documents.
type Store struct {
	client     *firestore.Client
	collection string
}

// New returns a Store writing to collection, "users" when empty.
func New(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = "users"
	}
	return &Store{client: client, collection: collection}
}

var _ twofactor.Store = (*Store)(nil)

func (s *Store) doc(userID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(userID)
}

func unavailable(err error) error {
	if errors.Is(err, twofactor.ErrAlreadyEnabled) || errors.Is(err, twofactor.ErrNotEnabled) {
		return err
	}
	return errors.Join(twofactor.ErrStorageUnavailable, err)
}

func decode(snap *firestore.DocumentSnapshot) (*twofactor.Record, error) {
	var rec twofactor.Record
	if err := snap.DataTo(&rec); err != nil {
		return nil, err
	}
	rec.UserID = snap.Ref.ID
	return &rec, nil
}

func (s *Store) Get(ctx context.Context, userID string) (*twofactor.Record, error) {
	snap, err := s.doc(userID).Get(ctx)
	if firebase.IsNotFound(err) {
		return nil, twofactor.ErrRecordNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	rec, err := decode(snap)
	if err != nil {
		return nil, unavailable(err)
	}
	return rec, nil
}

func (s *Store) Enable(ctx context.Context, rec *twofactor.Record) error {
	ref := s.doc(rec.UserID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case firebase.IsNotFound(err):
		case err != nil:
			return err
		default:
			if v, err := snap.DataAt(fieldEnabled); err == nil {
				if enabled, _ := v.(bool); enabled {
					return twofactor.ErrAlreadyEnabled
				}
			}
		}

		codes := rec.BackupCodes
		if codes == nil {
			codes = []twofactor.BackupCode{}
		}
		return tx.Set(ref, map[string]any{
			fieldSecret:      rec.Secret,
			fieldEnabled:     true,
			fieldAlgorithm:   string(rec.Algorithm),
			fieldDigits:      rec.Digits,
			fieldPeriod:      rec.Period,
			fieldBackupCodes: codes,
			fieldLastStep:    rec.LastUsedStep,
			fieldEnabledAt:   rec.EnabledAt,
			fieldUpdatedAt:   rec.UpdatedAt,
		}, firestore.MergeAll)
	}, firestore.MaxAttempts(txAttempts))
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Disable(ctx context.Context, userID string) error {
	_, err := s.doc(userID).Update(ctx, []firestore.Update{
		{Path: fieldSecret, Value: ""},
		{Path: fieldEnabled, Value: false},
		{Path: fieldBackupCodes, Value: firestore.Delete},
		{Path: fieldEnabledAt, Value: firestore.Delete},
		{Path: fieldUpdatedAt, Value: time.Now()},
	})
	if err != nil && !firebase.IsNotFound(err) {
		return unavailable(err)
	}
	return nil
}

func (s *Store) ReplaceBackupCodes(ctx context.Context, userID string, codes []twofactor.BackupCode) error {
	if codes == nil {
		codes = []twofactor.BackupCode{}
	}
	ref := s.doc(userID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rec, err := s.enabledIn(tx, ref)
		if err != nil {
			return err
		}
		if rec == nil {
			return twofactor.ErrNotEnabled
		}
		return tx.Update(ref, []firestore.Update{
			{Path: fieldBackupCodes, Value: codes},
			{Path: fieldUpdatedAt, Value: time.Now()},
		})
	}, firestore.MaxAttempts(txAttempts))
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) MarkBackupCodeUsed(ctx context.Context, userID, codeID string, at time.Time) (bool, error) {
	ref := s.doc(userID)
	var marked bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		marked = false
		rec, err := s.enabledIn(tx, ref)
		if err != nil || rec == nil {
			return err
		}

		for i := range rec.BackupCodes {
			c := &rec.BackupCodes[i]
			if c.ID != codeID || c.Used {
				continue
			}
			c.Used = true
			c.UsedAt = &at
			marked = true
			return tx.Update(ref, []firestore.Update{
				{Path: fieldBackupCodes, Value: rec.BackupCodes},
				{Path: fieldUpdatedAt, Value: at},
			})
		}
		return nil
	}, firestore.MaxAttempts(txAttempts))
	if err != nil {
		return false, unavailable(err)
	}
	return marked, nil
}

func (s *Store) AdvanceStep(ctx context.Context, userID string, step int64) (bool, error) {
	ref := s.doc(userID)
	var advanced bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		advanced = false
		rec, err := s.enabledIn(tx, ref)
		if err != nil || rec == nil || rec.LastUsedStep >= step {
			return err
		}
		advanced = true
		return tx.Update(ref, []firestore.Update{{Path: fieldLastStep, Value: step}})
	}, firestore.MaxAttempts(txAttempts))
	if err != nil {
		return false, unavailable(err)
	}
	return advanced, nil
}

// enabledIn reads the record inside tx and returns nil when the document is
// missing or 2FA is off.
func (s *Store) enabledIn(tx *firestore.Transaction, ref *firestore.DocumentRef) (*twofactor.Record, error) {
	snap, err := tx.Get(ref)
	if firebase.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err := decode(snap)
	if err != nil || !rec.Enabled {
		return nil, err
	}
	return rec, nil
}

// Package pgstore persists two-factor records in PostgreSQL.
//
// The schema lives in the top-level migrations package. Credentials and
// backup codes are separate tables; every multi-row change runs in one
// transaction and single-use checks are conditional UPDATEs.
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rafiki-assist/rafiki/pkg/totp"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements twofactor.Store on PostgreSQL.
type Store struct {
	db DB
}

// New returns a Store using db.
func New(db DB) *Store {
	return &Store{db: db}
}

var _ twofactor.Store = (*Store)(nil)

func unavailable(err error) error {
	return errors.Join(twofactor.ErrStorageUnavailable, err)
}

func (s *Store) Get(ctx context.Context, userID string) (*twofactor.Record, error) {
	rec := &twofactor.Record{UserID: userID}
	var alg string
	err := s.db.QueryRow(ctx, `
		SELECT totp_secret, totp_enabled, totp_algorithm, totp_digits, totp_period,
		       last_used_step, enabled_at, updated_at
		FROM two_factor_credentials
		WHERE user_id = $1`, userID,
	).Scan(&rec.Secret, &rec.Enabled, &alg, &rec.Digits, &rec.Period,
		&rec.LastUsedStep, &rec.EnabledAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, twofactor.ErrRecordNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	rec.Algorithm = totp.Algorithm(alg)

	rows, err := s.db.Query(ctx, `
		SELECT id, hash, salt, used, used_at
		FROM two_factor_backup_codes
		WHERE user_id = $1
		ORDER BY position`, userID)
	if err != nil {
		return nil, unavailable(err)
	}
	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (twofactor.BackupCode, error) {
		var c twofactor.BackupCode
		err := row.Scan(&c.ID, &c.Hash, &c.Salt, &c.Used, &c.UsedAt)
		return c, err
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if len(codes) > 0 {
		rec.BackupCodes = codes
	}
	return rec, nil
}

func (s *Store) Enable(ctx context.Context, rec *twofactor.Record) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO two_factor_credentials AS c
				(user_id, totp_secret, totp_enabled, totp_algorithm, totp_digits, totp_period,
				 last_used_step, enabled_at, updated_at)
			VALUES ($1, $2, TRUE, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id) DO UPDATE SET
				totp_secret = EXCLUDED.totp_secret,
				totp_enabled = TRUE,
				totp_algorithm = EXCLUDED.totp_algorithm,
				totp_digits = EXCLUDED.totp_digits,
				totp_period = EXCLUDED.totp_period,
				last_used_step = EXCLUDED.last_used_step,
				enabled_at = EXCLUDED.enabled_at,
				updated_at = EXCLUDED.updated_at
			WHERE c.totp_enabled = FALSE`,
			rec.UserID, rec.Secret, string(rec.Algorithm), rec.Digits, rec.Period,
			rec.LastUsedStep, rec.EnabledAt, rec.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return twofactor.ErrAlreadyEnabled
		}
		return replaceCodes(ctx, tx, rec.UserID, rec.BackupCodes)
	})
}

func (s *Store) Disable(ctx context.Context, userID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM two_factor_backup_codes WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE two_factor_credentials
			SET totp_secret = '', totp_enabled = FALSE, enabled_at = NULL, updated_at = now()
			WHERE user_id = $1`, userID)
		return err
	})
}

func (s *Store) ReplaceBackupCodes(ctx context.Context, userID string, codes []twofactor.BackupCode) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var enabled bool
		err := tx.QueryRow(ctx, `
			SELECT totp_enabled FROM two_factor_credentials
			WHERE user_id = $1
			FOR UPDATE`, userID,
		).Scan(&enabled)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && !enabled) {
			return twofactor.ErrNotEnabled
		}
		if err != nil {
			return err
		}
		if err := replaceCodes(ctx, tx, userID, codes); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE two_factor_credentials SET updated_at = now() WHERE user_id = $1`, userID)
		return err
	})
}

func (s *Store) MarkBackupCodeUsed(ctx context.Context, userID, codeID string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE two_factor_backup_codes
		SET used = TRUE, used_at = $3
		WHERE user_id = $1 AND id = $2 AND used = FALSE`, userID, codeID, at)
	if err != nil {
		return false, unavailable(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AdvanceStep(ctx context.Context, userID string, step int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE two_factor_credentials
		SET last_used_step = $2
		WHERE user_id = $1 AND totp_enabled AND last_used_step < $2`, userID, step)
	if err != nil {
		return false, unavailable(err)
	}
	return tag.RowsAffected() == 1, nil
}

func replaceCodes(ctx context.Context, tx pgx.Tx, userID string, codes []twofactor.BackupCode) error {
	if _, err := tx.Exec(ctx, `DELETE FROM two_factor_backup_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(codes) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"two_factor_backup_codes"},
		[]string{"id", "user_id", "position", "hash", "salt", "used", "used_at"},
		pgx.CopyFromSlice(len(codes), func(i int) ([]any, error) {
			c := codes[i]
			return []any{c.ID, userID, int16(i), c.Hash, c.Salt, c.Used, c.UsedAt}, nil
		}),
	)
	return err
}

// inTx runs fn in a transaction. Domain sentinels returned by fn are passed
// through; other failures are reported as storage errors.
func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		if errors.Is(err, twofactor.ErrAlreadyEnabled) || errors.Is(err, twofactor.ErrNotEnabled) {
			return err
		}
		return unavailable(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

package twofactor

import (
	"time"

	"github.com/rafiki-assist/rafiki/pkg/totp"
)

// Credential is a TOTP secret with its parameters. A pending credential
// lives only in the setup flow until EnableTwoFactor persists it and sets
// Enabled.
type Credential struct {
	Secret    string         `json:"secret"`
	Enabled   bool           `json:"enabled"`
	Algorithm totp.Algorithm `json:"algorithm"`
	Digits    int            `json:"digits"`
	Period    int            `json:"period"`
}

func (c *Credential) params() totp.Params {
	return totp.Params{
		Secret:    c.Secret,
		Algorithm: c.Algorithm,
		Digits:    c.Digits,
		Period:    c.Period,
	}
}

// BackupCode is one stored entry of a backup code set. Only the salted
// hash of the code is kept.
type BackupCode struct {
	ID     string     `json:"id" bson:"id" firestore:"id"`
	Hash   string     `json:"hash" bson:"hash" firestore:"hash"`
	Salt   string     `json:"salt" bson:"salt" firestore:"salt"`
	Used   bool       `json:"used" bson:"used" firestore:"used"`
	UsedAt *time.Time `json:"usedAt,omitempty" bson:"usedAt,omitempty" firestore:"usedAt,omitempty"`
}

// Record is the per-user document persisted by a Store.
type Record struct {
	UserID       string         `json:"-" bson:"_id" firestore:"-"`
	Secret       string         `json:"totpSecret" bson:"totpSecret" firestore:"totpSecret"`
	Enabled      bool           `json:"totpEnabled" bson:"totpEnabled" firestore:"totpEnabled"`
	Algorithm    totp.Algorithm `json:"totpAlgorithm" bson:"totpAlgorithm" firestore:"totpAlgorithm"`
	Digits       int            `json:"totpDigits" bson:"totpDigits" firestore:"totpDigits"`
	Period       int            `json:"totpPeriod" bson:"totpPeriod" firestore:"totpPeriod"`
	BackupCodes  []BackupCode   `json:"backupCodeHashes" bson:"backupCodeHashes" firestore:"backupCodeHashes"`
	LastUsedStep int64          `json:"lastUsedStep" bson:"lastUsedStep" firestore:"lastUsedStep"`
	EnabledAt    *time.Time     `json:"enabledAt,omitempty" bson:"enabledAt,omitempty" firestore:"enabledAt,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt" bson:"updatedAt" firestore:"updatedAt"`
}

// RemainingBackupCodes counts unused codes.
func (r *Record) RemainingBackupCodes() int {
	n := 0
	for _, c := range r.BackupCodes {
		if !c.Used {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.EnabledAt != nil {
		t := *r.EnabledAt
		out.EnabledAt = &t
	}
	out.BackupCodes = cloneBackupCodes(r.BackupCodes)
	return &out
}

func cloneBackupCodes(codes []BackupCode) []BackupCode {
	if codes == nil {
		return nil
	}
	out := make([]BackupCode, len(codes))
	for i, c := range codes {
		out[i] = c
		if c.UsedAt != nil {
			t := *c.UsedAt
			out[i].UsedAt = &t
		}
	}
	return out
}

// Status is the two-factor state shown on the profile screen.
type Status struct {
	Enabled              bool       `json:"enabled"`
	EnabledAt            *time.Time `json:"enabled_at,omitempty"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
}

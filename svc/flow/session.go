package flow

import (
	"time"

	"github.com/rafiki-assist/rafiki/pkg/statemachine"
)

// Kind tells setup sessions from login challenges.
type Kind string

const (
	KindSetup Kind = "setup"
	KindLogin Kind = "login"
)

// Setup states.
const (
	StateIntro    statemachine.State = "intro"
	StateScan     statemachine.State = "scan"
	StateVerify   statemachine.State = "verify"
	StateBackup   statemachine.State = "backup"
	StateComplete statemachine.State = "complete"
)

// Login states.
const (
	StateChallenge statemachine.State = "challenge"
	StateVerified  statemachine.State = "verified"
	StateFailed    statemachine.State = "failed"
)

// Setup events.
const (
	EventSecretGenerated statemachine.Event = "secret_generated"
	EventCodeEntryOpened statemachine.Event = "code_entry_opened"
	EventEnabled         statemachine.Event = "enabled"
	EventAcknowledged    statemachine.Event = "acknowledged"
	EventSkipped         statemachine.Event = "skipped"
	EventRestarted       statemachine.Event = "restarted"
)

// Login events.
const (
	EventCodeVerified      statemachine.Event = "code_verified"
	EventBackupRedeemed    statemachine.Event = "backup_redeemed"
	EventAttemptsExhausted statemachine.Event = "attempts_exhausted"
)

// Session is the persisted progress of one setup or login flow. It lives
// in a SessionStore with a TTL and never in the two-factor record.
type Session struct {
	ID            string             `json:"id"`
	Kind          Kind               `json:"kind"`
	UserID        string             `json:"user_id"`
	State         statemachine.State `json:"state"`
	PendingSecret string             `json:"pending_secret,omitempty"`
	Attempts      int                `json:"attempts"`
	BackupSkipped bool               `json:"backup_skipped,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	ExpiresAt     time.Time          `json:"expires_at"`
}

// Expired reports whether the session is past its deadline at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SetupView is what the client needs to render a setup step.
type SetupView struct {
	FlowID          string             `json:"flow_id"`
	State           statemachine.State `json:"state"`
	Secret          string             `json:"secret,omitempty"`
	FormattedSecret string             `json:"formatted_secret,omitempty"`
	ProvisioningURI string             `json:"otpauth_uri,omitempty"`
	QRCode          string             `json:"qr_code,omitempty"`
	ExpiresAt       time.Time          `json:"expires_at"`
}

// Challenge answers whether a login needs a second factor.
type Challenge struct {
	Required  bool       `json:"required"`
	ID        string     `json:"challenge_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Method names carried in the amr claim.
const (
	MethodOTP    = "otp"
	MethodBackup = "backup"
)

// ChallengeResult is the outcome of a passed login challenge.
type ChallengeResult struct {
	State  statemachine.State `json:"state"`
	Method string             `json:"method"`
	Token  string             `json:"token,omitempty"`
}

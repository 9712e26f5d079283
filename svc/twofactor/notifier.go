package twofactor

import (
	"context"
	"errors"
	"time"

	"github.com/rafiki-assist/rafiki/pkg/email"
	"github.com/rafiki-assist/rafiki/svc/auth"
)

// Notice kinds passed to a Notifier.
const (
	NoticeEnabled             = "2fa-enabled"
	NoticeDisabled            = "2fa-disabled"
	NoticeBackupCodesReplaced = "2fa-backup-codes-replaced"
)

var ErrNoRecipient = errors.New("twofactor: user has no email address")

// Notifier tells the account owner about security relevant changes.
type Notifier interface {
	Notify(ctx context.Context, user *auth.User, kind string, at time.Time) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, user *auth.User, kind string, at time.Time) error

func (f NotifierFunc) Notify(ctx context.Context, user *auth.User, kind string, at time.Time) error {
	return f(ctx, user, kind, at)
}

// EmailNotifier renders security notices and sends them by email.
type EmailNotifier struct {
	sender  email.Sender
	support string
}

// NewEmailNotifier returns a Notifier backed by sender. support is shown
// as the contact address in each notice.
func NewEmailNotifier(sender email.Sender, support string) *EmailNotifier {
	return &EmailNotifier{sender: sender, support: support}
}

var noticeText = map[string]struct{ subject, heading, body string }{
	NoticeEnabled: {
		"Two-factor authentication is on",
		"Two-factor authentication enabled",
		"Your Rafiki Assist account now asks for a code from your authenticator app when you sign in.",
	},
	NoticeDisabled: {
		"Two-factor authentication is off",
		"Two-factor authentication disabled",
		"Your Rafiki Assist account no longer asks for an authenticator code when you sign in.",
	},
	NoticeBackupCodesReplaced: {
		"New backup codes issued",
		"Backup codes replaced",
		"A new set of backup codes was generated. Codes issued before are no longer valid.",
	},
}

func (n *EmailNotifier) Notify(ctx context.Context, user *auth.User, kind string, at time.Time) error {
	if user == nil || user.Email == "" {
		return ErrNoRecipient
	}
	text, ok := noticeText[kind]
	if !ok {
		return nil
	}

	body, err := email.RenderNotice(email.Notice{
		Heading:    text.heading,
		Body:       text.body,
		OccurredAt: at,
		Support:    n.support,
	})
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email.Message{
		To:       user.Email,
		Subject:  text.subject,
		BodyHTML: body,
		Tag:      kind,
	})
}

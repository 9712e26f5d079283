package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Sender delivers transactional emails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound email.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"-"`
	Tag      string `json:"tag,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks the recipient, subject and body.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	case !emailRegex.MatchString(m.To):
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidMessage)
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	case strings.TrimSpace(m.BodyHTML) == "":
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// New returns the Sender selected by cfg.Driver.
func New(cfg Config) (Sender, error) {
	switch cfg.Driver {
	case DriverPostmark:
		return NewPostmarkSender(cfg)
	case DriverDev, "":
		return NewDevSender(cfg.DevDir), nil
	case DriverNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
	}
}

// Nop drops every message after validating it.
type Nop struct{}

func (Nop) Send(_ context.Context, msg Message) error {
	return msg.Validate()
}

package twofactor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rafiki-assist/rafiki/pkg/email"
	"github.com/rafiki-assist/rafiki/svc/auth"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func TestEmailNotifier(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("sends notice", func(t *testing.T) {
		t.Parallel()
		sender := &MockSender{}
		sender.On("Send", mock.Anything, mock.MatchedBy(func(m email.Message) bool {
			return m.To == "mama@example.com" &&
				m.Tag == twofactor.NoticeDisabled &&
				m.Subject == "Two-factor authentication is off" &&
				len(m.BodyHTML) > 0
		})).Return(nil).Once()

		n := twofactor.NewEmailNotifier(sender, "support@example.com")
		err := n.Notify(context.Background(), &auth.User{ID: "u", Email: "mama@example.com"}, twofactor.NoticeDisabled, at)
		assert.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("no email address", func(t *testing.T) {
		t.Parallel()
		n := twofactor.NewEmailNotifier(&MockSender{}, "")
		err := n.Notify(context.Background(), &auth.User{ID: "u"}, twofactor.NoticeEnabled, at)
		assert.ErrorIs(t, err, twofactor.ErrNoRecipient)
	})

	t.Run("unknown kind is ignored", func(t *testing.T) {
		t.Parallel()
		sender := &MockSender{}
		n := twofactor.NewEmailNotifier(sender, "")
		assert.NoError(t, n.Notify(context.Background(), &auth.User{ID: "u", Email: "a@b.co"}, "other", at))
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

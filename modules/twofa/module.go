package twofa

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rafiki-assist/rafiki/handler"
	"github.com/rafiki-assist/rafiki/pkg/binder"
	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/ratelimiter"
	"github.com/rafiki-assist/rafiki/svc/auth"
	"github.com/rafiki-assist/rafiki/svc/flow"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// Accounts is the account level part of the two-factor service.
type Accounts interface {
	Status(ctx context.Context, user *auth.User) (*twofactor.Status, error)
	DisableTwoFactor(ctx context.Context, user *auth.User) error
	RegenerateBackupCodes(ctx context.Context, user *auth.User, code string) ([]string, error)
}

// Flows drives the setup and login flows.
type Flows interface {
	StartSetup(ctx context.Context, user *auth.User) (*flow.SetupView, error)
	OpenCodeEntry(ctx context.Context, user *auth.User, flowID string) (*flow.SetupView, error)
	SubmitSetupCode(ctx context.Context, user *auth.User, flowID, code string) ([]string, error)
	CompleteSetup(ctx context.Context, user *auth.User, flowID string, skipBackup bool) (*flow.SetupView, error)
	RestartSetup(ctx context.Context, user *auth.User, flowID string) (*flow.SetupView, error)
	StartChallenge(ctx context.Context, user *auth.User) (*flow.Challenge, error)
	VerifyChallenge(ctx context.Context, user *auth.User, challengeID, code, backupCode string) (*flow.ChallengeResult, error)
}

// Module serves the two-factor HTTP API.
type Module struct {
	accounts     Accounts
	flows        Flows
	limiter      *ratelimiter.Bucket
	log          *slog.Logger
	errorHandler handler.ErrorHandler
}

// Option configures a Module.
type Option func(*Module)

// WithRateLimiter throttles challenge verification per user.
func WithRateLimiter(b *ratelimiter.Bucket) Option {
	return func(m *Module) { m.limiter = b }
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// NewModule returns a Module.
func NewModule(accounts Accounts, flows Flows, opts ...Option) *Module {
	m := &Module{
		accounts: accounts,
		flows:    flows,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.errorHandler = handler.NewErrorHandler(m.log, ErrorMappings()...)
	return m
}

// Handle returns the router for the API.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/status", handler.Wrap(m.status,
		handler.WithErrorHandler[struct{}](m.errorHandler),
	))
	r.Delete("/", handler.Wrap(m.disable,
		handler.WithErrorHandler[struct{}](m.errorHandler),
	))
	r.Post("/backup-codes", handler.Wrap(m.regenerateBackupCodes,
		handler.WithBinders[CodeRequest](binder.JSON()),
		handler.WithErrorHandler[CodeRequest](m.errorHandler),
	))

	r.Route("/setup", func(r chi.Router) {
		r.Post("/", handler.Wrap(m.startSetup,
			handler.WithErrorHandler[struct{}](m.errorHandler),
		))
		r.Post("/{flowID}/code-entry", handler.Wrap(m.openCodeEntry,
			handler.WithBinders[FlowRequest](binder.Path(chi.URLParam)),
			handler.WithErrorHandler[FlowRequest](m.errorHandler),
		))
		r.Post("/{flowID}/verify", handler.Wrap(m.verifySetup,
			handler.WithBinders[SetupCodeRequest](binder.Path(chi.URLParam), binder.JSON()),
			handler.WithErrorHandler[SetupCodeRequest](m.errorHandler),
		))
		r.Post("/{flowID}/complete", handler.Wrap(m.completeSetup,
			handler.WithBinders[CompleteSetupRequest](binder.Path(chi.URLParam), binder.JSON()),
			handler.WithErrorHandler[CompleteSetupRequest](m.errorHandler),
		))
		r.Post("/{flowID}/restart", handler.Wrap(m.restartSetup,
			handler.WithBinders[FlowRequest](binder.Path(chi.URLParam)),
			handler.WithErrorHandler[FlowRequest](m.errorHandler),
		))
	})

	r.Route("/challenge", func(r chi.Router) {
		r.Post("/", handler.Wrap(m.startChallenge,
			handler.WithErrorHandler[struct{}](m.errorHandler),
		))

		verify := r.With()
		if m.limiter != nil {
			verify = r.With(ratelimiter.Middleware(m.limiter, ratelimiter.ByUser, m.log, m.tooManyRequests))
		}
		verify.Post("/{challengeID}/verify", handler.Wrap(m.verifyChallenge,
			handler.WithBinders[ChallengeRequest](binder.Path(chi.URLParam), binder.JSON()),
			handler.WithErrorHandler[ChallengeRequest](m.errorHandler),
		))
	})

	return r
}

// Unauthorized answers requests whose bearer token was rejected. It fits the
// onError parameter of auth.Middleware.
func (m *Module) Unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	m.errorHandler(handler.NewContext(w, r), err)
}

func (m *Module) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	m.errorHandler(handler.NewContext(w, r), handler.ErrTooManyRequests)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rafiki-assist/rafiki/migrations"
	"github.com/rafiki-assist/rafiki/modules/twofa"
	"github.com/rafiki-assist/rafiki/pkg/config"
	"github.com/rafiki-assist/rafiki/pkg/email"
	"github.com/rafiki-assist/rafiki/pkg/firebase"
	"github.com/rafiki-assist/rafiki/pkg/httpserver"
	"github.com/rafiki-assist/rafiki/pkg/jwt"
	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/mongo"
	"github.com/rafiki-assist/rafiki/pkg/pg"
	"github.com/rafiki-assist/rafiki/pkg/ratelimiter"
	"github.com/rafiki-assist/rafiki/pkg/redis"
	"github.com/rafiki-assist/rafiki/pkg/totp"
	"github.com/rafiki-assist/rafiki/svc/auth"
	"github.com/rafiki-assist/rafiki/svc/flow"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
	"github.com/rafiki-assist/rafiki/svc/twofactor/fsstore"
	"github.com/rafiki-assist/rafiki/svc/twofactor/mongostore"
	"github.com/rafiki-assist/rafiki/svc/twofactor/pgstore"
)

var errUnknownBackend = errors.New("unknown backend")

// app is the assembled service.
type app struct {
	api     http.Handler
	ops     http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type builder struct {
	cfg    *settings
	log    *slog.Logger
	a      *app
	checks map[string]httpserver.CheckFunc

	firebase *firebase.App
	redis    *goredis.Client
}

func newLogger(cfg logger.Config) (*slog.Logger, error) {
	return logger.FromConfig(cfg, logger.WithContextValue("request_id", middleware.RequestIDKey))
}

func buildApp(ctx context.Context, cfg *settings, log *slog.Logger) (_ *app, err error) {
	b := &builder{cfg: cfg, log: log, a: &app{}, checks: map[string]httpserver.CheckFunc{}}
	defer func() {
		if err != nil {
			b.a.Close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tfMetrics, err := twofactor.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	httpMetrics, err := httpserver.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	cipher, err := totp.NewCipherFromConfig(cfg.totp)
	if err != nil {
		return nil, err
	}
	tokens, err := jwt.NewFromConfig(cfg.jwt)
	if err != nil {
		return nil, err
	}

	store, err := b.twoFactorStore(ctx)
	if err != nil {
		return nil, err
	}
	sender, err := email.New(cfg.email)
	if err != nil {
		return nil, err
	}
	svc := twofactor.NewService(store,
		twofactor.WithConfig(cfg.totp),
		twofactor.WithCipher(cipher),
		twofactor.WithLogger(log),
		twofactor.WithMetrics(tfMetrics),
		twofactor.WithNotifier(twofactor.NewEmailNotifier(sender, cfg.email.SupportEmail)),
	)

	sessions, err := b.sessionStore(ctx)
	if err != nil {
		return nil, err
	}
	flows := flow.NewController(svc, sessions,
		flow.WithCipher(cipher),
		flow.WithAssuranceTokens(tokens, cfg.jwt.AssuranceTTL),
		flow.WithTTLs(cfg.app.SetupTTL, cfg.app.LoginTTL),
		flow.WithMaxAttempts(cfg.app.MaxAttempts),
		flow.WithLogger(log),
	)

	limiter, err := b.rateLimiter()
	if err != nil {
		return nil, err
	}
	verifier, err := b.verifier(ctx, tokens)
	if err != nil {
		return nil, err
	}

	module := twofa.NewModule(svc, flows,
		twofa.WithRateLimiter(limiter),
		twofa.WithLogger(log),
	)

	api := chi.NewRouter()
	api.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		httpMetrics.Middleware,
	)
	api.Get("/health/live", httpserver.Liveness())
	api.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, log, module.Unauthorized))
		r.Mount("/v1/2fa", module.Handle())
	})

	ops := chi.NewRouter()
	ops.Get("/health/live", httpserver.Liveness())
	ops.Get("/health/ready", httpserver.Readiness(log, b.checks))
	ops.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	b.a.api = api
	b.a.ops = ops
	return b.a, nil
}

func (b *builder) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if b.firebase != nil {
		return b.firebase, nil
	}
	var cfg firebase.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	fb, err := firebase.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.firebase = fb
	return fb, nil
}

func (b *builder) redisClient(ctx context.Context) (*goredis.Client, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.redis = client
	b.checks["redis"] = redis.Healthcheck(client)
	b.a.closers = append(b.a.closers, func() { _ = client.Close() })
	return client, nil
}

func (b *builder) twoFactorStore(ctx context.Context) (twofactor.Store, error) {
	switch b.cfg.app.Store {
	case storeMemory:
		b.log.WarnContext(ctx, "two-factor records are kept in memory and lost on restart",
			logger.Component("wiring"))
		return twofactor.NewMemoryStore(), nil

	case storeFirestore:
		fb, err := b.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		client, err := fb.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		b.a.closers = append(b.a.closers, func() { _ = client.Close() })
		b.checks["firestore"] = firebase.Healthcheck(client, fb.UsersCollection())
		return fsstore.New(client, fb.UsersCollection()), nil

	case storeMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		db, err := mongo.NewWithDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client := db.Client()
		b.a.closers = append(b.a.closers, func() { _ = client.Disconnect(context.Background()) })
		b.checks["mongo"] = mongo.Healthcheck(client)
		return mongostore.New(db, mongostore.DefaultCollection), nil

	case storePostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.a.closers = append(b.a.closers, pool.Close)
		b.checks["postgres"] = pg.Healthcheck(pool)
		if b.cfg.app.Migrate {
			if err := pg.Migrate(ctx, pool, migrations.FS, migrations.Dir, cfg, b.log); err != nil {
				return nil, err
			}
		}
		return pgstore.New(pool), nil
	}
	return nil, fmt.Errorf("%w: TWO_FACTOR_STORE=%q", errUnknownBackend, b.cfg.app.Store)
}

func (b *builder) sessionStore(ctx context.Context) (flow.SessionStore, error) {
	switch b.cfg.app.FlowStore {
	case storeMemory:
		return flow.NewMemoryStore(b.cfg.app.SetupTTL), nil
	case storeRedis:
		client, err := b.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return flow.NewRedisStore(client, ""), nil
	}
	return nil, fmt.Errorf("%w: FLOW_STORE=%q", errUnknownBackend, b.cfg.app.FlowStore)
}

// rateLimiter shares buckets through Redis when the flow sessions already
// live there, so replicas enforce one limit.
func (b *builder) rateLimiter() (*ratelimiter.Bucket, error) {
	if b.redis != nil {
		return ratelimiter.NewBucket(ratelimiter.NewRedisStore(b.redis, ""), b.cfg.rateLimit)
	}
	store := ratelimiter.NewMemoryStore()
	b.a.closers = append(b.a.closers, store.Close)
	return ratelimiter.NewBucket(store, b.cfg.rateLimit)
}

func (b *builder) verifier(ctx context.Context, tokens *jwt.Service) (auth.Verifier, error) {
	switch b.cfg.auth.Provider {
	case auth.ProviderFirebase:
		fb, err := b.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		client, err := fb.Auth(ctx)
		if err != nil {
			return nil, err
		}
		return auth.NewFirebaseVerifier(client), nil
	case auth.ProviderJWT:
		b.log.WarnContext(ctx, "accepting locally signed identity tokens", logger.Component("wiring"))
		return auth.NewJWTVerifier(tokens), nil
	}
	return nil, fmt.Errorf("%w: IDENTITY_PROVIDER=%q", auth.ErrUnknownProvider, b.cfg.auth.Provider)
}

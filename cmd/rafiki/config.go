package main

import (
	"time"

	"github.com/rafiki-assist/rafiki/pkg/config"
	"github.com/rafiki-assist/rafiki/pkg/email"
	"github.com/rafiki-assist/rafiki/pkg/httpserver"
	"github.com/rafiki-assist/rafiki/pkg/jwt"
	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/ratelimiter"
	"github.com/rafiki-assist/rafiki/pkg/totp"
	"github.com/rafiki-assist/rafiki/svc/auth"
)

// Backends accepted in TWO_FACTOR_STORE and FLOW_STORE.
const (
	storeMemory    = "memory"
	storeFirestore = "firestore"
	storeMongo     = "mongo"
	storePostgres  = "postgres"
	storeRedis     = "redis"
)

type appConfig struct {
	Store       string        `env:"TWO_FACTOR_STORE" envDefault:"memory"`
	FlowStore   string        `env:"FLOW_STORE" envDefault:"memory"`
	MetricsAddr string        `env:"METRICS_ADDR" envDefault:":9090"`
	SetupTTL    time.Duration `env:"FLOW_SETUP_TTL" envDefault:"15m"`
	LoginTTL    time.Duration `env:"FLOW_LOGIN_TTL" envDefault:"5m"`
	MaxAttempts int           `env:"FLOW_MAX_ATTEMPTS" envDefault:"5"`
	Migrate     bool          `env:"PG_MIGRATE_ON_START" envDefault:"true"`
}

// settings gathers the configuration every command shares.
type settings struct {
	app       appConfig
	log       logger.Config
	http      httpserver.Config
	totp      totp.Config
	auth      auth.Config
	jwt       jwt.Config
	email     email.Config
	rateLimit ratelimiter.Config
}

func loadSettings() (*settings, error) {
	s := &settings{}
	for _, load := range []func() error{
		func() error { return config.Load(&s.app) },
		func() error { return config.Load(&s.log) },
		func() error { return config.Load(&s.http) },
		func() error { return config.Load(&s.totp) },
		func() error { return config.Load(&s.auth) },
		func() error { return config.Load(&s.jwt) },
		func() error { return config.Load(&s.email) },
		func() error { return config.Load(&s.rateLimit) },
	} {
		if err := load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

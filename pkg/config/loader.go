package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

type options struct {
	files       []string
	prefix      string
	environment map[string]string
}

// Option tunes a single Load call.
type Option func(*options)

// WithEnvFiles loads the given dotenv files before parsing. Missing files
// are an error, unlike the implicit ".env" which is optional.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) { o.files = append(o.files, paths...) }
}

// WithPrefix prepends prefix to every env tag, e.g. "MIGRATE_".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvironment parses from the given map instead of the process
// environment. Tests use it to avoid t.Setenv.
func WithEnvironment(vars map[string]string) Option {
	return func(o *options) { o.environment = vars }
}

// Load fills v from environment variables using caarlos0/env tags.
// The working directory's .env file is read once per process if present;
// variables already set in the environment win.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.environment == nil {
		var dotenvErr error
		dotenvOnce.Do(func() {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				dotenvErr = err
			}
		})
		if dotenvErr != nil {
			return errors.Join(ErrLoadingEnvFile, dotenvErr)
		}
		if len(o.files) > 0 {
			if err := godotenv.Load(o.files...); err != nil {
				return errors.Join(ErrLoadingEnvFile, err)
			}
		}
	}

	if err := env.ParseWithOptions(v, env.Options{
		Prefix:      o.prefix,
		Environment: o.environment,
	}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad is Load that panics, for configuration the process cannot start without.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

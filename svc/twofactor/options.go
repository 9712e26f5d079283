package twofactor

import (
	"log/slog"
	"time"

	"github.com/rafiki-assist/rafiki/pkg/totp"
)

// Option configures a Service.
type Option func(*Service)

// WithCipher encrypts secrets at rest. Without it secrets are stored as is.
func WithCipher(c *totp.Cipher) Option {
	return func(s *Service) { s.cipher = c }
}

// WithIssuer sets the issuer shown in authenticator apps.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithCredentialParams sets the algorithm, digits and period of new credentials.
func WithCredentialParams(alg totp.Algorithm, digits, period int) Option {
	return func(s *Service) {
		s.defaults = totp.Params{Algorithm: alg, Digits: digits, Period: period}.WithDefaults()
	}
}

// WithBackupCodeCount sets the size of issued backup code sets.
func WithBackupCodeCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.backupCount = n
		}
	}
}

// WithHashParams overrides the argon2id cost for backup code hashes.
func WithHashParams(p totp.HashParams) Option {
	return func(s *Service) { s.hashParams = p }
}

// WithQRSize sets the default QR edge in pixels.
func WithQRSize(px int) Option {
	return func(s *Service) {
		if px > 0 {
			s.qrSize = px
		}
	}
}

// WithConfig applies the credential, issuer, backup and QR settings of cfg.
func WithConfig(cfg totp.Config) Option {
	return func(s *Service) {
		WithIssuer(cfg.Issuer)(s)
		WithCredentialParams(cfg.Algorithm, cfg.Digits, cfg.Period)(s)
		WithBackupCodeCount(cfg.BackupCodeCount)(s)
		WithQRSize(cfg.QRSize)(s)
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records counters on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier sends enable and disable notices through n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

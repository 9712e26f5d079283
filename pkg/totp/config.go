package totp

// Config holds TOTP settings read from the environment.
type Config struct {
	EncryptionKey   string    `env:"TOTP_ENCRYPTION_KEY,required"`           // Base64 AES-256 key for secrets at rest
	Issuer          string    `env:"TOTP_ISSUER" envDefault:"Rafiki Assist"` // Shown in authenticator apps
	Algorithm       Algorithm `env:"TOTP_ALGORITHM" envDefault:"SHA1"`       // HMAC function for new credentials
	Digits          int       `env:"TOTP_DIGITS" envDefault:"6"`             // Code length for new credentials
	Period          int       `env:"TOTP_PERIOD" envDefault:"30"`            // Step length in seconds for new credentials
	BackupCodeCount int       `env:"TOTP_BACKUP_CODE_COUNT" envDefault:"8"`  // Codes per issued set
	QRSize          int       `env:"TOTP_QR_SIZE" envDefault:"256"`          // Provisioning QR edge in pixels
}

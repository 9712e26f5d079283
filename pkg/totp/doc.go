// Package totp implements RFC 6238 time-based one-time passwords and the
// helpers around them: secret generation, otpauth:// provisioning URIs,
// drift tolerant verification, AES-256-GCM encryption of secrets at rest
// and argon2id-hashed single-use backup codes.
//
// The package has no storage or identity concerns; those live in
// svc/twofactor.
//
// # Usage
//
//	secret, _ := totp.GenerateSecretKey()
//
//	uri, _ := totp.ProvisioningURI(totp.Params{
//	    Secret:      secret,
//	    AccountName: "caregiver@example.com",
//	    Issuer:      "Rafiki Assist",
//	})
//
//	ok, err := totp.Verify(totp.Params{Secret: secret}, "123456", time.Now())
//	if errors.Is(err, totp.ErrMalformedCode) {
//	    // reject before any comparison
//	}
//
// Backup codes are shown to the user once and stored only as hashes:
//
//	codes, _ := totp.GenerateBackupCodes(totp.DefaultBackupCodeCount)
//	salt, _ := totp.NewSalt()
//	hash, _ := totp.HashBackupCode(codes[0], salt, totp.DefaultHashParams)
//	totp.VerifyBackupCode(codes[0], salt, hash) // true
package totp

// Package twofactor implements TOTP two-factor authentication for Rafiki
// Assist accounts: enrolment, login verification with replay protection,
// and single-use backup codes.
//
// The Service is storage agnostic. MemoryStore backs tests and local runs;
// the fsstore, mongostore and pgstore subpackages provide Firestore, MongoDB
// and PostgreSQL backends with the same atomicity guarantees.
//
//	svc := twofactor.NewService(store,
//		twofactor.WithCipher(cipher),
//		twofactor.WithConfig(cfg),
//		twofactor.WithLogger(log),
//	)
//	cred, _ := svc.GenerateSecret(ctx, user)
//	codes, err := svc.EnableTwoFactor(ctx, user, cred, "123456")
package twofactor

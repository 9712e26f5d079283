package auth

import "errors"

var (
	ErrMissingToken       = errors.New("auth: missing bearer token")
	ErrInvalidToken       = errors.New("auth: invalid identity token")
	ErrVerifierNotSet     = errors.New("auth: identity verifier is not configured")
	ErrUnknownProvider    = errors.New("auth: unknown identity provider")
	ErrMissingSubject     = errors.New("auth: token has no subject")
	ErrFailedToIssueToken = errors.New("auth: failed to issue identity token")
)

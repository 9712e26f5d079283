package twofa

import (
	"net/http"

	"github.com/rafiki-assist/rafiki/handler"
	"github.com/rafiki-assist/rafiki/svc/auth"
	"github.com/rafiki-assist/rafiki/svc/flow"
	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// ErrorMappings translates service errors into API errors. Order matters:
// an exhausted challenge also carries the failed verification that
// exhausted it.
func ErrorMappings() []handler.ErrorMapping {
	return []handler.ErrorMapping{
		handler.Map(flow.ErrAttemptsExhausted, http.StatusTooManyRequests, "attempts_exhausted"),
		handler.Map(twofactor.ErrNoAuthenticatedUser, http.StatusUnauthorized, "no_authenticated_user"),
		handler.Map(auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"),
		handler.Map(auth.ErrMissingSubject, http.StatusUnauthorized, "invalid_token"),
		handler.Map(twofactor.ErrMalformedCode, http.StatusBadRequest, "malformed_code"),
		handler.Map(twofactor.ErrVerificationFailed, http.StatusUnauthorized, "verification_failed"),
		handler.Map(twofactor.ErrInvalidOrUsedCode, http.StatusUnauthorized, "invalid_or_used_code"),
		handler.Map(twofactor.ErrAlreadyEnabled, http.StatusConflict, "already_enabled"),
		handler.Map(twofactor.ErrNotEnabled, http.StatusConflict, "not_enabled"),
		handler.Map(flow.ErrInvalidFlowState, http.StatusConflict, "invalid_flow_state"),
		handler.Map(flow.ErrFlowNotFound, http.StatusNotFound, "flow_not_found"),
		handler.Map(twofactor.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"),
	}
}

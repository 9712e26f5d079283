package auth

import (
	"log/slog"
	"net/http"

	"github.com/rafiki-assist/rafiki/pkg/logger"
)

// Middleware resolves the bearer token into a User on the request context.
// Requests without a token pass through anonymously so downstream handlers
// report the missing user in their own envelope. Invalid tokens are
// answered by onError.
func Middleware(v Verifier, log *slog.Logger, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := v.Verify(r.Context(), token)
			if err != nil {
				log.DebugContext(r.Context(), "identity token rejected",
					logger.Component("auth"),
					logger.Error(err),
				)
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

package ratelimiter

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/svc/auth"
)

// KeyFunc extracts the bucket key from a request. An empty key skips
// limiting.
type KeyFunc func(r *http.Request) string

// ByUser keys by the authenticated user and falls back to the client IP.
func ByUser(r *http.Request) string {
	if u := auth.UserFromContext(r.Context()); u.Valid() {
		return "user:" + u.ID
	}
	return ByIP(r)
}

// ByIP keys by the remote address. Mount chi's RealIP middleware first when
// running behind a proxy.
func ByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return ""
	}
	return "ip:" + host
}

// Middleware enforces b per key. Denied requests are answered by onLimit,
// which defaults to a plain 429. Store failures let the request through and
// are logged.
func Middleware(b *Bucket, key KeyFunc, log *slog.Logger, onLimit func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := b.Allow(r.Context(), k)
			if err != nil {
				log.WarnContext(r.Context(), "rate limit check failed",
					logger.Error(err),
					logger.Component("ratelimiter"),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				if wait := res.RetryAfter(time.Now()); wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				}
				log.InfoContext(r.Context(), "rate limited",
					slog.String("key", k),
					logger.Component("ratelimiter"),
				)
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

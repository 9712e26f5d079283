// Package ratelimiter implements a token bucket limiter with in-memory and
// Redis backed stores, plus an HTTP middleware.
//
// The two-factor API mounts it on the challenge verification route keyed by
// the authenticated user, so guessing codes across many challenges is
// throttled even though each challenge also caps its own attempts.
//
//	limiter, _ := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), cfg)
//	r.With(ratelimiter.Middleware(limiter, ratelimiter.ByUser, nil)).Post(...)
package ratelimiter

package auth

import "context"

type ctxKey int

const userKey ctxKey = iota

// ContextWithUser attaches the verified caller to ctx. A user without an ID
// is not attached, so downstream code never sees a half-verified identity.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	if !u.Valid() {
		return ctx
	}
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the caller set by Middleware, or nil.
func UserFromContext(ctx context.Context) *User {
	if ctx == nil {
		return nil
	}
	u, _ := ctx.Value(userKey).(*User)
	return u
}

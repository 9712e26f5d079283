// Package binder decodes HTTP requests into typed request structs.
//
// Binders share the signature func(*http.Request, any) error so handlers can
// compose them:
//
//	handler.Wrap(h, handler.WithBinders[VerifyRequest](
//		binder.Path(chi.URLParam),
//		binder.JSON(),
//	))
//
// JSON decoding is strict: unknown fields, trailing data and bodies over
// DefaultMaxJSONSize are rejected. A request without a body is skipped with
// ErrBinderNotApplicable so optional payloads stay optional.
package binder

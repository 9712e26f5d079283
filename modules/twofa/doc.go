// Package twofa exposes two-factor setup, login challenges and account
// management over HTTP.
//
// Mount Module.Handle under /v1/2fa behind auth.Middleware:
//
//	r.With(auth.Middleware(verifier, log, module.Unauthorized)).
//		Mount("/v1/2fa", module.Handle())
//
// Every response uses the handler JSON envelope and is marked no-store.
package twofa

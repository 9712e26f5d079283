// Package auth resolves the caller's identity for the two-factor API.
//
// Primary sign-in happens elsewhere (Firebase Authentication in production).
// This package only verifies the presented bearer token, either with the
// Firebase Admin SDK or with a locally signed HS256 token, and stores the
// resulting User on the request context.
package auth

// Package flow drives the two-factor setup wizard and the login challenge
// as state machines whose progress is kept in short-lived sessions.
//
// Setup: intro -> scan -> verify -> backup -> complete, with a restart from
// scan or verify back to intro. Login: challenge -> verified, or
// challenge -> failed once the attempt limit is reached. An expired setup
// session leaves the account without 2FA.
package flow

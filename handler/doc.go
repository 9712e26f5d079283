// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a bound request value and returns a
// Response. Wrap applies binders, renders the response and hands every
// failure to an ErrorHandler, which answers with the JSON envelope
//
//	{"data": ..., "meta": ..., "error": {"code": "...", "message": "..."}}
//
// Every response carries Cache-Control: no-store because two-factor payloads
// include secrets and one-time codes.
package handler

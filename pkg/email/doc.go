// Package email sends security notifications through Postmark, or writes
// them to disk in development.
package email

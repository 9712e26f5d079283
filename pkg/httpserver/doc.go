// Package httpserver runs net/http servers with graceful shutdown and
// provides the health and metrics plumbing shared by the API and metrics
// listeners.
//
// Run blocks until its context is cancelled, then shuts the server down
// within the configured deadline. Callers own signal handling, usually via
// signal.NotifyContext, so several servers can share one lifecycle inside an
// errgroup.
//
// Liveness and Readiness return health check handlers. Metrics instruments handlers
// with Prometheus request counters, latency histograms and an in-flight
// gauge labelled by chi route pattern.
package httpserver

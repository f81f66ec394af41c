// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

/*
Package middleware provides HTTP middleware for the operator gateway.

The middleware here is transport plumbing shared by every route: request ID
tracking, Prometheus instrumentation, and gzip compression. Routing-level
concerns (CORS, rate limiting, panic recovery) come from the chi ecosystem
and are assembled in internal/api.

Key Components:

  - RequestID: UUID-based request tracking, wired into the logging context
  - PrometheusMetrics: per-request counters and latency histograms
  - Compression: gzip for responses when the client accepts it

All middleware uses the http.HandlerFunc shape; internal/api adapts it to
chi's func(http.Handler) http.Handler where needed.

Usage Example - Request ID:

	r.Get("/api/status",
	    middleware.RequestID(handler),
	)

	// Access the request ID in a handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    logging.Ctx(r.Context()).Info().Msg("Checking status")
	}

Thread Safety:

All middleware components are thread-safe:
  - Compression pools gzip writers with sync.Pool
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/api: route assembly and handlers
  - internal/metrics: Prometheus metric definitions
  - internal/logging: request-scoped logging via logging.Ctx
*/
package middleware

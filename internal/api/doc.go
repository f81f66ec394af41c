// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

/*
Package api is the operator-facing HTTP gateway.

It serves the review panel frontend, upgrades panels onto the websocket
event bus, and exposes a small administrative surface:

	GET  /                    panel index page (embedded fallback without assets)
	GET  /assets/*            panel static assets
	GET  /api/status          health probe, HTTP basic auth
	POST /api/reload_clients  ask every connected panel to reload
	GET  /api/websocket       event bus endpoint
	GET  /metrics             Prometheus metrics

Routing is chi with the stock hardening stack: real IP extraction, panic
recovery, request IDs wired into zerolog, permissive CORS (panels live on
the field network, often opened from file:// during setup), and per-IP
rate limiting on the /api group.

The package only builds the http.Handler; the listening server is owned
by the supervisor tree (internal/supervisor/services).
*/
package api

// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the VAR coordinator:
// - Arena connection health and notification throughput
// - HyperDeck command latency and recording lifecycle
// - Review workflow activity
// - Match store persistence
// - Operator websocket bus traffic
// - API endpoint latency and throughput

var (
	// Arena Metrics
	ArenaConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arena_connected",
			Help: "Whether the arena websocket is currently connected (0 or 1)",
		},
	)

	ArenaNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_notifications_total",
			Help: "Total number of arena notifications received by type",
		},
		[]string{"type"},
	)

	ArenaReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arena_reconnects_total",
			Help: "Total number of arena websocket reconnection attempts",
		},
	)

	ArenaResultFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arena_result_fetch_duration_seconds",
			Help:    "Duration of match result refresh fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArenaResultFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_result_fetch_errors_total",
			Help: "Total number of failed match result fetches",
		},
		[]string{"match_type"},
	)

	// HyperDeck Metrics
	HyperdeckConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hyperdeck_connected",
			Help: "Whether the HyperDeck websocket is currently connected (0 or 1)",
		},
	)

	HyperdeckRecording = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hyperdeck_recording",
			Help: "Whether the HyperDeck is currently recording (0 or 1)",
		},
	)

	HyperdeckReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hyperdeck_reconnects_total",
			Help: "Total number of HyperDeck websocket reconnection attempts",
		},
	)

	HyperdeckCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperdeck_commands_total",
			Help: "Total number of HyperDeck control commands by result",
		},
		[]string{"command", "result"}, // result: "success", "failure"
	)

	HyperdeckFinalizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hyperdeck_clip_finalize_duration_seconds",
			Help:    "Time waiting for clip metadata after stopping a recording",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 10},
		},
	)

	// Review Workflow Metrics
	MatchesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matches_recorded_total",
			Help: "Total number of match recordings started by match type",
		},
		[]string{"match_type"},
	)

	VarReviewsRequested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "var_reviews_requested_total",
			Help: "Total number of VAR review annotations requested by operators",
		},
	)

	ReviewSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_sessions_total",
			Help: "Total number of review sessions opened",
		},
		[]string{"kind"}, // "current", "historical"
	)

	ControllerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "controller_state",
			Help: "Coordinator state (0=idle, 1=recording, 2=reviewing_current, 3=reviewing_historical)",
		},
	)

	// Match Store Metrics
	StoreWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_writes_total",
			Help: "Total number of match records written to disk",
		},
	)

	StoreWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_write_errors_total",
			Help: "Total number of failed match record writes",
		},
	)

	StoreMatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_matches",
			Help: "Current number of match records in the store",
		},
	)

	// Operator WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active operator websocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of websocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of websocket messages received",
		},
	)

	WSSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_subscriptions",
			Help: "Current number of subscribers per topic",
		},
		[]string{"topic"},
	)

	WSCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_commands_total",
			Help: "Total number of operator commands received",
		},
		[]string{"command"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of websocket errors",
		},
		[]string{"error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordArenaNotification records a received arena notification.
func RecordArenaNotification(notificationType string) {
	ArenaNotifications.WithLabelValues(notificationType).Inc()
}

// SetArenaConnected updates the arena connection gauge.
func SetArenaConnected(connected bool) {
	if connected {
		ArenaConnected.Set(1)
	} else {
		ArenaConnected.Set(0)
	}
}

// SetHyperdeckConnected updates the HyperDeck connection gauge.
func SetHyperdeckConnected(connected bool) {
	if connected {
		HyperdeckConnected.Set(1)
	} else {
		HyperdeckConnected.Set(0)
	}
}

// SetHyperdeckRecording updates the recording gauge.
func SetHyperdeckRecording(recording bool) {
	if recording {
		HyperdeckRecording.Set(1)
	} else {
		HyperdeckRecording.Set(0)
	}
}

// RecordHyperdeckCommand records a HyperDeck control command and its outcome.
func RecordHyperdeckCommand(command string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	HyperdeckCommands.WithLabelValues(command, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordStoreWrite records a match record write and its outcome.
func RecordStoreWrite(err error) {
	if err != nil {
		StoreWriteErrors.Inc()
		return
	}
	StoreWrites.Inc()
}

// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

// Package arena maintains a resilient session with the arena server. It
// authenticates against the admin login, consumes the referee websocket
// feed into local snapshots, derives match lifecycle notifications from
// state changes, and fetches historical match results over REST.
package arena

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/videoref/internal/config"
	"github.com/tomtom215/videoref/internal/logging"
	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
	"github.com/tomtom215/videoref/internal/store"
)

// Event identifies a notification raised by the arena client.
type Event int

const (
	ConnectionStateUpdated Event = iota
	MatchDataUpdated
	MatchTimingUpdated
	MatchTimeUpdated
	RealtimeScoreUpdated
	HistoricalScoresUpdated
	ArenaReadyToStart
	MatchStarted
	AutoPeriodEnded
	TeleopPeriodStarted
	MatchEnded
	MatchCommittedOrDiscarded
)

// String returns the event name used in logs and metric labels.
func (e Event) String() string {
	switch e {
	case ConnectionStateUpdated:
		return "connection_state_updated"
	case MatchDataUpdated:
		return "match_data_updated"
	case MatchTimingUpdated:
		return "match_timing_updated"
	case MatchTimeUpdated:
		return "match_time_updated"
	case RealtimeScoreUpdated:
		return "realtime_score_updated"
	case HistoricalScoresUpdated:
		return "historical_scores_updated"
	case ArenaReadyToStart:
		return "arena_ready_to_start"
	case MatchStarted:
		return "match_started"
	case AutoPeriodEnded:
		return "auto_period_ended"
	case TeleopPeriodStarted:
		return "teleop_period_started"
	case MatchEnded:
		return "match_ended"
	case MatchCommittedOrDiscarded:
		return "match_committed_or_discarded"
	default:
		return "unknown"
	}
}

// Handler reacts to an arena event. Handlers run sequentially on the
// session goroutine; a returned error is logged and does not stop the
// remaining handlers.
type Handler func(ctx context.Context) error

// Client is the arena connection. Snapshot getters return shared values;
// callers must treat them as read-only.
type Client struct {
	address    string
	password   string
	compatMode bool
	store      *store.Store
	log        zerolog.Logger

	httpc          *http.Client
	dialer         *websocket.Dialer
	breaker        *gobreaker.CircuitBreaker[map[int]*models.MatchWithResultAndSummary]
	reconnectDelay time.Duration

	mu            sync.RWMutex
	handlers      map[Event][]Handler
	connected     bool
	sessionToken  string
	matchLoad     *models.MatchLoad
	matchTiming   *models.MatchTiming
	matchTime     *models.MatchTime
	realtimeScore *models.RealtimeScore
	arenaStatus   *models.ArenaStatus
	scoringStatus *models.ScoringStatus
	results       map[int]*models.MatchWithResultAndSummary
}

// New builds an arena client from config, restoring any persisted session
// token from the store.
func New(cfg config.ArenaConfig, st *store.Store) *Client {
	log := logging.With().Str("component", "arena").Logger()

	c := &Client{
		address:    cfg.Address,
		password:   cfg.Password,
		compatMode: cfg.CompatMode,
		store:      st,
		log:        log,
		httpc: &http.Client{
			Timeout: httpTimeout,
			// The arena answers auth probes and logins with redirects
			// that carry the interesting status codes and cookies, so
			// redirects are never followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		dialer:         &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		reconnectDelay: reconnectDelay,
		handlers:       make(map[Event][]Handler),
		matchLoad:      models.PlaceholderMatchLoad(),
		matchTiming:    models.DefaultMatchTiming(),
		matchTime:      models.PlaceholderMatchTime(),
		realtimeScore:  models.PlaceholderRealtimeScore(),
		arenaStatus:    models.PlaceholderArenaStatus(),
		scoringStatus:  &models.ScoringStatus{},
		results:        make(map[int]*models.MatchWithResultAndSummary),
	}
	c.breaker = newResultsBreaker(log)

	if state := st.LoadArenaClientState(); state != nil && state.SessionToken != nil {
		c.sessionToken = *state.SessionToken
		c.log.Debug().Msg("Restored arena session token")
	}
	return c
}

// Subscribe registers a handler for an event.
func (c *Client) Subscribe(event Event, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

func (c *Client) notify(ctx context.Context, event Event) {
	metrics.RecordArenaNotification(event.String())

	c.mu.RLock()
	handlers := append([]Handler(nil), c.handlers[event]...)
	c.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx); err != nil {
			c.log.Error().Err(err).Str("event", event.String()).Msg("Notification handler failed")
		}
	}
}

// Connected reports whether the websocket session is up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// MatchLoad returns the currently loaded match announcement.
func (c *Client) MatchLoad() *models.MatchLoad {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matchLoad
}

// MatchTiming returns the arena's period durations.
func (c *Client) MatchTiming() *models.MatchTiming {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matchTiming
}

// MatchTime returns the last state/clock tick.
func (c *Client) MatchTime() *models.MatchTime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matchTime
}

// RealtimeScore returns the live scoring snapshot.
func (c *Client) RealtimeScore() *models.RealtimeScore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realtimeScore
}

// ArenaStatus returns the arena readiness snapshot.
func (c *Client) ArenaStatus() *models.ArenaStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.arenaStatus
}

// ScoringStatus returns the scoring crew readiness snapshot.
func (c *Client) ScoringStatus() *models.ScoringStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scoringStatus
}

// MatchResults returns the historical results keyed by arena match id.
// The map is replaced wholesale on refresh and must not be mutated.
func (c *Client) MatchResults() map[int]*models.MatchWithResultAndSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.results
}

// ResultForMatch looks up one match in the historical results.
func (c *Client) ResultForMatch(arenaID int) (*models.MatchWithResultAndSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	match, ok := c.results[arenaID]
	return match, ok
}

func (c *Client) setConnected(ctx context.Context, connected bool) {
	c.mu.Lock()
	changed := c.connected != connected
	c.connected = connected
	c.mu.Unlock()

	if !changed {
		return
	}
	metrics.SetArenaConnected(connected)
	if connected {
		c.log.Info().Msg("Connected to arena")
	} else {
		c.log.Warn().Msg("Disconnected from arena")
	}
	c.notify(ctx, ConnectionStateUpdated)
}

func (c *Client) currentSessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken
}

func (c *Client) storeSessionToken(token string) {
	c.mu.Lock()
	c.sessionToken = token
	c.mu.Unlock()

	if err := c.store.SaveArenaClientState(&models.ArenaClientState{SessionToken: &token}); err != nil {
		c.log.Warn().Err(err).Msg("Failed to persist arena session token")
	}
}

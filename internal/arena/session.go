// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package arena

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
)

const (
	reconnectDelay   = 3 * time.Second
	httpTimeout      = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	readLimit        = 1 << 20

	loginUsername     = "admin"
	sessionCookieName = "session_token"

	refereePanelPath = "/panels/referee"
	loginPath        = "/login"
	compatSocketPath = "/panels/referee/websocket"
	varSocketPath    = "/video_referee/websocket"
)

// Serve runs arena sessions until the context ends. Transient failures
// trigger a reconnect after a short delay; a configuration problem the
// operator must fix (wrong or missing password) stops the whole tree.
func (c *Client) Serve(ctx context.Context) error {
	for {
		err := c.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, suture.ErrTerminateSupervisorTree) {
			return err
		}

		c.log.Warn().Err(err).Dur("retry_in", c.reconnectDelay).Msg("Arena session ended")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
		metrics.ArenaReconnects.Inc()
	}
}

// String names the service in supervisor logs.
func (c *Client) String() string { return "arena-client" }

func (c *Client) runSession(ctx context.Context) error {
	authRequired, err := c.probeAuth(ctx)
	if err != nil {
		return err
	}
	if authRequired {
		if err := c.login(ctx); err != nil {
			return err
		}
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.setConnected(ctx, true)
	defer c.setConnected(ctx, false)

	if err := c.RefreshResults(ctx); err != nil {
		c.log.Error().Err(err).Msg("Initial match result refresh failed")
	}

	// Unblock the read loop when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read arena frame: %w", err)
		}
		c.handleFrame(ctx, payload)
	}
}

// probeAuth reports whether the arena requires a login, probing the
// referee panel without following its redirect.
func (c *Client) probeAuth(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+refereePanelPath, nil)
	if err != nil {
		return false, err
	}
	c.attachSession(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe arena: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusTemporaryRedirect:
		return true, nil
	case http.StatusOK:
		return false, nil
	default:
		return false, &UnexpectedStatusError{Endpoint: refereePanelPath, Code: resp.StatusCode}
	}
}

// login posts the admin credentials. The arena answers a successful login
// with a redirect carrying the session cookie; staying on the login page
// (200) means the password was rejected.
func (c *Client) login(ctx context.Context) error {
	if c.password == "" {
		c.log.Error().Msg("Arena requires authentication but no password is configured")
		return fatal(ErrPasswordRequired)
	}

	form := url.Values{
		"username": {loginUsername},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("arena login: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusSeeOther:
		for _, cookie := range resp.Cookies() {
			if cookie.Name == sessionCookieName {
				c.storeSessionToken(cookie.Value)
				c.log.Info().Msg("Authenticated with arena")
				return nil
			}
		}
		return fmt.Errorf("arena login: no %s cookie in response", sessionCookieName)
	case http.StatusOK:
		c.log.Error().Msg("Arena rejected the configured admin password")
		return fatal(ErrWrongPassword)
	default:
		return &UnexpectedStatusError{Endpoint: loginPath, Code: resp.StatusCode}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	path := varSocketPath
	if c.compatMode {
		path = compatSocketPath
	}

	header := http.Header{}
	if token := c.currentSessionToken(); token != "" {
		header.Set("Cookie", (&http.Cookie{Name: sessionCookieName, Value: token}).String())
	}

	conn, resp, err := c.dialer.DialContext(ctx, "ws://"+c.address+path, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("dial %s: status %d: %w", path, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

func (c *Client) handleFrame(ctx context.Context, payload []byte) {
	var msg models.ArenaMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.log.Warn().Err(err).Msg("Dropping malformed arena frame")
		return
	}

	switch msg.Type {
	case "matchLoad":
		var data models.MatchLoad
		if !c.decode(msg, &data) {
			return
		}
		c.mu.Lock()
		c.matchLoad = &data
		c.mu.Unlock()
		c.notify(ctx, MatchDataUpdated)

	case "matchTiming":
		var data models.MatchTiming
		if !c.decode(msg, &data) {
			return
		}
		c.mu.Lock()
		c.matchTiming = &data
		c.mu.Unlock()
		c.notify(ctx, MatchTimingUpdated)

	case "matchTime":
		var data models.MatchTime
		if !c.decode(msg, &data) {
			return
		}
		c.handleMatchTime(ctx, data)

	case "realtimeScore":
		var data models.RealtimeScore
		if !c.decode(msg, &data) {
			return
		}
		c.mu.Lock()
		c.realtimeScore = &data
		c.mu.Unlock()
		c.notify(ctx, RealtimeScoreUpdated)

	case "arenaStatus":
		var data models.ArenaStatus
		if !c.decode(msg, &data) {
			return
		}
		c.handleArenaStatus(ctx, data)

	case "scoringStatus":
		var data models.ScoringStatus
		if !c.decode(msg, &data) {
			return
		}
		c.mu.Lock()
		c.scoringStatus = &data
		c.mu.Unlock()

	case "ping":
		// Keepalive; some arena builds attach an empty body, some none.
		if len(msg.Data) > 0 && !bytes.Equal(msg.Data, []byte("null")) {
			c.log.Debug().Msg("Arena ping carried unexpected data")
		}

	default:
		c.log.Warn().Str("type", msg.Type).Msg("Unknown arena message type")
	}
}

func (c *Client) decode(msg models.ArenaMessage, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.log.Warn().Err(err).Str("type", msg.Type).Msg("Dropping undecodable arena payload")
		return false
	}
	return true
}

// handleMatchTime publishes the clock tick, then derives lifecycle
// notifications from the state transition.
func (c *Client) handleMatchTime(ctx context.Context, data models.MatchTime) {
	c.mu.Lock()
	prev := c.matchTime.MatchState
	c.matchTime = &data
	c.mu.Unlock()

	c.notify(ctx, MatchTimeUpdated)
	if data.MatchState == prev {
		return
	}

	switch data.MatchState {
	case models.StateAutoPeriod:
		c.notify(ctx, MatchStarted)
	case models.StatePausePeriod:
		c.notify(ctx, AutoPeriodEnded)
	case models.StateTeleopPeriod:
		c.notify(ctx, TeleopPeriodStarted)
	case models.StatePostMatch:
		c.notify(ctx, MatchEnded)
	case models.StatePreMatch:
		if prev == models.StatePostMatch {
			// The match was just committed or discarded; pick up the
			// new result before telling anyone about it.
			if err := c.RefreshResults(ctx); err != nil {
				c.log.Error().Err(err).Msg("Match result refresh after commit failed")
			}
			c.notify(ctx, MatchCommittedOrDiscarded)
		}
	}
}

func (c *Client) handleArenaStatus(ctx context.Context, data models.ArenaStatus) {
	c.mu.Lock()
	wasReady := c.arenaStatus.CanStartMatch
	c.arenaStatus = &data
	c.mu.Unlock()

	if data.CanStartMatch && !wasReady {
		c.notify(ctx, ArenaReadyToStart)
	}
}

func (c *Client) baseURL() string {
	return "http://" + c.address
}

func (c *Client) attachSession(req *http.Request) {
	if token := c.currentSessionToken(); token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}
}

// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package arena

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/videoref/internal/config"
	"github.com/tomtom215/videoref/internal/logging"
	"github.com/tomtom215/videoref/internal/models"
	"github.com/tomtom215/videoref/internal/store"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

var upgrader = websocket.Upgrader{}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "var.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return st
}

func serverAddr(ts *httptest.Server) string {
	return strings.TrimPrefix(ts.URL, "http://")
}

// emptyMatchesRoutes serves empty result lists for every match type.
func emptyMatchesRoutes(mux *http.ServeMux) {
	for _, matchType := range models.AllMatchTypes {
		mux.HandleFunc("/api/matches/"+matchType.String(), func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("[]"))
		})
	}
}

func matchTimeFrame(state models.MatchState, sec int) []byte {
	return []byte(fmt.Sprintf(`{"type":"matchTime","data":{"MatchState":%d,"MatchTimeSec":%d}}`, state, sec))
}

func recordEvents(c *Client, got *[]Event, events ...Event) {
	for _, ev := range events {
		c.Subscribe(ev, func(context.Context) error {
			*got = append(*got, ev)
			return nil
		})
	}
}

func waitEvent(t *testing.T, ch <-chan Event, want Event) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %s", want)
		}
	}
}

func TestServeAuthenticatesAndConnects(t *testing.T) {
	cookieCh := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/panels/referee", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostFormValue("username") == "admin" && r.PostFormValue("password") == "pw" {
			http.SetCookie(w, &http.Cookie{Name: "session_token", Value: "tok-123", Path: "/"})
			w.Header().Set("Location", "/panels/referee")
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	emptyMatchesRoutes(mux)
	mux.HandleFunc("/video_referee/websocket", func(w http.ResponseWriter, r *http.Request) {
		cookie := ""
		if c, err := r.Cookie("session_token"); err == nil {
			cookie = c.Value
		}
		select {
		case cookieCh <- cookie:
		default:
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, matchTimeFrame(models.StateAutoPeriod, 1))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := newTestStore(t)
	c := New(config.ArenaConfig{Address: serverAddr(ts), Password: "pw"}, st)
	c.reconnectDelay = 10 * time.Millisecond

	events := make(chan Event, 32)
	for _, ev := range []Event{ConnectionStateUpdated, MatchStarted} {
		c.Subscribe(ev, func(ctx context.Context) error {
			events <- ev
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx) }()

	waitEvent(t, events, ConnectionStateUpdated)
	if !c.Connected() {
		t.Error("client should report connected")
	}
	waitEvent(t, events, MatchStarted)

	select {
	case cookie := <-cookieCh:
		if cookie != "tok-123" {
			t.Errorf("websocket dialed with cookie %q, want tok-123", cookie)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("websocket handler never ran")
	}

	state := st.LoadArenaClientState()
	if state == nil || state.SessionToken == nil || *state.SessionToken != "tok-123" {
		t.Errorf("persisted session state = %+v, want tok-123", state)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func TestServeOpenArenaSkipsLogin(t *testing.T) {
	cookieCh := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/panels/referee", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	emptyMatchesRoutes(mux)
	mux.HandleFunc("/video_referee/websocket", func(w http.ResponseWriter, r *http.Request) {
		cookie := ""
		if c, err := r.Cookie("session_token"); err == nil {
			cookie = c.Value
		}
		select {
		case cookieCh <- cookie:
		default:
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(config.ArenaConfig{Address: serverAddr(ts)}, newTestStore(t))
	c.reconnectDelay = 10 * time.Millisecond

	events := make(chan Event, 8)
	c.Subscribe(ConnectionStateUpdated, func(ctx context.Context) error {
		events <- ConnectionStateUpdated
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Serve(ctx) }()

	waitEvent(t, events, ConnectionStateUpdated)
	select {
	case cookie := <-cookieCh:
		if cookie != "" {
			t.Errorf("open arena dialed with cookie %q, want none", cookie)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("websocket handler never ran")
	}
}

func TestCompatModeUsesRefereeSocket(t *testing.T) {
	connected := make(chan struct{}, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/panels/referee", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	emptyMatchesRoutes(mux)
	mux.HandleFunc("/panels/referee/websocket", func(w http.ResponseWriter, r *http.Request) {
		select {
		case connected <- struct{}{}:
		default:
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(config.ArenaConfig{Address: serverAddr(ts), CompatMode: true}, newTestStore(t))
	c.reconnectDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Serve(ctx) }()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("compat websocket endpoint never dialed")
	}
}

func TestServeWrongPasswordTerminatesTree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/panels/referee", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(config.ArenaConfig{Address: serverAddr(ts), Password: "bad"}, newTestStore(t))
	c.reconnectDelay = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- c.Serve(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, suture.ErrTerminateSupervisorTree) {
			t.Errorf("Serve returned %v, want terminate sentinel", err)
		}
		if !errors.Is(err, ErrWrongPassword) {
			t.Errorf("Serve returned %v, want ErrWrongPassword", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept retrying after password rejection")
	}
}

func TestServeMissingPasswordTerminatesTree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/panels/referee", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTemporaryRedirect)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(config.ArenaConfig{Address: serverAddr(ts)}, newTestStore(t))
	c.reconnectDelay = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- c.Serve(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, suture.ErrTerminateSupervisorTree) || !errors.Is(err, ErrPasswordRequired) {
			t.Errorf("Serve returned %v, want terminate sentinel wrapping ErrPasswordRequired", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept retrying without a password")
	}
}

func TestRunSessionUnexpectedProbeStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/panels/referee", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(config.ArenaConfig{Address: serverAddr(ts)}, newTestStore(t))

	err := c.runSession(context.Background())
	var statusErr *UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("runSession returned %v, want UnexpectedStatusError", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want 503", statusErr.Code)
	}
	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		t.Error("unexpected status must not terminate the tree")
	}
}

func TestMatchTimeTransitions(t *testing.T) {
	mux := http.NewServeMux()
	emptyMatchesRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(config.ArenaConfig{Address: serverAddr(ts)}, newTestStore(t))

	var got []Event
	recordEvents(c, &got,
		MatchTimeUpdated, MatchStarted, AutoPeriodEnded, TeleopPeriodStarted,
		MatchEnded, HistoricalScoresUpdated, MatchCommittedOrDiscarded)

	ctx := context.Background()
	c.handleFrame(ctx, matchTimeFrame(models.StateAutoPeriod, 1))
	c.handleFrame(ctx, matchTimeFrame(models.StateAutoPeriod, 2)) // tick, no transition
	c.handleFrame(ctx, matchTimeFrame(models.StatePausePeriod, 15))
	c.handleFrame(ctx, matchTimeFrame(models.StateTeleopPeriod, 1))
	c.handleFrame(ctx, matchTimeFrame(models.StatePostMatch, 0))
	c.handleFrame(ctx, matchTimeFrame(models.StatePreMatch, 0))

	want := []Event{
		MatchTimeUpdated, MatchStarted,
		MatchTimeUpdated,
		MatchTimeUpdated, AutoPeriodEnded,
		MatchTimeUpdated, TeleopPeriodStarted,
		MatchTimeUpdated, MatchEnded,
		MatchTimeUpdated, HistoricalScoresUpdated, MatchCommittedOrDiscarded,
	}
	if !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	if mt := c.MatchTime(); mt.MatchState != models.StatePreMatch {
		t.Errorf("final match state = %v", mt.MatchState)
	}
}

func TestArenaStatusRisingEdge(t *testing.T) {
	c := New(config.ArenaConfig{Address: "127.0.0.1:1"}, newTestStore(t))

	var got []Event
	recordEvents(c, &got, ArenaReadyToStart)

	ctx := context.Background()
	frame := func(ready bool) []byte {
		return []byte(fmt.Sprintf(`{"type":"arenaStatus","data":{"CanStartMatch":%t}}`, ready))
	}

	c.handleFrame(ctx, frame(true))
	c.handleFrame(ctx, frame(true)) // still ready, no edge
	c.handleFrame(ctx, frame(false))
	c.handleFrame(ctx, frame(true))

	if len(got) != 2 {
		t.Errorf("ArenaReadyToStart fired %d times, want 2", len(got))
	}
	if !c.ArenaStatus().CanStartMatch {
		t.Error("arena status snapshot not updated")
	}
}

func TestSnapshotUpdatesFromFrames(t *testing.T) {
	c := New(config.ArenaConfig{Address: "127.0.0.1:1"}, newTestStore(t))

	var got []Event
	recordEvents(c, &got, MatchDataUpdated, MatchTimingUpdated, RealtimeScoreUpdated)

	ctx := context.Background()
	c.handleFrame(ctx, []byte(`{"type":"matchLoad","data":{"Match":{"Id":7,"Type":2,"ShortName":"Q3","Red1":111,"Blue1":444},"IsReplay":true,"Teams":{"R1":{"Id":111}}}}`))
	c.handleFrame(ctx, []byte(`{"type":"matchTiming","data":{"AutoDurationSec":20,"TeleopDurationSec":140}}`))
	c.handleFrame(ctx, []byte(`{"type":"realtimeScore","data":{"Red":{"ScoreSummary":{"MatchPoints":12}},"Blue":{"ScoreSummary":{"MatchPoints":8}},"RedCards":{"111":"yellow"},"BlueCards":{}}}`))
	c.handleFrame(ctx, []byte(`{"type":"scoringStatus","data":{"RefereeScoreReady":true,"PositionStatuses":{}}}`))

	load := c.MatchLoad()
	if load.Match == nil || load.Match.ID != 7 || load.Match.ShortName != "Q3" || !load.IsReplay {
		t.Errorf("match load = %+v", load)
	}
	if c.MatchTiming().AutoDurationSec != 20 {
		t.Errorf("timing = %+v", c.MatchTiming())
	}
	score := c.RealtimeScore()
	if score.Red.ScoreSummary.MatchPoints != 12 || score.RedCards["111"] != "yellow" {
		t.Errorf("score = %+v", score)
	}
	if !c.ScoringStatus().RefereeScoreReady {
		t.Error("scoring status not updated")
	}

	want := []Event{MatchDataUpdated, MatchTimingUpdated, RealtimeScoreUpdated}
	if !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestMalformedFramesDropped(t *testing.T) {
	c := New(config.ArenaConfig{Address: "127.0.0.1:1"}, newTestStore(t))

	var got []Event
	recordEvents(c, &got,
		ConnectionStateUpdated, MatchDataUpdated, MatchTimingUpdated, MatchTimeUpdated,
		RealtimeScoreUpdated, HistoricalScoresUpdated, ArenaReadyToStart, MatchStarted,
		AutoPeriodEnded, TeleopPeriodStarted, MatchEnded, MatchCommittedOrDiscarded)

	ctx := context.Background()
	c.handleFrame(ctx, []byte(`this is not json`))
	c.handleFrame(ctx, []byte(`{"type":"mysteryType","data":{"x":1}}`))
	c.handleFrame(ctx, []byte(`{"type":"matchTime","data":{"MatchState":"not-a-number"}}`))
	c.handleFrame(ctx, []byte(`{"type":"ping"}`))
	c.handleFrame(ctx, []byte(`{"type":"ping","data":{"ts":123}}`))

	if len(got) != 0 {
		t.Errorf("unexpected events from bad frames: %v", got)
	}
	if c.MatchTime().MatchState != models.StatePreMatch {
		t.Error("malformed matchTime should not change the snapshot")
	}
}

func TestHandlerErrorDoesNotStopDispatch(t *testing.T) {
	c := New(config.ArenaConfig{Address: "127.0.0.1:1"}, newTestStore(t))

	calls := 0
	c.Subscribe(MatchTimeUpdated, func(context.Context) error {
		calls++
		return errors.New("handler exploded")
	})
	c.Subscribe(MatchTimeUpdated, func(context.Context) error {
		calls++
		return nil
	})

	c.handleFrame(context.Background(), matchTimeFrame(models.StateAutoPeriod, 1))
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2 (second handler must still run)", calls)
	}
}

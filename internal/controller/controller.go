// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

// Package controller drives the match review state machine. It reacts to
// arena lifecycle notifications by starting and stopping recordings,
// annotates the recorded timeline with scoring and foul bookmarks, answers
// operator commands from the event bus, and publishes every piece of state
// the review panel renders.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/videoref/internal/arena"
	"github.com/tomtom215/videoref/internal/config"
	"github.com/tomtom215/videoref/internal/hyperdeck"
	"github.com/tomtom215/videoref/internal/logging"
	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
	"github.com/tomtom215/videoref/internal/store"
	"github.com/tomtom215/videoref/internal/websocket"
)

// State is the controller's review mode.
type State int

const (
	// Idle means no match is loaded; the deck shows the live camera feed.
	Idle State = iota
	// Recording means a match is in progress and the deck is rolling.
	Recording
	// ReviewingCurrentMatch means the just-played match is under review
	// and has not been committed by the scorekeeper yet.
	ReviewingCurrentMatch
	// ReviewingHistoricalMatch means an operator pulled up an older match.
	ReviewingHistoricalMatch
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case ReviewingCurrentMatch:
		return "reviewing_current_match"
	case ReviewingHistoricalMatch:
		return "reviewing_historical_match"
	default:
		return "unknown"
	}
}

// Arena is the slice of the arena client the controller consumes.
type Arena interface {
	Subscribe(event arena.Event, handler arena.Handler)
	Connected() bool
	MatchLoad() *models.MatchLoad
	MatchTiming() *models.MatchTiming
	MatchTime() *models.MatchTime
	RealtimeScore() *models.RealtimeScore
	ResultForMatch(arenaID int) (*models.MatchWithResultAndSummary, bool)
}

// Recorder is the slice of the deck client the controller consumes.
type Recorder interface {
	Subscribe(event hyperdeck.Event, handler hyperdeck.Handler)
	Connected() bool
	TransportMode() models.TransportMode
	PlaybackState() models.PlaybackState
	HasPlayableClip(clipID int) bool
	CurrentTimeWithinClip(clipID int) float64
	ActiveWorkingSet() models.MediaWorkingSetEntry
	StartRecording(ctx context.Context, clipName string) error
	StopRecording(ctx context.Context) (int, error)
	WarpToClip(ctx context.Context, clipID int, timeSec float64) error
	ShowLiveView(ctx context.Context) error
}

// Bus is the operator event bus surface the controller publishes on.
type Bus interface {
	AddEventType(name string, emitter func() any)
	AddCommandHandler(name string, handler websocket.CommandHandler)
	Notify(name string)
}

// Controller coordinates the arena, the recorder and the operator panels.
// One mutex guards the state machine, the match records and store writes;
// topic emitters and command handlers take it for the whole critical
// section. Bus notifications are sent only after the mutex is released,
// because emitters re-acquire it.
type Controller struct {
	cfg      config.VarConfig
	arena    Arena
	recorder Recorder
	bus      Bus
	store    *store.Store
	log      zerolog.Logger

	// now is the clock used for record timestamps and event offsets.
	now func() time.Time

	mu        sync.Mutex
	ctx       context.Context
	state     State
	matches   map[string]*models.RecordedMatch
	current   *models.RecordedMatch
	stopTimer *time.Timer
}

// New builds the controller, loads previously recorded matches from the
// store and wires it into the arena, the recorder and the bus.
func New(cfg config.VarConfig, ar Arena, rec Recorder, bus Bus, st *store.Store) *Controller {
	c := &Controller{
		cfg:      cfg,
		arena:    ar,
		recorder: rec,
		bus:      bus,
		store:    st,
		log:      logging.With().Str("component", "controller").Logger(),
		now:      time.Now,
		state:    Idle,
		matches:  st.LoadAllMatches(),
	}
	metrics.ControllerState.Set(float64(Idle))

	c.subscribeArena()
	c.subscribeRecorder()
	c.registerTopics()
	c.registerCommands()

	c.log.Info().Int("stored_matches", len(c.matches)).Msg("Controller ready")
	return c
}

// Serve parks until shutdown. The controller does all of its work on the
// arena, recorder and bus goroutines; the service exists so supervision
// can disarm a pending delayed-stop timer on the way down.
func (c *Controller) Serve(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	<-ctx.Done()

	c.mu.Lock()
	c.cancelDelayedStopLocked()
	c.mu.Unlock()
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (c *Controller) String() string { return "controller" }

func (c *Controller) subscribeArena() {
	c.arena.Subscribe(arena.ConnectionStateUpdated, c.notifyTopic(models.TopicArenaConnection))
	c.arena.Subscribe(arena.MatchTimeUpdated, c.notifyTopic(models.TopicCurrentMatchTime))
	c.arena.Subscribe(arena.MatchTimingUpdated, c.notifyTopic(models.TopicMatchTiming))
	c.arena.Subscribe(arena.MatchDataUpdated, c.notifyTopic(models.TopicCurrentMatchData))
	c.arena.Subscribe(arena.HistoricalScoresUpdated, c.notifyTopic(models.TopicMatchList))
	c.arena.Subscribe(arena.RealtimeScoreUpdated, c.handleRealtimeScore)
	c.arena.Subscribe(arena.MatchStarted, c.handleMatchStart)
	c.arena.Subscribe(arena.AutoPeriodEnded, c.handleAutoPeriodEnd)
	c.arena.Subscribe(arena.MatchEnded, c.handleMatchEnd)
	c.arena.Subscribe(arena.MatchCommittedOrDiscarded, c.handleMatchCommit)
}

func (c *Controller) subscribeRecorder() {
	c.recorder.Subscribe(hyperdeck.ConnectionStateUpdated, c.notifyTopic(models.TopicHyperdeckConnection))
	c.recorder.Subscribe(hyperdeck.TransportModeUpdated, c.notifyTopic(models.TopicHyperdeckStatus))
	c.recorder.Subscribe(hyperdeck.PlaybackStateUpdated, c.notifyTopic(models.TopicHyperdeckStatus))
	c.recorder.Subscribe(hyperdeck.DiskSpaceUpdated, c.notifyTopic(models.TopicHyperdeckStatus))
	// Clip availability feeds the match list as well as the deck status.
	c.recorder.Subscribe(hyperdeck.ClipListUpdated, func(ctx context.Context) error {
		c.bus.Notify(models.TopicMatchList)
		c.bus.Notify(models.TopicHyperdeckStatus)
		return nil
	})
}

// notifyTopic builds a passthrough handler that republishes a client
// notification as a bus topic update.
func (c *Controller) notifyTopic(name string) func(context.Context) error {
	return func(context.Context) error {
		c.bus.Notify(name)
		return nil
	}
}

func (c *Controller) registerTopics() {
	c.bus.AddEventType(models.TopicControllerStatus, c.statusPayload)
	c.bus.AddEventType(models.TopicMatchList, c.matchListPayload)
	c.bus.AddEventType(models.TopicHyperdeckStatus, c.hyperdeckStatusPayload)
	c.bus.AddEventType(models.TopicMatchTiming, func() any { return c.arena.MatchTiming() })
	c.bus.AddEventType(models.TopicCurrentMatchTime, func() any { return c.arena.MatchTime() })
	c.bus.AddEventType(models.TopicCurrentMatchData, func() any { return c.arena.MatchLoad() })
	c.bus.AddEventType(models.TopicRealtimeScore, func() any { return c.arena.RealtimeScore() })
	c.bus.AddEventType(models.TopicArenaConnection, func() any {
		return &models.ConnectionStatus{Connected: c.arena.Connected()}
	})
	c.bus.AddEventType(models.TopicHyperdeckConnection, func() any {
		return &models.ConnectionStatus{Connected: c.recorder.Connected()}
	})
}

func (c *Controller) registerCommands() {
	c.bus.AddCommandHandler(models.CommandLoadMatch, c.handleLoadMatch)
	c.bus.AddCommandHandler(models.CommandExitReview, c.handleExitReview)
	c.bus.AddCommandHandler(models.CommandWarpToTime, c.handleWarpToTime)
	c.bus.AddCommandHandler(models.CommandAddVarReview, c.handleAddVarReview)
	c.bus.AddCommandHandler(models.CommandUpdateEvent, c.handleUpdateEvent)
}

// serveContext returns the service context, or background before Serve has
// run. Used by the delayed-stop timer, which has no caller context.
func (c *Controller) serveContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

func (c *Controller) setStateLocked(next State) {
	if c.state == next {
		return
	}
	c.log.Info().Str("from", c.state.String()).Str("to", next.String()).Msg("Controller state changed")
	c.state = next
	metrics.ControllerState.Set(float64(next))
}

// allocateVarIDLocked derives a locally unique id from the arena match
// name. Replays get a suffix so the original recording is kept.
func (c *Controller) allocateVarIDLocked(load *models.MatchLoad) string {
	base := load.Match.ShortName
	if load.IsReplay {
		base += "_replay"
	}

	varID := base
	for seq := 1; ; seq++ {
		if _, taken := c.matches[varID]; !taken {
			return varID
		}
		varID = fmt.Sprintf("%s_%d", base, seq)
	}
}

// currentMatchTimeLocked returns seconds since the current recording
// started, floored at zero. Zero when no match is loaded.
func (c *Controller) currentMatchTimeLocked() float64 {
	if c.current == nil {
		return 0
	}
	return c.current.VideoTime(c.now())
}

func (c *Controller) persistLocked(m *models.RecordedMatch) {
	err := c.store.SaveMatch(m)
	metrics.RecordStoreWrite(err)
	if err != nil {
		c.log.Error().Err(err).Str("var_id", m.VarID).Msg("Failed to persist match record")
	}
}

// saveAndUnloadLocked persists and drops the current match. Whether the
// deck goes back to the live feed is the caller's call: a commit wants
// that, a new match start goes straight into recording.
func (c *Controller) saveAndUnloadLocked() {
	if c.current == nil {
		return
	}
	c.log.Debug().Str("var_id", c.current.VarID).Msg("Unloading match")
	c.persistLocked(c.current)
	c.current = nil
}

// addEventLocked adds a bookmark to the current match and persists it.
// The list is re-sorted because backdated review bookmarks can land
// before existing entries.
func (c *Controller) addEventLocked(ev *models.MatchEvent) {
	if c.current == nil {
		c.log.Warn().Msg("No current match to add event to")
		return
	}
	c.current.Events = append(c.current.Events, ev)
	c.current.SortEvents()
	c.log.Info().
		Str("var_id", c.current.VarID).
		Str("event_type", string(ev.EventType)).
		Float64("time", ev.Time).
		Msg("Match event added")
	c.persistLocked(c.current)
}

func (c *Controller) cancelDelayedStopLocked() {
	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}
}

// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

// Package hyperdeck maintains a resilient session with the disk recorder.
// It subscribes to transport, playback, timeline and media properties over
// the control websocket, mirrors them into local snapshots, and drives
// recording and playback through the REST control API.
package hyperdeck

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/videoref/internal/config"
	"github.com/tomtom215/videoref/internal/logging"
	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
)

// Event identifies a notification raised by the recorder client.
type Event int

const (
	ConnectionStateUpdated Event = iota
	TransportModeUpdated
	PlaybackStateUpdated
	ClipListUpdated
	DiskSpaceUpdated
)

// String returns the event name used in logs.
func (e Event) String() string {
	switch e {
	case ConnectionStateUpdated:
		return "connection_state_updated"
	case TransportModeUpdated:
		return "transport_mode_updated"
	case PlaybackStateUpdated:
		return "playback_state_updated"
	case ClipListUpdated:
		return "clip_list_updated"
	case DiskSpaceUpdated:
		return "disk_space_updated"
	default:
		return "unknown"
	}
}

// Handler reacts to a recorder event. Handlers run sequentially on the
// session goroutine; a returned error is logged and does not stop the
// remaining handlers.
type Handler func(ctx context.Context) error

// Client is the recorder connection. Snapshots describe the deck as last
// reported; commands talk to the REST API directly.
type Client struct {
	address         string
	pollInterval    time.Duration
	finalizeTimeout time.Duration
	log             zerolog.Logger

	httpc          *http.Client
	dialer         *websocket.Dialer
	reconnectDelay time.Duration

	mu         sync.RWMutex
	handlers   map[Event][]Handler
	connected  bool
	transport  models.TransportMode
	playback   models.PlaybackState
	clips      map[int]models.Clip
	timeline   map[int]models.TimelineClip
	workingSet models.MediaWorkingSet
}

// New builds a recorder client from config.
func New(cfg config.HyperdeckConfig) *Client {
	return &Client{
		address:         cfg.Address,
		pollInterval:    cfg.ClipFinalizePollInterval,
		finalizeTimeout: cfg.ClipFinalizeTimeout,
		log:             logging.With().Str("component", "hyperdeck").Logger(),
		httpc:           &http.Client{Timeout: httpTimeout},
		dialer:          &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		reconnectDelay:  reconnectDelay,
		handlers:        make(map[Event][]Handler),
		transport:       models.TransportInputPreview,
		playback:        *models.PlaceholderPlaybackState(),
		clips:           make(map[int]models.Clip),
		timeline:        make(map[int]models.TimelineClip),
	}
}

// Subscribe registers a handler for an event.
func (c *Client) Subscribe(event Event, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

func (c *Client) notify(ctx context.Context, event Event) {
	c.mu.RLock()
	handlers := append([]Handler(nil), c.handlers[event]...)
	c.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx); err != nil {
			c.log.Error().Err(err).Str("event", event.String()).Msg("Notification handler failed")
		}
	}
}

// Connected reports whether the control websocket is up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Recording reports whether the deck is currently writing a clip.
func (c *Client) Recording() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transport == models.TransportInputRecord
}

// TransportMode returns the deck's transport state.
func (c *Client) TransportMode() models.TransportMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transport
}

// PlaybackState returns the last reported playback head state.
func (c *Client) PlaybackState() models.PlaybackState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playback
}

// HasPlayableClip reports whether a clip exists on the deck media and is
// placed on the playback timeline.
func (c *Client) HasPlayableClip(clipID int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, onDisk := c.clips[clipID]
	_, onTimeline := c.timeline[clipID]
	return onDisk && onTimeline
}

// CurrentTimeWithinClip converts the playback position into seconds from
// the start of the given clip, clamped to the clip bounds. Unknown clips
// report 0.
func (c *Client) CurrentTimeWithinClip(clipID int) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clip, onDisk := c.clips[clipID]
	entry, onTimeline := c.timeline[clipID]
	if !onDisk || !onTimeline || clip.VideoFormat.FrameRate == 0 {
		return 0
	}

	frame := c.playback.Position - entry.TimelineIn
	if frame < 0 {
		frame = 0
	}
	if frame > entry.FrameCount-1 {
		frame = entry.FrameCount - 1
	}
	return float64(entry.ClipIn+frame) / clip.VideoFormat.FrameRate
}

// ActiveWorkingSet returns the disk slot currently used for recording, or
// a zero entry when the deck has not reported one.
func (c *Client) ActiveWorkingSet() models.MediaWorkingSetEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry := c.workingSet.ActiveEntry(); entry != nil {
		return *entry
	}
	return models.MediaWorkingSetEntry{}
}

func (c *Client) setConnected(ctx context.Context, connected bool) {
	c.mu.Lock()
	changed := c.connected != connected
	c.connected = connected
	c.mu.Unlock()

	if !changed {
		return
	}
	metrics.SetHyperdeckConnected(connected)
	if connected {
		c.log.Info().Msg("Connected to recorder")
	} else {
		c.log.Warn().Msg("Disconnected from recorder")
	}
	c.notify(ctx, ConnectionStateUpdated)
}

// sameKeys reports whether two clip maps hold the same id set.
func sameKeys[V any](a, b map[int]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

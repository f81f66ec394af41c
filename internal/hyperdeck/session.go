// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package hyperdeck

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
)

const (
	reconnectDelay   = 3 * time.Second
	httpTimeout      = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	readLimit        = 1 << 20

	apiBasePath = "/control/api/v1"
	socketPath  = apiBasePath + "/event/websocket"

	subscribeRequestID = 1
)

// subscribedProperties are applied to snapshots as the deck reports them.
var subscribedProperties = []string{
	models.PropertyPlayback,
	models.PropertyTransport,
	models.PropertyTimeline,
	models.PropertyWorkingSet,
}

// Serve runs recorder sessions until the context ends. Every failure is
// transient here; the deck being unreachable or mid-reboot is a normal
// event-day condition.
func (c *Client) Serve(ctx context.Context) error {
	for {
		err := c.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.log.Warn().Err(err).Dur("retry_in", c.reconnectDelay).Msg("Recorder session ended")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
		metrics.HyperdeckReconnects.Inc()
	}
}

// String names the service in supervisor logs.
func (c *Client) String() string { return "hyperdeck-client" }

func (c *Client) runSession(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.setConnected(ctx, true)
	defer c.setConnected(ctx, false)

	if err := c.primeClips(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(models.NewSubscribeRequest(subscribeRequestID, subscribedProperties))
	if err != nil {
		return fmt.Errorf("encode subscribe request: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("send subscribe request: %w", err)
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
			return fmt.Errorf("read recorder frame: %w", err)
		}
		if err := c.handleFrame(ctx, payload); err != nil {
			return err
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, "ws://"+c.address+socketPath, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial recorder websocket (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial recorder websocket: %w", err)
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

// primeClips loads the full clip list so playability checks work for
// recordings made before this session.
func (c *Client) primeClips(ctx context.Context) error {
	body, err := c.get(ctx, "/clips")
	if err != nil {
		return err
	}
	var list models.ClipList
	if err := json.Unmarshal(body, &list); err != nil {
		return fmt.Errorf("decode clip list: %w", err)
	}

	next := make(map[int]models.Clip, len(list.Clips))
	for _, clip := range list.Clips {
		next[clip.ClipUniqueID] = clip
	}

	c.mu.Lock()
	changed := !sameKeys(c.clips, next)
	c.clips = next
	c.mu.Unlock()

	c.log.Info().Int("clips", len(next)).Msg("Primed recorder clip list")
	if changed {
		c.notify(ctx, ClipListUpdated)
	}
	return nil
}

// handleFrame decodes one websocket frame. A non-nil return ends the
// session; malformed frames are dropped instead.
func (c *Client) handleFrame(ctx context.Context, payload []byte) error {
	var msg models.HyperdeckMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.log.Warn().Err(err).Msg("Dropping undecodable recorder frame")
		return nil
	}

	switch msg.Type {
	case "response":
		var data models.HyperdeckResponseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.log.Warn().Err(err).Msg("Dropping undecodable recorder response")
			return nil
		}
		if data.Action != "subscribe" {
			c.log.Debug().Str("action", data.Action).Msg("Ignoring recorder response")
			return nil
		}
		if !data.Success {
			return fmt.Errorf("recorder rejected subscription to %v", subscribedProperties)
		}
		c.log.Info().Strs("properties", data.Properties).Msg("Subscribed to recorder properties")
		for property, value := range data.Values {
			c.applyProperty(ctx, property, value)
		}
	case "event":
		var data models.HyperdeckEventData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.log.Warn().Err(err).Msg("Dropping undecodable recorder event")
			return nil
		}
		switch data.Action {
		case "propertyValueChanged":
			c.applyProperty(ctx, data.Property, data.Value)
		case "websocketOpened":
			c.log.Debug().Msg("Recorder websocket session opened")
		default:
			c.log.Debug().Str("action", data.Action).Msg("Ignoring recorder event")
		}
	default:
		c.log.Warn().Str("type", msg.Type).Msg("Unknown recorder message type")
	}
	return nil
}

func (c *Client) applyProperty(ctx context.Context, property string, value json.RawMessage) {
	switch property {
	case models.PropertyPlayback:
		var state models.PlaybackState
		if !c.decode(property, value, &state) {
			return
		}
		c.mu.Lock()
		c.playback = state
		c.mu.Unlock()
		c.notify(ctx, PlaybackStateUpdated)
	case models.PropertyTransport:
		var info models.TransportInfo
		if !c.decode(property, value, &info) {
			return
		}
		c.mu.Lock()
		c.transport = info.Mode
		c.mu.Unlock()
		metrics.SetHyperdeckRecording(info.Mode == models.TransportInputRecord)
		c.notify(ctx, TransportModeUpdated)
	case models.PropertyTimeline:
		var timeline models.Timeline
		if !c.decode(property, value, &timeline) {
			return
		}
		next := make(map[int]models.TimelineClip, len(timeline.Clips))
		for _, clip := range timeline.Clips {
			next[clip.ClipUniqueID] = clip
		}
		c.mu.Lock()
		changed := !sameKeys(c.timeline, next)
		c.timeline = next
		c.mu.Unlock()
		if changed {
			c.notify(ctx, ClipListUpdated)
		}
	case models.PropertyWorkingSet:
		var workingSet models.MediaWorkingSet
		if !c.decode(property, value, &workingSet) {
			return
		}
		c.mu.Lock()
		c.workingSet = workingSet
		c.mu.Unlock()
		c.notify(ctx, DiskSpaceUpdated)
	default:
		c.log.Debug().Str("property", property).Msg("Ignoring unsubscribed property update")
	}
}

func (c *Client) decode(property string, value json.RawMessage, v any) bool {
	if err := json.Unmarshal(value, v); err != nil {
		c.log.Warn().Err(err).Str("property", property).Msg("Dropping undecodable property value")
		return false
	}
	return true
}

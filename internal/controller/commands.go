// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package controller

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
	"github.com/tomtom215/videoref/internal/validation"
)

// Commands arrive from operator panels via the event bus. They never get
// a reply; a rejected command surfaces only as a log line, and a
// successful one as the topic updates it causes.

// handleLoadMatch starts a historical review of a stored match.
func (c *Controller) handleLoadMatch(ctx context.Context, data json.RawMessage) error {
	var cmd models.LoadMatchCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode load_match: %w", err)
	}
	if verr := validation.ValidateStruct(&cmd); verr != nil {
		return verr
	}

	c.mu.Lock()
	if c.state != Idle && c.state != ReviewingHistoricalMatch {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("load_match not allowed while %s", state)
	}
	record, ok := c.matches[cmd.MatchID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("load_match: unknown match %q", cmd.MatchID)
	}
	c.current = record
	c.setStateLocked(ReviewingHistoricalMatch)

	warp := record.ClipID != nil && c.recorder.HasPlayableClip(*record.ClipID)
	var clipID int
	if warp {
		clipID = *record.ClipID
	}
	c.mu.Unlock()

	metrics.ReviewSessions.WithLabelValues("historical").Inc()
	c.log.Info().Str("var_id", cmd.MatchID).Msg("Historical review started")
	if warp {
		if err := c.recorder.WarpToClip(ctx, clipID, 0); err != nil {
			c.log.Warn().Err(err).Str("var_id", cmd.MatchID).Msg("Failed to warp to clip start")
		}
	}
	c.bus.Notify(models.TopicControllerStatus)
	return nil
}

// handleExitReview leaves historical review and puts the deck back on the
// live feed. The record itself was never mutated by being reviewed, so
// there is nothing to persist.
func (c *Controller) handleExitReview(ctx context.Context, data json.RawMessage) error {
	c.mu.Lock()
	if c.state != ReviewingHistoricalMatch {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("exit_review not allowed while %s", state)
	}
	c.current = nil
	c.setStateLocked(Idle)
	c.mu.Unlock()

	if err := c.recorder.ShowLiveView(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to return deck to live view")
	}
	c.bus.Notify(models.TopicControllerStatus)
	return nil
}

// handleWarpToTime seeks the review clip. Only the match under review can
// be warped, and only once its clip is ready on the deck.
func (c *Controller) handleWarpToTime(ctx context.Context, data json.RawMessage) error {
	var cmd models.WarpToTimeCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode warp_to_time: %w", err)
	}
	if verr := validation.ValidateStruct(&cmd); verr != nil {
		return verr
	}

	c.mu.Lock()
	if c.state != ReviewingCurrentMatch && c.state != ReviewingHistoricalMatch {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("warp_to_time not allowed while %s", state)
	}
	if c.current == nil || c.current.VarID != cmd.MatchID {
		c.mu.Unlock()
		return fmt.Errorf("warp_to_time: %q is not the match under review", cmd.MatchID)
	}
	if c.current.ClipID == nil || !c.recorder.HasPlayableClip(*c.current.ClipID) {
		c.mu.Unlock()
		return fmt.Errorf("warp_to_time: no playable clip for %q", cmd.MatchID)
	}
	clipID := *c.current.ClipID
	c.mu.Unlock()

	return c.recorder.WarpToClip(ctx, clipID, cmd.Time)
}

// handleAddVarReview bookmarks a moment for video review. While the match
// is still being recorded the bookmark is backdated by the configured
// reaction time, covering the lag between the incident on the field and
// the button press; in review the requested time is taken literally.
func (c *Controller) handleAddVarReview(ctx context.Context, data json.RawMessage) error {
	var cmd models.AddVarReviewCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode add_var_review: %w", err)
	}
	if verr := validation.ValidateStruct(&cmd); verr != nil {
		return verr
	}

	c.mu.Lock()
	if c.current == nil || c.current.VarID != cmd.MatchID {
		c.mu.Unlock()
		return fmt.Errorf("add_var_review: %q is not the loaded match", cmd.MatchID)
	}
	offset := cmd.Time
	if c.state == Recording {
		offset = c.currentMatchTimeLocked() - c.cfg.ReactionTime.Seconds()
		if offset < 0 {
			offset = 0
		}
	}
	c.addEventLocked(models.NewMatchEvent(models.EventVarReview, offset))
	c.mu.Unlock()

	metrics.VarReviewsRequested.Inc()
	c.bus.Notify(models.TopicMatchList)
	return nil
}

// handleUpdateEvent patches fields of a stored bookmark. Every value is
// validated before any is applied, so a half-bad command changes nothing.
// Fields outside the whitelist are logged and skipped.
func (c *Controller) handleUpdateEvent(ctx context.Context, data json.RawMessage) error {
	var cmd models.UpdateEventCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode update_event: %w", err)
	}
	if verr := validation.ValidateStruct(&cmd); verr != nil {
		return verr
	}

	patches := make([]eventPatch, 0, len(cmd.Updates))
	for field, raw := range cmd.Updates {
		patch, err := parseEventPatch(field, raw)
		if err != nil {
			return fmt.Errorf("update_event %s/%s: %w", cmd.MatchID, cmd.EventID, err)
		}
		if patch == nil {
			c.log.Warn().Str("field", field).Msg("Ignoring unknown field in event update")
			continue
		}
		patches = append(patches, patch)
	}

	c.mu.Lock()
	record, ok := c.matches[cmd.MatchID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("update_event: unknown match %q", cmd.MatchID)
	}
	ev := record.EventByID(cmd.EventID)
	if ev == nil {
		c.mu.Unlock()
		return fmt.Errorf("update_event: unknown event %q on match %q", cmd.EventID, cmd.MatchID)
	}

	changed := false
	for _, patch := range patches {
		if patch(ev) {
			changed = true
		}
	}
	if changed {
		record.SortEvents()
		c.persistLocked(record)
	}
	c.mu.Unlock()

	if changed {
		c.log.Info().Str("var_id", cmd.MatchID).Str("event_id", cmd.EventID).Msg("Match event updated")
		c.bus.Notify(models.TopicMatchList)
	}
	return nil
}

// eventPatch applies one validated field change to a bookmark and reports
// whether it changed anything.
type eventPatch func(ev *models.MatchEvent) bool

// parseEventPatch validates one update_event field and returns the change
// ready to apply. Nil with no error marks a field outside the whitelist.
func parseEventPatch(field string, raw json.RawMessage) (eventPatch, error) {
	switch field {
	case "event_type":
		var value models.MatchEventType
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("event_type: %w", err)
		}
		switch value {
		case models.EventAutoScoring, models.EventEndgameScoring, models.EventVarReview,
			models.EventMajorFoul, models.EventMinorFoul:
		default:
			return nil, fmt.Errorf("event_type: unknown value %q", value)
		}
		return func(ev *models.MatchEvent) bool {
			if ev.EventType == value {
				return false
			}
			ev.EventType = value
			return true
		}, nil

	case "time":
		var value float64
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("time: %w", err)
		}
		if value < 0 {
			return nil, fmt.Errorf("time: negative offset %v", value)
		}
		return func(ev *models.MatchEvent) bool {
			if ev.Time == value {
				return false
			}
			ev.Time = value
			return true
		}, nil

	case "alliance":
		var value *string
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("alliance: %w", err)
		}
		if value != nil && *value != models.AllianceRed && *value != models.AllianceBlue {
			return nil, fmt.Errorf("alliance: unknown value %q", *value)
		}
		return func(ev *models.MatchEvent) bool {
			if strPtrEqual(ev.Alliance, value) {
				return false
			}
			ev.Alliance = value
			return true
		}, nil

	case "team_idx":
		var value *int
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("team_idx: %w", err)
		}
		if value != nil && (*value < 0 || *value > 2) {
			return nil, fmt.Errorf("team_idx: station %d out of range", *value)
		}
		return func(ev *models.MatchEvent) bool {
			if intPtrEqual(ev.TeamIdx, value) {
				return false
			}
			ev.TeamIdx = value
			return true
		}, nil
	}
	return nil, nil
}

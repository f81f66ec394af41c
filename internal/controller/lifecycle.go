// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
)

// handleMatchStart preempts whatever was loaded: any leftover match is
// saved and unloaded, a fresh var id is allocated and the deck starts a
// new clip named after it. On a start failure the controller returns to
// Idle with no record; a match the deck never captured is not reviewable.
func (c *Controller) handleMatchStart(ctx context.Context) error {
	// Stopping the deck fires a clip list notification on this goroutine,
	// and the match_list emitter needs the controller mutex. Any leftover
	// recording is therefore stopped before the lock is taken.
	c.stopLeftoverRecording(ctx)

	load := c.arena.MatchLoad()

	c.mu.Lock()
	c.cancelDelayedStopLocked()
	c.saveAndUnloadLocked()

	varID := c.allocateVarIDLocked(load)
	record := &models.RecordedMatch{
		VarID:        varID,
		ArenaID:      load.Match.ID,
		ClipFileName: varID,
		Timestamp:    c.now(),
		Teams: map[string]models.TeamList{
			models.AllianceRed:  load.Match.RedTeams(),
			models.AllianceBlue: load.Match.BlueTeams(),
		},
	}
	c.log.Info().Str("var_id", varID).Int("arena_id", record.ArenaID).Msg("Starting recording")

	if err := c.recorder.StartRecording(ctx, varID); err != nil {
		c.setStateLocked(Idle)
		c.mu.Unlock()
		c.bus.Notify(models.TopicControllerStatus)
		c.bus.Notify(models.TopicMatchList)
		return fmt.Errorf("start recording %q: %w", varID, err)
	}
	record.RecordingTimestamp = c.now()

	c.current = record
	c.matches[varID] = record
	c.setStateLocked(Recording)
	c.persistLocked(record)
	c.mu.Unlock()

	metrics.MatchesRecorded.WithLabelValues(load.Match.Type.String()).Inc()
	c.bus.Notify(models.TopicControllerStatus)
	c.bus.Notify(models.TopicMatchList)
	return nil
}

// stopLeftoverRecording stops the deck when a previous match is somehow
// still rolling, attaching the clip to whichever record it belongs to.
// Normally the delayed stop has long fired by the time the next trigger
// arrives; this path covers commits and starts inside the padding window.
func (c *Controller) stopLeftoverRecording(ctx context.Context) {
	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		return
	}
	var varID string
	if c.current != nil {
		varID = c.current.VarID
	}
	c.mu.Unlock()

	c.log.Warn().Str("var_id", varID).Msg("Deck still rolling, stopping leftover recording")
	clipID, err := c.recorder.StopRecording(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return
	}
	c.setStateLocked(Idle)
	if err != nil {
		c.log.Error().Err(err).Str("var_id", varID).Msg("Failed to stop leftover recording")
		return
	}
	if record, ok := c.matches[varID]; ok {
		record.ClipID = &clipID
		c.persistLocked(record)
	}
}

// handleAutoPeriodEnd bookmarks the autonomous scoring moment. The
// bookmark is pushed past the period boundary by the configured delay so
// it lands where the referees actually look at the field.
func (c *Controller) handleAutoPeriodEnd(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		c.log.Debug().Msg("Not recording, ignoring auto period end")
		return nil
	}
	offset := c.currentMatchTimeLocked() + c.cfg.AutoScoringDelay.Seconds()
	c.addEventLocked(models.NewMatchEvent(models.EventAutoScoring, offset))
	c.mu.Unlock()

	c.bus.Notify(models.TopicMatchList)
	return nil
}

// handleMatchEnd bookmarks the endgame scoring moment and arms the
// delayed stop. The deck keeps rolling through the endgame delay plus the
// configured extra time so late scoring activity stays on the clip.
func (c *Controller) handleMatchEnd(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		c.log.Debug().Msg("Not recording, ignoring match end")
		return nil
	}
	offset := c.currentMatchTimeLocked() + c.cfg.EndgameScoringDelay.Seconds()
	c.addEventLocked(models.NewMatchEvent(models.EventEndgameScoring, offset))

	varID := c.current.VarID
	delay := c.cfg.EndgameScoringDelay + c.cfg.RecordingExtraTime
	c.cancelDelayedStopLocked()
	c.stopTimer = time.AfterFunc(delay, func() { c.finalizeRecording(varID) })
	c.log.Info().Str("var_id", varID).Dur("delay", delay).Msg("Match ended, delayed stop armed")
	c.mu.Unlock()

	c.bus.Notify(models.TopicMatchList)
	return nil
}

// finalizeRecording runs when the post-match padding expires: it stops
// the deck, attaches the clip and enters current-match review, seeking to
// the autonomous scoring bookmark. A commit or a new match start may have
// won the race while the timer was armed; a stale timer leaves the state
// machine alone. The timer is bound to a var id for exactly that reason.
func (c *Controller) finalizeRecording(varID string) {
	c.mu.Lock()
	if c.state != Recording || c.current == nil || c.current.VarID != varID {
		c.mu.Unlock()
		c.log.Debug().Str("var_id", varID).Msg("Delayed stop found the recording already gone")
		return
	}
	c.mu.Unlock()

	ctx := c.serveContext()
	c.log.Info().Str("var_id", varID).Msg("Post-match padding over, stopping recording")
	clipID, err := c.recorder.StopRecording(ctx)
	if err != nil {
		c.log.Error().Err(err).Str("var_id", varID).Msg("Failed to finalize recording, clip stays unattached")
	}

	c.mu.Lock()
	if record, ok := c.matches[varID]; ok && err == nil {
		record.ClipID = &clipID
		c.persistLocked(record)
	}

	warp := false
	var warpTime float64
	if c.state == Recording && c.current != nil && c.current.VarID == varID {
		c.stopTimer = nil
		c.setStateLocked(ReviewingCurrentMatch)
		metrics.ReviewSessions.WithLabelValues("current").Inc()
		if err == nil {
			warp = true
			warpTime = firstAutoScoringTime(c.current)
		}
	}
	c.mu.Unlock()

	if warp {
		if werr := c.recorder.WarpToClip(ctx, clipID, warpTime); werr != nil {
			c.log.Warn().Err(werr).Str("var_id", varID).Msg("Failed to warp to scoring bookmark")
		}
	}
	c.bus.Notify(models.TopicControllerStatus)
	c.bus.Notify(models.TopicMatchList)
}

// handleMatchCommit closes out the current match once the scorekeeper has
// committed or discarded it in the arena. A historical review in progress
// is left alone; the operator is looking at a different match entirely.
func (c *Controller) handleMatchCommit(ctx context.Context) error {
	c.mu.Lock()
	if c.state == ReviewingHistoricalMatch {
		c.mu.Unlock()
		c.log.Debug().Msg("Reviewing a different match, ignoring commit")
		return nil
	}
	c.mu.Unlock()

	// A commit inside the padding window beats the delayed stop; the deck
	// is then still rolling and must be stopped off-lock first.
	c.stopLeftoverRecording(ctx)

	c.mu.Lock()
	if c.state == ReviewingHistoricalMatch {
		c.mu.Unlock()
		return nil
	}
	c.cancelDelayedStopLocked()
	c.saveAndUnloadLocked()
	c.setStateLocked(Idle)
	c.mu.Unlock()

	if err := c.recorder.ShowLiveView(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to return deck to live view")
	}
	c.bus.Notify(models.TopicControllerStatus)
	c.bus.Notify(models.TopicMatchList)
	return nil
}

// firstAutoScoringTime returns the offset of the first autonomous scoring
// bookmark, or the clip start when the match never got one.
func firstAutoScoringTime(m *models.RecordedMatch) float64 {
	for _, ev := range m.Events {
		if ev.EventType == models.EventAutoScoring {
			return ev.Time
		}
	}
	return 0
}

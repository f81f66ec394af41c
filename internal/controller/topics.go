// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package controller

import (
	"github.com/tomtom215/videoref/internal/models"
)

// Composite topic emitters. These run on bus goroutines whenever a panel
// subscribes or a notification fans out, so they only assemble snapshots
// under the controller mutex and never talk to the deck or the arena
// beyond lock-free snapshot reads.

// statusPayload builds the controller_status topic. Realtime arena data
// stays relevant in every state except a historical review, where the
// panel is looking at a different match than the field is playing.
func (c *Controller) statusPayload() any {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := &models.ControllerStatus{
		Recording:    c.state == Recording,
		RealtimeData: c.state != ReviewingHistoricalMatch,
	}
	if c.current != nil {
		varID := c.current.VarID
		status.SelectedMatchID = &varID
	}
	return status
}

// matchListPayload builds the match_list topic: every recorded match,
// joined with the arena's committed result where one exists, plus whether
// the deck can play its clip right now.
func (c *Controller) matchListPayload() any {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := make(map[string]*models.MatchListEntry, len(c.matches))
	for varID, record := range c.matches {
		entry := &models.MatchListEntry{VarData: record}
		if result, ok := c.arena.ResultForMatch(record.ArenaID); ok {
			entry.ArenaData = result
		}
		entry.ClipAvailable = record.ClipID != nil && c.recorder.HasPlayableClip(*record.ClipID)
		list[varID] = entry
	}
	return list
}

// hyperdeckStatusPayload builds the hyperdeck_status topic. The clip time
// is reported for the loaded match's clip and zero otherwise.
func (c *Controller) hyperdeckStatusPayload() any {
	c.mu.Lock()
	defer c.mu.Unlock()

	playback := c.recorder.PlaybackState()
	workingSet := c.recorder.ActiveWorkingSet()
	status := &models.HyperdeckStatus{
		TransportMode:       string(c.recorder.TransportMode()),
		Playing:             playback.Playing(),
		RemainingRecordTime: workingSet.RemainingRecordTime,
		TotalSpace:          workingSet.TotalSpace,
		RemainingSpace:      workingSet.RemainingSpace,
	}
	if c.current != nil && c.current.ClipID != nil {
		status.ClipTime = c.recorder.CurrentTimeWithinClip(*c.current.ClipID)
	}
	return status
}

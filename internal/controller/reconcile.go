// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package controller

import (
	"context"

	"github.com/tomtom215/videoref/internal/models"
)

// handleRealtimeScore republishes the live score and, while recording,
// mirrors the arena's foul list into timeline bookmarks.
func (c *Controller) handleRealtimeScore(ctx context.Context) error {
	changed := false
	c.mu.Lock()
	if c.state == Recording && c.current != nil {
		changed = c.reconcileFoulsLocked(c.arena.RealtimeScore())
		if changed {
			// Scoring markers are future-dated, so a fresh foul bookmark
			// can land before them in the list.
			c.current.SortEvents()
			c.persistLocked(c.current)
		}
	}
	c.mu.Unlock()

	c.bus.Notify(models.TopicRealtimeScore)
	if changed {
		c.bus.Notify(models.TopicMatchList)
	}
	return nil
}

// reconcileFoulsLocked walks the fouls of both alliances and brings the
// current match's bookmarks in line. Fouls are tracked by arena foul id:
// a new id gets a bookmark at the current match time, a known id has its
// severity and team recomputed in place, since referees reclassify and
// reassign fouls after entry. A foul withdrawn from the score keeps its
// bookmark; the moment is still worth a look. Reports whether anything
// changed.
func (c *Controller) reconcileFoulsLocked(score *models.RealtimeScore) bool {
	sides := []struct {
		alliance string
		fouls    []models.Foul
	}{
		{models.AllianceRed, score.Red.Fouls},
		{models.AllianceBlue, score.Blue.Fouls},
	}

	changed := false
	offset := c.currentMatchTimeLocked()
	for _, side := range sides {
		teams := c.current.Teams[side.alliance]
		for _, foul := range side.fouls {
			if foul.FoulID == nil {
				// Older arena builds do not tag fouls; those cannot be
				// tracked across score updates.
				continue
			}

			eventType := models.EventMinorFoul
			if foul.IsMajor {
				eventType = models.EventMajorFoul
			}
			teamIdx := teamIndex(teams, foul.TeamID)

			existing := c.current.FoulEvent(*foul.FoulID)
			if existing == nil {
				ev := models.NewMatchEvent(eventType, offset)
				alliance := side.alliance
				foulID := *foul.FoulID
				ev.Alliance = &alliance
				ev.TeamIdx = teamIdx
				ev.ArenaFoulID = &foulID
				c.current.Events = append(c.current.Events, ev)
				c.log.Info().
					Str("var_id", c.current.VarID).
					Int("arena_foul_id", foulID).
					Str("event_type", string(eventType)).
					Str("alliance", alliance).
					Msg("Foul bookmarked")
				changed = true
				continue
			}

			if existing.EventType != eventType {
				existing.EventType = eventType
				changed = true
			}
			if !intPtrEqual(existing.TeamIdx, teamIdx) {
				existing.TeamIdx = teamIdx
				changed = true
			}
		}
	}
	return changed
}

// teamIndex returns the station index of a team within an alliance tuple,
// or nil when the team is not part of the alliance.
func teamIndex(teams models.TeamList, teamID int) *int {
	for i, id := range teams {
		if id == teamID {
			idx := i
			return &idx
		}
	}
	return nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

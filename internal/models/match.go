// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// MatchEventType classifies an annotation on a recorded match timeline.
type MatchEventType string

const (
	EventAutoScoring    MatchEventType = "AUTO_SCORING"
	EventEndgameScoring MatchEventType = "ENDGAME_SCORING"
	EventVarReview      MatchEventType = "VAR_REVIEW"
	EventMajorFoul      MatchEventType = "MAJOR_FOUL"
	EventMinorFoul      MatchEventType = "MINOR_FOUL"
)

// Alliance identifiers as used in match event annotations.
const (
	AllianceRed  = "red"
	AllianceBlue = "blue"
)

// MatchEvent is a single point of interest on a match recording, expressed
// as an offset in seconds from the start of the clip.
type MatchEvent struct {
	EventID     string         `json:"event_id"`
	EventType   MatchEventType `json:"event_type"`
	Time        float64        `json:"time"`
	Alliance    *string        `json:"alliance,omitempty"`
	TeamIdx     *int           `json:"team_idx,omitempty"`
	ArenaFoulID *int           `json:"arena_foul_id,omitempty"`
}

// NewMatchEvent allocates an event with a fresh unique id.
func NewMatchEvent(eventType MatchEventType, offset float64) *MatchEvent {
	return &MatchEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Time:      offset,
	}
}

// TeamList holds the three team numbers of one alliance in station order.
type TeamList [3]int

// RecordedMatch ties an arena match to the clip that was recorded for it,
// together with the timeline annotations collected while it was played.
type RecordedMatch struct {
	// VarID is the locally unique identifier of this recording. It is
	// derived from the arena match short name and stays stable even when
	// the same match is replayed.
	VarID string `json:"var_id"`

	// ArenaID is the id of the match in the arena database, used to match
	// up historical results. Replays share the arena id of the original.
	ArenaID int `json:"arena_id"`

	ClipFileName string `json:"clip_file_name"`

	// ClipID is the recorder's timeline clip id, known only once the
	// recorder has finalized the clip after recording stopped.
	ClipID *int `json:"clip_id,omitempty"`

	// Timestamp is when the recording was requested, RecordingTimestamp
	// when the recorder reported the transport actually rolling. Event
	// offsets are measured against RecordingTimestamp.
	Timestamp          time.Time `json:"timestamp"`
	RecordingTimestamp time.Time `json:"recording_timestamp"`

	Teams  map[string]TeamList `json:"teams"`
	Events []*MatchEvent       `json:"events"`
}

// VideoTime returns the clip offset in seconds for a wall-clock instant.
// Negative offsets are clamped to the clip start.
func (m *RecordedMatch) VideoTime(at time.Time) float64 {
	offset := at.Sub(m.RecordingTimestamp).Seconds()
	if offset < 0 {
		return 0
	}
	return offset
}

// EventByID returns the event with the given id, or nil.
func (m *RecordedMatch) EventByID(eventID string) *MatchEvent {
	for _, ev := range m.Events {
		if ev.EventID == eventID {
			return ev
		}
	}
	return nil
}

// FoulEvent returns the foul event bound to an arena foul id, or nil.
func (m *RecordedMatch) FoulEvent(arenaFoulID int) *MatchEvent {
	for _, ev := range m.Events {
		if ev.ArenaFoulID != nil && *ev.ArenaFoulID == arenaFoulID {
			return ev
		}
	}
	return nil
}

// SortEvents orders the event list by clip offset, stable for equal times.
func (m *RecordedMatch) SortEvents() {
	sort.SliceStable(m.Events, func(i, j int) bool {
		return m.Events[i].Time < m.Events[j].Time
	})
}

// ArenaClientState is the part of the arena session that survives restarts.
type ArenaClientState struct {
	SessionToken *string `json:"session_token,omitempty"`
}

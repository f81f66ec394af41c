// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package models

import (
	json "github.com/goccy/go-json"
)

// Operator websocket frame types.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameCommand     = "command"
	FrameEvent       = "event"
	FrameReload      = "reload"
)

// Topics published on the operator event bus.
const (
	TopicControllerStatus    = "controller_status"
	TopicMatchList           = "match_list"
	TopicMatchTiming         = "match_timing"
	TopicCurrentMatchTime    = "current_match_time"
	TopicCurrentMatchData    = "current_match_data"
	TopicRealtimeScore       = "realtime_score"
	TopicArenaConnection     = "arena_connection"
	TopicHyperdeckConnection = "hyperdeck_connection"
	TopicHyperdeckStatus     = "hyperdeck_status"
	TopicUISettings          = "ui_settings"
)

// Commands accepted from operator clients.
const (
	CommandLoadMatch    = "load_match"
	CommandExitReview   = "exit_review"
	CommandWarpToTime   = "warp_to_time"
	CommandAddVarReview = "add_var_review"
	CommandUpdateEvent  = "update_event"
)

// ClientRequest is any inbound frame from an operator client. RequestID is
// kept raw so whatever value the client sent is echoed back untouched.
type ClientRequest struct {
	Type       string          `json:"type"`
	EventTypes []string        `json:"event_types"`
	Command    string          `json:"command"`
	Data       json.RawMessage `json:"data"`
	RequestID  json.RawMessage `json:"request_id,omitempty"`
}

// SubscribeReply confirms a subscription and delivers the current snapshot
// of every topic that was just subscribed.
type SubscribeReply struct {
	Type        string          `json:"type"`
	InitialData map[string]any  `json:"initial_data"`
	RequestID   json.RawMessage `json:"request_id,omitempty"`
}

// UnsubscribeReply confirms an unsubscription. EventTypes lists the
// subscriptions the client still holds.
type UnsubscribeReply struct {
	Type       string          `json:"type"`
	EventTypes []string        `json:"unsubscribed_event_types"`
	RequestID  json.RawMessage `json:"request_id,omitempty"`
}

// EventFrame carries one topic update to a subscribed client.
type EventFrame struct {
	Type      string `json:"type"`
	EventType string `json:"event_type"`
	Data      any    `json:"data"`
}

// ReloadFrame tells clients to reload their UI.
type ReloadFrame struct {
	Type string `json:"type"`
}

// ConnectionStatus is the payload of the *_connection topics.
type ConnectionStatus struct {
	Connected bool `json:"connected"`
}

// ControllerStatus is the payload of the controller_status topic.
type ControllerStatus struct {
	SelectedMatchID *string `json:"selected_match_id"`
	Recording       bool    `json:"recording"`
	RealtimeData    bool    `json:"realtime_data"`
}

// MatchListEntry is one value in the match_list topic payload. ArenaData
// is absent when no historical arena result matches the recording.
type MatchListEntry struct {
	VarData       *RecordedMatch             `json:"var_data"`
	ArenaData     *MatchWithResultAndSummary `json:"arena_data,omitempty"`
	ClipAvailable bool                       `json:"clip_available"`
}

// HyperdeckStatus is the payload of the hyperdeck_status topic.
type HyperdeckStatus struct {
	TransportMode       string  `json:"transport_mode"`
	Playing             bool    `json:"playing"`
	ClipTime            float64 `json:"clip_time"`
	RemainingRecordTime int     `json:"remaining_record_time"`
	TotalSpace          int64   `json:"total_space"`
	RemainingSpace      int64   `json:"remaining_space"`
}

// UISettings is the payload of the ui_settings topic.
type UISettings struct {
	SwapRedBlue bool `json:"swap_red_blue"`
}

// LoadMatchCommand selects a stored match for historical review.
type LoadMatchCommand struct {
	MatchID string `json:"match_id" validate:"required"`
}

// WarpToTimeCommand moves the review clip to an offset in seconds.
type WarpToTimeCommand struct {
	MatchID string  `json:"match_id" validate:"required"`
	Time    float64 `json:"time" validate:"gte=0"`
}

// AddVarReviewCommand flags a moment for video review.
type AddVarReviewCommand struct {
	MatchID string  `json:"match_id" validate:"required"`
	Time    float64 `json:"time" validate:"gte=0"`
}

// ExitReviewCommand leaves historical review mode.
type ExitReviewCommand struct{}

// UpdateEventCommand patches fields of a stored match event. Updates stay
// raw so null and absent values can be told apart per field.
type UpdateEventCommand struct {
	MatchID string                     `json:"match_id" validate:"required"`
	EventID string                     `json:"event_id" validate:"required"`
	Updates map[string]json.RawMessage `json:"updates" validate:"required"`
}

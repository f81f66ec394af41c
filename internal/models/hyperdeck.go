// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package models

import (
	json "github.com/goccy/go-json"
)

// The HyperDeck control API speaks lowerCamel JSON over both REST and
// its event websocket.

// TransportMode is the deck's top-level transport state.
type TransportMode string

const (
	TransportInputPreview TransportMode = "InputPreview"
	TransportInputRecord  TransportMode = "InputRecord"
	TransportOutput       TransportMode = "Output"
)

// PlaybackType selects how the deck interprets playback speed.
type PlaybackType string

const (
	PlaybackPlay    PlaybackType = "Play"
	PlaybackJog     PlaybackType = "Jog"
	PlaybackShuttle PlaybackType = "Shuttle"
	PlaybackVar     PlaybackType = "Var"
)

// PlaybackState is the deck's playback head state. Position is a frame
// offset on the timeline, not within the clip.
type PlaybackState struct {
	Type       PlaybackType `json:"type"`
	Loop       bool         `json:"loop"`
	SingleClip bool         `json:"singleClip"`
	Speed      float64      `json:"speed"`
	Position   int          `json:"position"`
}

// Playing reports whether the playback head is moving.
func (s *PlaybackState) Playing() bool { return s.Speed != 0 }

// PlaceholderPlaybackState returns the state assumed before the deck has
// reported anything.
func PlaceholderPlaybackState() *PlaybackState {
	return &PlaybackState{Type: PlaybackJog, SingleClip: true, Speed: 1}
}

// TransportInfo is the value of the /transports/0 property.
type TransportInfo struct {
	Mode TransportMode `json:"mode"`
}

// CodecFormat describes how a clip is encoded on disk.
type CodecFormat struct {
	Codec     string `json:"codec"`
	Container string `json:"container"`
}

// VideoFormat describes a clip's raster and rate.
type VideoFormat struct {
	Name       string  `json:"name"`
	FrameRate  float64 `json:"frameRate"`
	Height     int     `json:"height"`
	Width      int     `json:"width"`
	Interlaced bool    `json:"interlaced"`
}

// Clip is a finalized recording on the deck's media.
type Clip struct {
	ClipUniqueID int         `json:"clipUniqueId"`
	FilePath     string      `json:"filePath"`
	FileSize     int64       `json:"fileSize"`
	CodecFormat  CodecFormat `json:"codecFormat"`
	VideoFormat  VideoFormat `json:"videoFormat"`
	FrameCount   int         `json:"frameCount"`
}

// ClipResponse wraps the /transports/0/clip answer. Clip is null while a
// recording has not been finalized yet.
type ClipResponse struct {
	Clip *Clip `json:"clip"`
}

// ClipList wraps the GET /clips answer.
type ClipList struct {
	Clips []Clip `json:"clips"`
}

// TimelineClip is one clip's placement on the deck timeline. ClipIn and
// TimelineIn are frame offsets; warp math maps between the two.
type TimelineClip struct {
	ClipUniqueID int `json:"clipUniqueId"`
	FrameCount   int `json:"frameCount"`
	ClipIn       int `json:"clipIn"`
	TimelineIn   int `json:"timelineIn"`
}

// Timeline is the value of the /timelines/0 property.
type Timeline struct {
	Clips []TimelineClip `json:"clips"`
}

// ClipForID returns the timeline entry for a clip id, or nil.
func (t *Timeline) ClipForID(clipID int) *TimelineClip {
	for i := range t.Clips {
		if t.Clips[i].ClipUniqueID == clipID {
			return &t.Clips[i]
		}
	}
	return nil
}

// MediaWorkingSetEntry describes one mounted disk slot.
type MediaWorkingSetEntry struct {
	Index               int    `json:"index"`
	ActiveDisk          bool   `json:"activeDisk"`
	Volume              string `json:"volume"`
	DeviceName          string `json:"deviceName"`
	RemainingRecordTime int    `json:"remainingRecordTime"`
	TotalSpace          int64  `json:"totalSpace"`
	RemainingSpace      int64  `json:"remainingSpace"`
	ClipCount           int    `json:"clipCount"`
}

// MediaWorkingSet is the value of the /media/workingset property. Slots
// without media are null.
type MediaWorkingSet struct {
	Size       int                     `json:"size"`
	Workingset []*MediaWorkingSetEntry `json:"workingset"`
}

// ActiveEntry returns the entry holding the active record disk, or nil.
func (w *MediaWorkingSet) ActiveEntry() *MediaWorkingSetEntry {
	for _, entry := range w.Workingset {
		if entry != nil && entry.ActiveDisk {
			return entry
		}
	}
	return nil
}

// Property paths the coordinator subscribes to on the deck websocket.
const (
	PropertyPlayback   = "/transports/0/playback"
	PropertyTransport  = "/transports/0"
	PropertyTimeline   = "/timelines/0"
	PropertyWorkingSet = "/media/workingset"
)

// HyperdeckMessage is the envelope of every frame on the deck websocket.
type HyperdeckMessage struct {
	Type string          `json:"type"`
	ID   int             `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

// HyperdeckRequestData is the body of a websocket request frame.
type HyperdeckRequestData struct {
	Action     string   `json:"action"`
	Properties []string `json:"properties"`
}

// HyperdeckRequest is a client-to-deck websocket frame.
type HyperdeckRequest struct {
	Data HyperdeckRequestData `json:"data"`
	Type string               `json:"type"`
	ID   int                  `json:"id"`
}

// NewSubscribeRequest builds a subscription request for the given
// property paths.
func NewSubscribeRequest(id int, properties []string) *HyperdeckRequest {
	return &HyperdeckRequest{
		Data: HyperdeckRequestData{Action: "subscribe", Properties: properties},
		Type: "request",
		ID:   id,
	}
}

// HyperdeckResponseData is the body of a websocket response frame. Values
// maps property paths to their current value at subscription time.
type HyperdeckResponseData struct {
	Action     string                     `json:"action"`
	Properties []string                   `json:"properties,omitempty"`
	Success    bool                       `json:"success"`
	Values     map[string]json.RawMessage `json:"values,omitempty"`
}

// HyperdeckEventData is the body of a websocket event frame.
type HyperdeckEventData struct {
	Action   string          `json:"action"`
	Property string          `json:"property"`
	Value    json.RawMessage `json:"value"`
}

// RecordRequest is the body of POST /transports/0/record.
type RecordRequest struct {
	ClipName string `json:"clipName"`
}

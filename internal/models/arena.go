// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package models

import (
	json "github.com/goccy/go-json"
)

// The arena speaks UpperCamel JSON on its websocket and REST surfaces.
// Field tags below preserve that casing so arena payloads survive a
// decode/re-encode round trip unchanged.

// MatchType mirrors the arena's match type enumeration.
type MatchType int

const (
	MatchTypeTest MatchType = iota
	MatchTypePractice
	MatchTypeQualification
	MatchTypePlayoff
)

// AllMatchTypes lists the types in the order the arena's REST API
// exposes them.
var AllMatchTypes = []MatchType{
	MatchTypeTest,
	MatchTypePractice,
	MatchTypeQualification,
	MatchTypePlayoff,
}

// String returns the lowercase name the arena uses in REST paths.
func (t MatchType) String() string {
	switch t {
	case MatchTypeTest:
		return "test"
	case MatchTypePractice:
		return "practice"
	case MatchTypeQualification:
		return "qualification"
	case MatchTypePlayoff:
		return "playoff"
	default:
		return "unknown"
	}
}

// MatchStatus mirrors the arena's match completion state.
type MatchStatus int

const (
	MatchScheduled MatchStatus = iota
	MatchHidden
	MatchRedWon
	MatchBlueWon
	MatchTie
)

// MatchState mirrors the arena's field state machine.
type MatchState int

const (
	StatePreMatch MatchState = iota
	StateStartMatch
	StateWarmupPeriod
	StateAutoPeriod
	StatePausePeriod
	StateTeleopPeriod
	StatePostMatch
	StateTimeoutActive
	StatePostTimeout
)

// Match is the arena's schedule entry for one match.
type Match struct {
	ID        int         `json:"Id"`
	Type      MatchType   `json:"Type"`
	TypeOrder int         `json:"TypeOrder"`
	LongName  string      `json:"LongName"`
	ShortName string      `json:"ShortName"`
	Red1      int         `json:"Red1"`
	Red2      int         `json:"Red2"`
	Red3      int         `json:"Red3"`
	Blue1     int         `json:"Blue1"`
	Blue2     int         `json:"Blue2"`
	Blue3     int         `json:"Blue3"`
	Status    MatchStatus `json:"Status"`
}

// RedTeams returns the red alliance team numbers in station order.
func (m *Match) RedTeams() TeamList { return TeamList{m.Red1, m.Red2, m.Red3} }

// BlueTeams returns the blue alliance team numbers in station order.
func (m *Match) BlueTeams() TeamList { return TeamList{m.Blue1, m.Blue2, m.Blue3} }

// Team is the subset of the arena team record the coordinator cares about.
type Team struct {
	ID int `json:"Id"`
}

// MatchLoad announces which match is staged on the field. Teams is keyed
// by station ("R1".."B3") and may carry nulls for empty stations.
type MatchLoad struct {
	Match    *Match           `json:"Match"`
	IsReplay bool             `json:"IsReplay"`
	Teams    map[string]*Team `json:"Teams"`
}

// PlaceholderMatchLoad returns the state assumed before the arena has
// reported anything: an all-zero test match with no teams.
func PlaceholderMatchLoad() *MatchLoad {
	return &MatchLoad{
		Match: &Match{
			Type:      MatchTypeTest,
			LongName:  "Test Match",
			ShortName: "T",
			Status:    MatchScheduled,
		},
		Teams: map[string]*Team{},
	}
}

// MatchTiming carries the period durations the arena runs matches with.
type MatchTiming struct {
	WarmupDurationSec           int `json:"WarmupDurationSec"`
	AutoDurationSec             int `json:"AutoDurationSec"`
	PauseDurationSec            int `json:"PauseDurationSec"`
	TeleopDurationSec           int `json:"TeleopDurationSec"`
	WarningRemainingDurationSec int `json:"WarningRemainingDurationSec"`
	TimeoutDurationSec          int `json:"TimeoutDurationSec"`
}

// DefaultMatchTiming returns the stock arena timing used until the arena
// reports its configured values.
func DefaultMatchTiming() *MatchTiming {
	return &MatchTiming{
		AutoDurationSec:             15,
		PauseDurationSec:            3,
		TeleopDurationSec:           135,
		WarningRemainingDurationSec: 20,
		TimeoutDurationSec:          60,
	}
}

// MatchTime is the arena's periodic state/clock tick.
type MatchTime struct {
	MatchState   MatchState `json:"MatchState"`
	MatchTimeSec int        `json:"MatchTimeSec"`
}

// PlaceholderMatchTime returns the pre-connection clock state.
func PlaceholderMatchTime() *MatchTime {
	return &MatchTime{MatchState: StatePreMatch}
}

// Reef tracks scoring elements on one alliance's reef.
type Reef struct {
	AutoBranches   [3][12]bool `json:"AutoBranches"`
	Branches       [3][12]bool `json:"Branches"`
	AutoTroughNear int         `json:"AutoTroughNear"`
	AutoTroughFar  int         `json:"AutoTroughFar"`
	TroughNear     int         `json:"TroughNear"`
	TroughFar      int         `json:"TroughFar"`
}

// Foul is a rule violation charged to one team. FoulID is the arena's
// stable identifier for the foul; older arena builds omit it, and such
// fouls cannot be tracked across score updates.
type Foul struct {
	FoulID  *int `json:"FoulId,omitempty"`
	IsMajor bool `json:"IsMajor"`
	TeamID  int  `json:"TeamId"`
	RuleID  int  `json:"RuleId"`
}

// EndgameStatus mirrors the arena's per-robot endgame result.
type EndgameStatus int

const (
	EndgameNone EndgameStatus = iota
	EndgameParked
	EndgameShallowCage
	EndgameDeepCage
)

// Score is one alliance's raw scoring state. Fouls stays nil until the
// arena has sent at least one foul update.
type Score struct {
	LeaveStatuses   [3]bool          `json:"LeaveStatuses"`
	Reef            Reef             `json:"Reef"`
	BargeAlgae      int              `json:"BargeAlgae"`
	ProcessorAlgae  int              `json:"ProcessorAlgae"`
	EndgameStatuses [3]EndgameStatus `json:"EndgameStatuses"`
	Fouls           []Foul           `json:"Fouls"`
}

// ScoreSummary is the derived point total for one alliance.
type ScoreSummary struct {
	MatchPoints int `json:"MatchPoints"`
}

// ScoreWithSummary combines the raw score with its derived summary, the
// shape the arena uses inside realtime score updates.
type ScoreWithSummary struct {
	Score
	ScoreSummary ScoreSummary `json:"ScoreSummary"`
}

// RealtimeScore is the arena's live scoring snapshot. Cards are keyed by
// team number, values "yellow" or "red".
type RealtimeScore struct {
	Red       ScoreWithSummary  `json:"Red"`
	Blue      ScoreWithSummary  `json:"Blue"`
	RedCards  map[string]string `json:"RedCards"`
	BlueCards map[string]string `json:"BlueCards"`
}

// PlaceholderRealtimeScore returns an all-zero score snapshot.
func PlaceholderRealtimeScore() *RealtimeScore {
	return &RealtimeScore{
		RedCards:  map[string]string{},
		BlueCards: map[string]string{},
	}
}

// PositionStatus reports readiness of one scoring position.
type PositionStatus struct {
	NumPanels      int  `json:"NumPanels"`
	NumPanelsReady int  `json:"NumPanelsReady"`
	Ready          bool `json:"Ready"`
}

// ScoringStatus reports readiness of the human scoring crew.
type ScoringStatus struct {
	RefereeScoreReady bool                      `json:"RefereeScoreReady"`
	PositionStatuses  map[string]PositionStatus `json:"PositionStatuses"`
}

// ArenaStatus is the arena's readiness flag for starting a match.
type ArenaStatus struct {
	CanStartMatch bool `json:"CanStartMatch"`
}

// PlaceholderArenaStatus returns the pre-connection arena status.
func PlaceholderArenaStatus() *ArenaStatus {
	return &ArenaStatus{}
}

// MatchResult is the committed outcome of one match play. Cards are keyed
// by team number.
type MatchResult struct {
	MatchID    int               `json:"MatchId"`
	PlayNumber int               `json:"PlayNumber"`
	MatchType  MatchType         `json:"MatchType"`
	RedScore   Score             `json:"RedScore"`
	BlueScore  Score             `json:"BlueScore"`
	RedCards   map[string]string `json:"RedCards"`
	BlueCards  map[string]string `json:"BlueCards"`
}

// MatchResultWithSummary extends a result with derived point totals.
type MatchResultWithSummary struct {
	MatchResult
	RedSummary  ScoreSummary `json:"RedSummary"`
	BlueSummary ScoreSummary `json:"BlueSummary"`
}

// MatchWithResultAndSummary is the arena's REST representation of a
// scheduled match. Result is null for matches that have not been played.
type MatchWithResultAndSummary struct {
	Match
	Result *MatchResultWithSummary `json:"Result"`
}

// ArenaMessage is the envelope of every frame on the arena websocket.
type ArenaMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

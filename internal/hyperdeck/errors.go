// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package hyperdeck

import (
	"errors"
	"fmt"
)

// ErrFinalizeTimeout reports that a stopped recording never produced a
// finalized clip within the configured window. The recording usually
// still exists on disk; only the clip id is unknown.
var ErrFinalizeTimeout = errors.New("hyperdeck: timed out waiting for clip to finalize")

// UnknownClipError reports a playback command for a clip id the deck has
// never announced.
type UnknownClipError struct {
	ClipID int
}

func (e *UnknownClipError) Error() string {
	return fmt.Sprintf("hyperdeck: unknown clip id %d", e.ClipID)
}

// UnexpectedStatusError reports a REST answer outside the expected range.
type UnexpectedStatusError struct {
	Endpoint string
	Code     int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("hyperdeck: unexpected status %d from %s", e.Code, e.Endpoint)
}

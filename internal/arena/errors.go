// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package arena

import (
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"
)

var (
	// ErrPasswordRequired means the arena demands a login but no admin
	// password is configured.
	ErrPasswordRequired = errors.New("arena: admin password required but not configured")

	// ErrWrongPassword means the arena rejected the configured password.
	ErrWrongPassword = errors.New("arena: wrong admin password")
)

// UnexpectedStatusError reports an arena HTTP response outside the
// protocol contract.
type UnexpectedStatusError struct {
	Endpoint string
	Code     int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("arena: unexpected status %d from %s", e.Code, e.Endpoint)
}

// fatal marks an error as unrecoverable by reconnecting; the supervisor
// shuts the whole tree down instead.
func fatal(err error) error {
	return fmt.Errorf("%w: %w", suture.ErrTerminateSupervisorTree, err)
}

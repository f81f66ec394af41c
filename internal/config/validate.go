// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package config

import (
	"fmt"

	"github.com/tomtom215/videoref/internal/validation"
)

// Validate checks field constraints and cross-field consistency.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("configuration validation failed: %w", verr)
	}

	if c.Hyperdeck.ClipFinalizeTimeout < c.Hyperdeck.ClipFinalizePollInterval {
		return fmt.Errorf("hyperdeck.clip_finalize_timeout (%s) must be at least hyperdeck.clip_finalize_poll_interval (%s)",
			c.Hyperdeck.ClipFinalizeTimeout, c.Hyperdeck.ClipFinalizePollInterval)
	}

	return nil
}

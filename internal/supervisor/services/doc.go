// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

/*
Package services adapts components with foreign lifecycles to suture.

Most long-running Videoref components (arena client, Hyperdeck client,
websocket hub, controller) implement suture.Service directly:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The one exception is net/http's Server, which blocks in ListenAndServe
and shuts down through a separate method. HTTPServerService translates
that pattern into a context-aware Serve with bounded graceful shutdown.
*/
package services

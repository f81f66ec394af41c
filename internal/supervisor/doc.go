// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

/*
Package supervisor provides process supervision for Videoref using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of all long-running services in the application. It provides
Erlang/OTP-style supervision with automatic restart, failure isolation,
and graceful shutdown.

# Overview

The supervisor tree organizes services into three layers for failure
isolation:

	RootSupervisor ("videoref")
	├── ClientsSupervisor ("clients-layer")
	│   ├── arena-client (websocket session to the arena software)
	│   └── hyperdeck-client (websocket session to the Hyperdeck recorder)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket-hub
	│   └── controller (match state machine)
	└── APISupervisor ("api-layer")
	    └── http-server

This hierarchy ensures that:
  - A flapping arena or Hyperdeck connection restarts alone
  - Client reconnects don't drop operator panel websockets
  - Each layer can restart independently

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Suture lifecycle events flow through the sutureslog adapter
  - The slog handler in internal/logging routes them into zerolog

# Usage Example

Basic setup in main.go:

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddClientService(arenaClient)
	tree.AddClientService(deckClient)
	tree.AddMessagingService(hub)
	tree.AddMessagingService(ctrl)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil {
	    log.Printf("Supervisor stopped: %v", err)
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,              // Failures before backoff
	    FailureDecay:     30.0,             // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Default values match suture's production-ready defaults.

# Fatal Errors

A service may return suture.ErrTerminateSupervisorTree to bring the
whole process down instead of being restarted. The arena client does
this when the arena rejects its credentials, since retrying a bad
password forever would only spam the arena's auth log.
*/
package supervisor

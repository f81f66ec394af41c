// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig tunes restart behavior for every layer of the tree.
// Zero values fall back to suture's defaults.
type TreeConfig struct {
	// FailureThreshold is how many failures accumulate before a
	// supervisor backs off instead of restarting immediately.
	FailureThreshold float64

	// FailureDecay is the number of seconds for accumulated failures
	// to decay.
	FailureDecay float64

	// FailureBackoff is how long a supervisor sits out once the
	// threshold is crossed.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long a service may take to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig mirrors suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// SupervisorTree is the three-layer suture hierarchy the coordinator runs
// under. Device sessions live in the clients layer, the hub and controller
// in messaging, the HTTP server in api. A flapping arena link restarts
// inside its own layer, so operator panels stay connected while the field
// link recovers.
type SupervisorTree struct {
	root      *suture.Supervisor
	clients   *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	config    TreeConfig
}

// NewSupervisorTree builds the tree. Suture lifecycle events are reported
// through sutureslog, which the slog adapter routes into the shared
// zerolog stream.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	config = config.withDefaults()

	hook := (&sutureslog.Handler{Logger: logger}).MustHook()

	// Child layers share the failure parameters and inherit the root's
	// EventHook when added.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	rootSpec := childSpec
	rootSpec.EventHook = hook

	t := &SupervisorTree{
		root:      suture.New("videoref", rootSpec),
		clients:   suture.New("clients-layer", childSpec),
		messaging: suture.New("messaging-layer", childSpec),
		api:       suture.New("api-layer", childSpec),
		config:    config,
	}
	t.root.Add(t.clients)
	t.root.Add(t.messaging)
	t.root.Add(t.api)

	return t, nil
}

// Root exposes the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor { return t.root }

// AddClientService registers a device session (arena, Hyperdeck) in the
// clients layer.
func (t *SupervisorTree) AddClientService(svc suture.Service) suture.ServiceToken {
	return t.clients.Add(svc)
}

// AddMessagingService registers the websocket hub or the controller.
func (t *SupervisorTree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService registers the HTTP server.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is canceled or a service escalates with
// suture.ErrTerminateSupervisorTree.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree on its own goroutine. The returned
// channel yields the terminal error.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that ignored shutdown, for the
// final log line on exit.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

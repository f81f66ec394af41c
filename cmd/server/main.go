// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

// Package main is the entry point for the Videoref server.
//
// Videoref sits between the arena software running a robotics competition
// and a Blackmagic Hyperdeck recorder. It records every match, annotates
// the recording timeline with scoring and foul bookmarks, and serves a
// review panel that video assistant referees use to jump straight to the
// moments that matter.
//
// # Application Architecture
//
// All long-running components run under a suture v4 supervisor tree:
//
//	RootSupervisor ("videoref")
//	├── ClientsSupervisor ("clients-layer")
//	│   ├── arena-client (websocket + HTTP session to the arena)
//	│   └── hyperdeck-client (websocket + REST session to the recorder)
//	├── MessagingSupervisor ("messaging-layer")
//	│   ├── websocket-hub (operator panel pub/sub)
//	│   └── controller (match review state machine)
//	└── APISupervisor ("api-layer")
//	    └── http-server (panel, API, websocket endpoint, metrics)
//
// Crashed components restart with backoff; a flapping field network link
// never takes down connected operator panels.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - VIDEOREF_* environment variables
//   - TOML config file (-config flag, $VIDEOREF_CONFIG, config.toml,
//     /etc/videoref/config.toml)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains connections (10s timeout), recorder and arena sessions
// close, and the store flushes to disk on every write so nothing is lost.
//
// # Example Usage
//
// Standard field network setup:
//
//	export VIDEOREF_ARENA_ADDRESS=10.0.100.5:8080
//	export VIDEOREF_HYPERDECK_ADDRESS=192.168.1.100:80
//	./videoref
//
// With a config file:
//
//	./videoref -config /etc/videoref/config.toml
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/videoref/internal/api"
	"github.com/tomtom215/videoref/internal/arena"
	"github.com/tomtom215/videoref/internal/config"
	"github.com/tomtom215/videoref/internal/controller"
	"github.com/tomtom215/videoref/internal/hyperdeck"
	"github.com/tomtom215/videoref/internal/logging"
	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
	"github.com/tomtom215/videoref/internal/store"
	"github.com/tomtom215/videoref/internal/supervisor"
	"github.com/tomtom215/videoref/internal/supervisor/services"
	ws "github.com/tomtom215/videoref/internal/websocket"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (overrides the default search)")
	flag.Parse()

	// Load configuration first to get logging settings
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("arena", cfg.Arena.Address).
		Str("hyperdeck", cfg.Hyperdeck.Address).
		Str("db_folder", cfg.DB.Folder).
		Bool("arena_compat_mode", cfg.Arena.CompatMode).
		Msg("Starting Videoref")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	st, err := store.New(cfg.DB.Folder)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open match store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Suture lifecycle events reach zerolog through the slog adapter.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	hub := ws.NewHub(models.UISettings{SwapRedBlue: cfg.UI.SwapRedBlue})
	arenaClient := arena.New(cfg.Arena, st)
	deckClient := hyperdeck.New(cfg.Hyperdeck)
	ctrl := controller.New(cfg.Var, arenaClient, deckClient, hub, st)

	router := api.NewRouter(cfg.Server, hub)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	tree.AddClientService(arenaClient)
	tree.AddClientService(deckClient)
	tree.AddMessagingService(hub)
	tree.AddMessagingService(ctrl)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	start := time.Now()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.AppUptime.Set(time.Since(start).Seconds())
			}
		}
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// A wrong arena password surfaces here as ErrTerminateSupervisorTree;
	// exiting nonzero lets a process manager show the failure instead of
	// restarting into the same rejection forever.
	exitCode := 0
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
			exitCode = 1
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
			exitCode = 1
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Videoref stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

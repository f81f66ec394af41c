// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

// Package config holds all application configuration, loaded in layers:
//
//  1. Defaults: built-in values matching a stock field network
//  2. Config file: optional TOML file (--config flag or search paths)
//  3. Environment variables: VIDEOREF_* overrides any setting
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root of all Videoref settings.
type Config struct {
	Arena     ArenaConfig     `koanf:"arena"`
	DB        DBConfig        `koanf:"db"`
	Server    ServerConfig    `koanf:"server"`
	Hyperdeck HyperdeckConfig `koanf:"hyperdeck"`
	Var       VarConfig       `koanf:"var"`
	UI        UIConfig        `koanf:"ui"`
	Logging   LoggingConfig   `koanf:"log"`
}

// ArenaConfig points the coordinator at the arena server.
type ArenaConfig struct {
	// Address is the arena's host:port. 10.0.100.5:8080 is the standard
	// field network address.
	Address string `koanf:"address" validate:"required,hostname_port"`

	// Password for the arena's admin login. Leave empty for arenas
	// running without authentication.
	Password string `koanf:"password"`

	// CompatMode uses the referee panel websocket instead of the
	// dedicated video referee endpoint, for arenas that predate it.
	CompatMode bool `koanf:"compat_mode"`
}

// DBConfig locates the on-disk state folder.
type DBConfig struct {
	Folder string `koanf:"folder" validate:"required"`
}

// ServerConfig configures the operator-facing HTTP server.
type ServerConfig struct {
	Host          string `koanf:"host" validate:"required"`
	Port          int    `koanf:"port" validate:"gte=1,lte=65535"`
	StaticDir     string `koanf:"static_dir"`
	AdminUsername string `koanf:"admin_username" validate:"required"`
	AdminPassword string `koanf:"admin_password" validate:"required"`
}

// Addr returns the host:port the HTTP server binds to.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// HyperdeckConfig points the coordinator at the video recorder.
type HyperdeckConfig struct {
	Address string `koanf:"address" validate:"required,hostname_port"`

	// ClipFinalizePollInterval is how often the recorder is polled for
	// the finalized clip after recording stops; ClipFinalizeTimeout
	// bounds the whole wait.
	ClipFinalizePollInterval time.Duration `koanf:"clip_finalize_poll_interval" validate:"gt=0"`
	ClipFinalizeTimeout      time.Duration `koanf:"clip_finalize_timeout" validate:"gt=0"`
}

// VarConfig tunes review timeline annotation.
type VarConfig struct {
	// AutoScoringDelay and EndgameScoringDelay shift the auto-generated
	// scoring markers past the period ends, giving referees time to
	// settle the field.
	AutoScoringDelay    time.Duration `koanf:"auto_scoring_delay" validate:"gte=0"`
	EndgameScoringDelay time.Duration `koanf:"endgame_scoring_delay" validate:"gte=0"`

	// RecordingExtraTime keeps the recorder rolling past the endgame
	// scoring marker.
	RecordingExtraTime time.Duration `koanf:"recording_extra_time" validate:"gte=0"`

	// ReactionTime is subtracted from live review requests to cover the
	// delay between seeing an incident and pressing the button.
	ReactionTime time.Duration `koanf:"reaction_time" validate:"gte=0"`
}

// UIConfig carries display preferences pushed to operator clients.
type UIConfig struct {
	SwapRedBlue bool `koanf:"swap_red_blue"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Arena: ArenaConfig{
			Address:    "10.0.100.5:8080",
			Password:   "",
			CompatMode: false,
		},
		DB: DBConfig{
			Folder: "var.db",
		},
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8000,
			StaticDir:     "static",
			AdminUsername: "admin",
			AdminPassword: "password",
		},
		Hyperdeck: HyperdeckConfig{
			Address:                  "localhost:8001",
			ClipFinalizePollInterval: 250 * time.Millisecond,
			ClipFinalizeTimeout:      5 * time.Second,
		},
		Var: VarConfig{
			AutoScoringDelay:    3 * time.Second,
			EndgameScoringDelay: 3 * time.Second,
			RecordingExtraTime:  2 * time.Second,
			ReactionTime:        0,
		},
		UI: UIConfig{
			SwapRedBlue: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
	}
}

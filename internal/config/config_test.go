// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Arena.Address != "10.0.100.5:8080" {
		t.Errorf("arena address = %q", cfg.Arena.Address)
	}
	if cfg.Arena.CompatMode {
		t.Error("compat mode should default to off")
	}
	if cfg.DB.Folder != "var.db" {
		t.Errorf("db folder = %q", cfg.DB.Folder)
	}
	if cfg.Server.Port != 8000 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server = %s", cfg.Server.Addr())
	}
	if cfg.Server.AdminUsername != "admin" || cfg.Server.AdminPassword != "password" {
		t.Errorf("admin credentials = %q/%q", cfg.Server.AdminUsername, cfg.Server.AdminPassword)
	}
	if cfg.Hyperdeck.Address != "localhost:8001" {
		t.Errorf("hyperdeck address = %q", cfg.Hyperdeck.Address)
	}
	if cfg.Hyperdeck.ClipFinalizePollInterval != 250*time.Millisecond {
		t.Errorf("poll interval = %s", cfg.Hyperdeck.ClipFinalizePollInterval)
	}
	if cfg.Hyperdeck.ClipFinalizeTimeout != 5*time.Second {
		t.Errorf("finalize timeout = %s", cfg.Hyperdeck.ClipFinalizeTimeout)
	}
	if cfg.Var.AutoScoringDelay != 3*time.Second || cfg.Var.EndgameScoringDelay != 3*time.Second {
		t.Errorf("scoring delays = %s/%s", cfg.Var.AutoScoringDelay, cfg.Var.EndgameScoringDelay)
	}
	if cfg.Var.RecordingExtraTime != 2*time.Second || cfg.Var.ReactionTime != 0 {
		t.Errorf("extra/reaction = %s/%s", cfg.Var.RecordingExtraTime, cfg.Var.ReactionTime)
	}
	if cfg.UI.SwapRedBlue {
		t.Error("swap_red_blue should default to off")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %q/%q", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[arena]
address = "192.168.1.10:8080"
password = "secret"
compat_mode = true

[var]
auto_scoring_delay = "1s"
reaction_time = "500ms"

[server]
port = 9000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Arena.Address != "192.168.1.10:8080" || cfg.Arena.Password != "secret" || !cfg.Arena.CompatMode {
		t.Errorf("arena = %+v", cfg.Arena)
	}
	if cfg.Var.AutoScoringDelay != time.Second {
		t.Errorf("auto_scoring_delay = %s, want 1s", cfg.Var.AutoScoringDelay)
	}
	if cfg.Var.ReactionTime != 500*time.Millisecond {
		t.Errorf("reaction_time = %s, want 500ms", cfg.Var.ReactionTime)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	// Untouched settings keep their defaults.
	if cfg.Var.EndgameScoringDelay != 3*time.Second {
		t.Errorf("endgame_scoring_delay = %s, want default", cfg.Var.EndgameScoringDelay)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("VIDEOREF_SERVER_PORT", "9100")
	t.Setenv("VIDEOREF_ARENA_COMPAT_MODE", "true")
	t.Setenv("VIDEOREF_HYPERDECK_CLIP_FINALIZE_TIMEOUT", "10s")
	t.Setenv("VIDEOREF_UI_SWAP_RED_BLUE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", cfg.Server.Port)
	}
	if !cfg.Arena.CompatMode {
		t.Error("compat mode env override not applied")
	}
	if cfg.Hyperdeck.ClipFinalizeTimeout != 10*time.Second {
		t.Errorf("finalize timeout = %s, want 10s", cfg.Hyperdeck.ClipFinalizeTimeout)
	}
	if !cfg.UI.SwapRedBlue {
		t.Error("swap_red_blue env override not applied")
	}
}

func TestUnmappedEnvVarsIgnored(t *testing.T) {
	t.Setenv("VIDEOREF_BOGUS_SETTING", "boom")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want default", cfg.Server.Port)
	}
}

func TestValidationFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Server.Port = 0 },
			want:   "Port",
		},
		{
			name:   "arena address without port",
			mutate: func(c *Config) { c.Arena.Address = "10.0.100.5" },
			want:   "Address",
		},
		{
			name:   "missing db folder",
			mutate: func(c *Config) { c.DB.Folder = "" },
			want:   "Folder",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			want:   "Level",
		},
		{
			name:   "negative reaction time",
			mutate: func(c *Config) { c.Var.ReactionTime = -time.Second },
			want:   "ReactionTime",
		},
		{
			name:   "finalize timeout below poll interval",
			mutate: func(c *Config) { c.Hyperdeck.ClipFinalizeTimeout = 100 * time.Millisecond },
			want:   "clip_finalize_timeout",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	c := ServerConfig{Host: "0.0.0.0", Port: 8000}
	if got := c.Addr(); got != "0.0.0.0:8000" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	cases := map[string]string{
		"VIDEOREF_ARENA_ADDRESS":                         "arena.address",
		"VIDEOREF_SERVER_STATIC_DIR":                     "server.static_dir",
		"VIDEOREF_HYPERDECK_CLIP_FINALIZE_POLL_INTERVAL": "hyperdeck.clip_finalize_poll_interval",
		"VIDEOREF_VAR_REACTION_TIME":                     "var.reaction_time",
		"VIDEOREF_CONFIG":                                "",
		"VIDEOREF_UNRELATED":                             "",
	}
	for in, want := range cases {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

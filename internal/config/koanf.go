// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched when no explicit
// path is given. The first existing file wins.
var DefaultConfigPaths = []string{
	"config.toml",
	"/etc/videoref/config.toml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "VIDEOREF_CONFIG"

// envPrefix selects which environment variables feed the config.
const envPrefix = "VIDEOREF_"

// Load builds the configuration from defaults, an optional TOML file and
// VIDEOREF_* environment variables, then validates it. An empty path
// triggers the default file search; a given path must exist.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := configPath
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing default config path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps VIDEOREF_* variable names (prefix stripped, lowercased)
// to config paths. The table is explicit because several keys contain
// underscores of their own.
var envMappings = map[string]string{
	"arena_address":     "arena.address",
	"arena_password":    "arena.password",
	"arena_compat_mode": "arena.compat_mode",

	"db_folder": "db.folder",

	"server_host":           "server.host",
	"server_port":           "server.port",
	"server_static_dir":     "server.static_dir",
	"server_admin_username": "server.admin_username",
	"server_admin_password": "server.admin_password",

	"hyperdeck_address":                     "hyperdeck.address",
	"hyperdeck_clip_finalize_poll_interval": "hyperdeck.clip_finalize_poll_interval",
	"hyperdeck_clip_finalize_timeout":       "hyperdeck.clip_finalize_timeout",

	"var_auto_scoring_delay":    "var.auto_scoring_delay",
	"var_endgame_scoring_delay": "var.endgame_scoring_delay",
	"var_recording_extra_time":  "var.recording_extra_time",
	"var_reaction_time":         "var.reaction_time",

	"ui_swap_red_blue": "ui.swap_red_blue",

	"log_level":  "log.level",
	"log_format": "log.format",
	"log_caller": "log.caller",
}

// envTransformFunc maps an environment variable name to its config path.
// Unmapped variables are skipped so unrelated VIDEOREF_* values cannot
// pollute the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

// Package logging is the zerolog layer shared by every Videoref component.
//
// One global logger is configured at startup and reached through
// package-level starters:
//
//	logging.Init(logging.Config{Level: "info", Format: "console"})
//	logging.Info().Str("match", "Q12").Msg("Recording started")
//
// Console format is for the terminal at the scoring table; json is for
// shipping logs off the field laptop. Components that log from many call
// sites derive a child logger once instead of tagging every event:
//
//	log := logging.With().Str("component", "arena").Logger()
//
// Log chains must end with .Msg() or .Send(), otherwise zerolog never
// emits the event.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Config selects level, format and destination for the global logger.
type Config struct {
	// Level is the minimum level to emit: trace, debug, info, warn,
	// error, fatal, panic or disabled. Empty means info.
	Level string

	// Format is "json" or "console". Empty means json.
	Format string

	// Caller adds file:line to every event.
	Caller bool

	// Timestamp adds the time field to every event.
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the production defaults: info level, json format,
// timestamps on.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

func init() {
	// Logging has to work before main() wires the real config.
	log = build(DefaultConfig())
}

// Init replaces the global logger. Called from main() once the config is
// loaded; calling it again reconfigures.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	log = build(cfg)
}

func build(cfg Config) zerolog.Logger {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out)
	if cfg.Timestamp {
		logger = logger.With().Timestamp().Logger()
	}
	if cfg.Caller {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// levelNames maps config strings to zerolog levels. "warning" is an
// accepted alias for warn.
var levelNames = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"panic":    zerolog.PanicLevel,
	"disabled": zerolog.Disabled,
}

// parseLevel resolves a level name, falling back to info for anything
// unrecognized.
func parseLevel(level string) zerolog.Level {
	if lvl, ok := levelNames[strings.ToLower(level)]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLogger swaps the global logger wholesale. Tests use this to capture
// output.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// With opens a child context on the global logger:
//
//	log := logging.With().Str("component", "hyperdeck").Logger()
func With() zerolog.Context { return Logger().With() }

// Trace through Fatal start an event at the named level on the global
// logger.

func Trace() *zerolog.Event { l := Logger(); return l.Trace() }

func Debug() *zerolog.Event { l := Logger(); return l.Debug() }

func Info() *zerolog.Event { l := Logger(); return l.Info() }

func Warn() *zerolog.Event { l := Logger(); return l.Warn() }

func Error() *zerolog.Event { l := Logger(); return l.Error() }

// Fatal logs the event, then exits the process.
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }

// Err starts an event tagged with err: error level, or info when err is
// nil.
func Err(err error) *zerolog.Event { l := Logger(); return l.Err(err) }

// NewTestLogger returns a timestamped json logger writing to w, for
// capturing output in tests.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

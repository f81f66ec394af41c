// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package api

import (
	_ "embed"
	"net/http"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/videoref/internal/logging"
)

// fallbackPage is served when the panel frontend has not been installed
// next to the binary.
//
//go:embed fallback.html
var fallbackPage []byte

// Index serves the panel single-page app, or the embedded placeholder when
// the static directory is missing.
func (rt *Router) Index(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(rt.cfg.StaticDir, "index.html")
	if _, err := os.Stat(index); err == nil {
		http.ServeFile(w, r, index)
		return
	}

	logging.Ctx(r.Context()).Debug().Str("static_dir", rt.cfg.StaticDir).Msg("No panel build found, serving fallback page")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(fallbackPage)
}

// assets serves the panel's hashed build artifacts.
func (rt *Router) assets() http.Handler {
	dir := http.Dir(filepath.Join(rt.cfg.StaticDir, "assets"))
	return http.StripPrefix("/assets/", http.FileServer(dir))
}

// Status answers the authenticated health probe. Auth already passed in
// the middleware; the username is echoed back for the caller's benefit.
func (rt *Router) Status(w http.ResponseWriter, r *http.Request) {
	user, _, _ := r.BasicAuth()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "running",
		"user":   user,
	})
}

// ReloadClients pushes a reload frame to every connected panel. Used after
// deploying a new frontend build mid-event.
func (rt *Router) ReloadClients(w http.ResponseWriter, r *http.Request) {
	logging.Ctx(r.Context()).Info().Msg("Panel reload requested")
	rt.hub.ReloadClients()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "reload requested",
	})
}

// WebSocket upgrades a panel connection and hands it to the event bus.
func (rt *Router) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	rt.hub.ServeClient(conn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

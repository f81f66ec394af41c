// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/videoref/internal/config"
	"github.com/tomtom215/videoref/internal/middleware"
)

// Hub is the slice of the event bus the gateway hands panels to.
type Hub interface {
	ServeClient(conn *websocket.Conn)
	ReloadClients()
}

// Router assembles the operator gateway's HTTP surface.
type Router struct {
	cfg      config.ServerConfig
	hub      Hub
	upgrader websocket.Upgrader
}

// NewRouter creates the gateway router.
func NewRouter(cfg config.ServerConfig, hub Hub) *Router {
	return &Router{
		cfg: cfg,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Panels connect from arbitrary field machines.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Setup builds the handler tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler())
	r.Use(requestLogger)

	// Panel frontend
	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware(middleware.Compression))
		r.Get("/", rt.Index)
		r.Handle("/assets/*", rt.assets())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter())

		r.With(
			chiMiddleware(middleware.PrometheusMetrics),
			chimiddleware.BasicAuth("videoref", map[string]string{
				rt.cfg.AdminUsername: rt.cfg.AdminPassword,
			}),
		).Get("/status", rt.Status)

		r.With(chiMiddleware(middleware.PrometheusMetrics)).
			Post("/reload_clients", rt.ReloadClients)

		r.Get("/websocket", rt.WebSocket)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

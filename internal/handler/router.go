/*
Package handler provides the HTTP handlers and routing setup for the TermIO server.

This file defines the main Router, applying middleware like logging, CORS, and
IP-based connection rate limiting before delegating requests to the WebSocket
endpoint and the small read-only API.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"termio/internal/pkg/limiter"
	"termio/internal/pkg/logx"
	"termio/internal/pkg/resp"
)

const (
	// ConnectRate limits how many WebSocket connections one IP may open per second.
	ConnectRate = 1.0

	// ConnectBurst allows short reconnect bursts from one IP.
	ConnectBurst = 5
)

// Router sets up the HTTP routing table (chi.Router) for the application:
// the /ws streaming endpoint, a health check, the connected-users API, and
// Prometheus metrics.
func Router(deps *AppDeps) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin header.
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "TermIO Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Get("/api/users", HandleUserList(deps))

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	return r
}

// HandleUserList serves the current registry snapshot: who is connected and
// since when.
func HandleUserList(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Hub.Registry().Snapshot())
	}
}

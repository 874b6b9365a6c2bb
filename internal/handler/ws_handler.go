/*
Package handler provides the HTTP handlers and routing setup for the TermIO server.

This file contains the HandleWebSocket function, which rate limits and upgrades
incoming connections and hands them to the streaming core. The join handshake
itself happens in-protocol, after the upgrade.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"termio/internal/app/stream"
	"termio/internal/pkg/errs"
	"termio/internal/pkg/limiter"
	"termio/internal/pkg/logx"
	"termio/internal/pkg/resp"
)

// HandleWebSocket creates the HTTP HandlerFunc for the /ws endpoint. It
// upgrades the connection and runs the session until it closes; per-session
// failures never propagate past this handler.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		session := stream.NewSession(deps.Hub, conn)
		session.Run()
	}
}

// Package server exposes HTTP handlers, including WebSocket upgrades and
// health checks.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocketHandler returns the handler for WebSocket upgrade requests on the
// given hub. It validates that the request uses the GET method, upgrades the
// HTTP connection, and hands the new client to the hub; the hub assigns the
// display name and launches the read/write pumps.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     hub.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", "addr", r.RemoteAddr, "err", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)

		select {
		case hub.register <- client:
		case <-hub.ctx.Done():
			_ = conn.Close()
		}
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the relay is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "kurschat relay is running!")
}

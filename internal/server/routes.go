// Package server wires HTTP handlers into a ServeMux for the relay.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the health check and the WebSocket endpoint of the given hub.
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.Handle("/ws", WebSocketHandler(hub))
	return mux
}

// Package server coordinates client registration, message broadcast, and
// connection cleanup for the relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Hub owns the set of connected clients and handles message broadcasting.
// Registration assigns each client a display name; enumeration for a
// broadcast always works on a snapshot so mutation from other sessions never
// races with an in-flight fan-out.
type Hub struct {
	cfg     Config
	origins *originPolicy
	names   NameGenerator
	handler MessageHandler

	clients    map[*Client]bool
	broadcast  chan string
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub for the given configuration. A nil names generator
// falls back to RandomName.
func NewHub(cfg *Config, names NameGenerator) *Hub {
	if cfg == nil {
		cfg = NewConfig()
	}
	if names == nil {
		names = RandomName
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:        *cfg,
		origins:    newOriginPolicy(cfg.AllowedOrigins),
		names:      names,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan string),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// SetHandler wires the message handler every inbound frame is routed through.
// Must be called before Run.
func (h *Hub) SetHandler(handler MessageHandler) {
	h.handler = handler
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Broadcast submits a message for delivery to every currently registered
// client. It returns without sending once the hub is shut down.
func (h *Hub) Broadcast(message string) {
	select {
	case h.broadcast <- message:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of currently registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) routeMessage(sender *Client, text string) {
	if h.handler == nil {
		slog.Warn("no message handler configured; dropping message", "addr", sender.addr)
		return
	}
	h.handler.Handle(sender, text)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.origins.allow(r) {
		return true
	}

	slog.Warn("blocked WebSocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
	return false
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	// Check if client is still registered and not closed
	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	// Try to send the message (channel might be closed, so we need to recover from panic)
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and message broadcasting. This method should be called in a
// separate goroutine as it runs indefinitely.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				slog.Warn("received nil client registration; skipping")
				continue
			}

			client.name = h.names()

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()
			slog.Info("client connected", "addr", client.addr, "name", client.name, "id", client.id, "clients", clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closed = true
				clientCount := len(h.clients)
				h.mutex.Unlock()
				// Close the channel after releasing the lock
				close(client.send)
				slog.Info("client disconnected", "addr", client.addr, "name", client.name, "clients", clientCount)
			} else {
				h.mutex.Unlock()
			}

		case message := <-h.broadcast:
			h.handleBroadcast(message)
		}
	}
}

// handleBroadcast delivers one message to every registered client, the sender
// included. A recipient that cannot take the message is evicted without
// affecting delivery to the rest.
func (h *Hub) handleBroadcast(message string) {
	clients := h.getClientSnapshot()
	payload := []byte(message)

	slog.Debug("broadcasting message", "recipients", len(clients))

	var failed []*Client
	for _, client := range clients {
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// removeFailedClients removes clients that failed to receive messages and closes their channels
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			slog.Warn("client removed due to full send buffer", "addr", client.addr, "name", client.name)
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock
	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	slog.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	// Close all client connections
	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					slog.Error("error closing client connection", "addr", client.addr, "err", err)
				}
			}
		}
	}

	slog.Info("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	slog.Info("initiating hub shutdown")

	// Signal shutdown
	h.cancel()

	// Wait for Run() to complete
	<-h.done

	// Wait for all client goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		slog.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

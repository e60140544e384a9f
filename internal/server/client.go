// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one connected peer. It owns the connection state, the
// buffered send channel the write pump drains, and the display name assigned
// by the hub on registration.
type Client struct {
	id             uuid.UUID
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	name           string
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a Client for the given WebSocket connection. Message size
// and rate limits come from the hub's configuration. The send channel is
// buffered so a slow peer does not stall a broadcast.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	rl := cfg.RateLimit()

	return &Client{
		id:             uuid.New(),
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		closed:         false,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(rl.Burst, rl.RefillInterval),
		rateLimit:      rl,
	}
}

// ID returns the connection's unique identity.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Name returns the display name the hub assigned on registration. It is
// empty until the client has been registered.
func (c *Client) Name() string {
	return c.name
}

// GetSendChan returns the client's send channel for reading outgoing messages.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		slog.Error("error setting initial read deadline", "addr", c.addr, "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			slog.Error("error setting read deadline in pong handler", "addr", c.addr, "err", err)
		}
		return nil
	})
}

// handleReadError logs appropriate error messages based on the error type
// and returns true if the read loop should break
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	// Check for rate limit violations
	if errors.Is(err, websocket.ErrReadLimit) {
		slog.Warn("message exceeded maximum size", "addr", c.addr, "max_bytes", c.maxMessageSize)
		return true
	}

	// Check for expected close scenarios
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		slog.Info("client disconnected", "addr", c.addr, "reason", err)
		return true
	}

	// Check for network errors
	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		slog.Info("client connection closed", "addr", c.addr, "reason", err)
		return true
	}

	// Log unexpected errors with more context
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		slog.Error("unexpected WebSocket error", "addr", c.addr, "err", err)
		return true
	}

	// Generic error case
	slog.Error("WebSocket read error", "addr", c.addr, "err", err)
	return true
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the message should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		slog.Warn("rate limit exceeded; discarding message",
			"addr", c.addr, "burst", c.rateLimit.Burst, "refill_interval", c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// readPump reads inbound frames one at a time and routes each through the
// hub's message handler, so messages from one peer are always processed in
// arrival order. Unregistration is deferred and therefore runs exactly once
// whether the peer closed normally or the transport failed.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				slog.Error("error closing connection in readPump", "addr", c.addr, "err", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
		}

		if !c.checkRateLimit() {
			continue
		}

		c.hub.routeMessage(c, string(rawMessage))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		// Only log unexpected connection close errors
		if !isExpectedCloseError(err) {
			slog.Error("error closing connection in writePump", "addr", c.addr, "err", err)
		}
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		slog.Error("error setting write deadline", "addr", c.addr, "err", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			slog.Error("error writing close message", "addr", c.addr, "err", err)
		}
	}
	return false
}

// writeTextMessage writes a text message and any queued messages
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		slog.Error("error creating writer", "addr", c.addr, "err", err)
		return false
	}

	if !c.writeMessageContent(w, message) {
		return false
	}

	if !c.writeQueuedMessages(w) {
		return false
	}

	return c.closeWriter(w)
}

// writeMessageContent writes the main message content
func (c *Client) writeMessageContent(w io.WriteCloser, message []byte) bool {
	if _, err := w.Write(message); err != nil {
		slog.Error("error writing message", "addr", c.addr, "err", err)
		return false
	}
	return true
}

// writeQueuedMessages writes any additional queued messages
func (c *Client) writeQueuedMessages(w io.WriteCloser) bool {
	n := len(c.send)
	for i := 0; i < n; i++ {
		if !c.writeQueuedMessage(w) {
			return false
		}
	}
	return true
}

// writeQueuedMessage writes a single queued message with newline separator
func (c *Client) writeQueuedMessage(w io.WriteCloser) bool {
	if _, err := w.Write([]byte{'\n'}); err != nil {
		slog.Error("error writing newline", "addr", c.addr, "err", err)
		return false
	}
	if _, err := w.Write(<-c.send); err != nil {
		slog.Error("error writing queued message", "addr", c.addr, "err", err)
		return false
	}
	return true
}

// closeWriter closes the message writer
func (c *Client) closeWriter(w io.WriteCloser) bool {
	if err := w.Close(); err != nil {
		slog.Error("error closing writer", "addr", c.addr, "err", err)
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		slog.Error("error setting write deadline for ping", "addr", c.addr, "err", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			slog.Error("error writing ping message", "addr", c.addr, "err", err)
		}
		return false
	}
	return true
}

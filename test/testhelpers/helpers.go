// Package testhelpers provides common utilities and helper functions for
// testing the relay.
//
// This package contains reusable test utilities that are shared across unit
// and integration tests: spinning up a configured relay, dialing WebSocket
// connections with a valid origin, and asserting on responses and frames.
package testhelpers

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/VadimBatsko/kurschat/internal/server"
)

// TestOrigin is the origin the default relay configuration allows; dialers in
// tests present it so the upgrade handler lets them in.
const TestOrigin = "http://localhost:8080"

// Relay bundles a running hub and its HTTP test server.
type Relay struct {
	Hub    *server.Hub
	Server *httptest.Server
}

// WSURL returns the ws:// URL of the relay's WebSocket endpoint.
func (r *Relay) WSURL() string {
	return "ws" + strings.TrimPrefix(r.Server.URL, "http") + "/ws"
}

// StartRelay starts a hub with the given message handler behind an HTTP test
// server. Both are torn down via t.Cleanup. A nil customize leaves the
// default configuration untouched; names makes registration deterministic
// when a test asserts on display names.
func StartRelay(t *testing.T, names server.NameGenerator, handler func(hub *server.Hub) server.MessageHandler, customize func(cfg *server.Config)) *Relay {
	t.Helper()

	cfg := server.NewConfig()
	if customize != nil {
		customize(cfg)
	}

	hub := server.NewHub(cfg, names)
	if handler != nil {
		hub.SetHandler(handler(hub))
	}
	go hub.Run()

	ts := httptest.NewServer(server.SetupRoutes(hub))

	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})

	return &Relay{Hub: hub, Server: ts}
}

// ConnectWebSocket creates a WebSocket connection to the specified URL,
// presenting the allowed test origin.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin creates a WebSocket connection presenting the
// given origin; an empty origin omits the header entirely.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
// It fails the test with a descriptive error message if the content types don't match.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// ReceiveText reads one text frame within the timeout and returns it.
func ReceiveText(t *testing.T, conn *websocket.Conn, timeout time.Duration) string {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return string(payload)
}

// ExpectNoMessage fails the test if a frame arrives within the timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("Expected no message, but received one")
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of message: %v", err)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

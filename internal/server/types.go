// Package server defines small shared helpers reused across client and hub
// logic.
package server

import "strings"

// MessageHandler routes one inbound text frame from a connected peer. The
// hub hands every frame a client reads to its handler, in arrival order.
type MessageHandler interface {
	Handle(sender *Client, text string)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

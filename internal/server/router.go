// Package server routes inbound peer messages: the reserved exchange keyword
// triggers a rate query, everything else is relayed as chat.
package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/VadimBatsko/kurschat/internal/exchange"
)

// Exchanger runs one rate query and returns the rendered report.
type Exchanger interface {
	Exchange(ctx context.Context, q exchange.Query) (string, error)
}

// Router inspects each inbound message. A first token matching the exchange
// keyword (case-insensitive) dispatches a rate query and broadcasts the
// report; any other message is broadcast as chat with the sender's display
// name prefixed, matching what every peer of the relay sees.
type Router struct {
	hub       *Hub
	exchanger Exchanger
}

// NewRouter creates a Router broadcasting through hub and querying rates
// through exchanger.
func NewRouter(hub *Hub, exchanger Exchanger) *Router {
	return &Router{hub: hub, exchanger: exchanger}
}

// Handle routes one inbound text frame from sender.
func (r *Router) Handle(sender *Client, text string) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || !exchange.IsCommand(tokens[0]) {
		r.hub.Broadcast(sender.Name() + ": " + text)
		return
	}

	query, err := exchange.ParseQuery(tokens[1:])
	if err != nil {
		slog.Info("malformed exchange command", "addr", sender.addr, "text", text)
		r.hub.Broadcast(exchange.MsgBadDayCount)
		return
	}

	slog.Info("exchange command", "name", sender.Name(), "days", query.Days, "currency", query.Currency)

	report, err := r.exchanger.Exchange(r.hub.ctx, query)
	if err != nil {
		slog.Warn("exchange query aborted", "err", err)
		r.hub.Broadcast(exchange.MsgUpstreamDown)
		return
	}
	r.hub.Broadcast(report)
}

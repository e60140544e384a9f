package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/VadimBatsko/kurschat/internal/exchange"
	"github.com/VadimBatsko/kurschat/internal/privatbank"
	"github.com/VadimBatsko/kurschat/internal/server"
	"github.com/VadimBatsko/kurschat/test/testhelpers"
)

// sequentialNames returns a NameGenerator handing out Peer-1, Peer-2, ...
// so tests can assert on display names. The hub calls it from a single
// goroutine, one call per registration.
func sequentialNames() server.NameGenerator {
	i := 0
	return func() string {
		i++
		return fmt.Sprintf("Peer-%d", i)
	}
}

func routerWith(exchanger server.Exchanger) func(hub *server.Hub) server.MessageHandler {
	return func(hub *server.Hub) server.MessageHandler {
		return server.NewRouter(hub, exchanger)
	}
}

// stubExchanger answers every query with a fixed report.
type stubExchanger struct {
	report string
}

func (s stubExchanger) Exchange(_ context.Context, _ exchange.Query) (string, error) {
	return s.report, nil
}

func waitForClients(t *testing.T, hub *server.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d registered clients, have %d", want, hub.ClientCount())
}

// TestChatMessageBroadcastWithSenderName verifies that a plain chat message
// reaches every connected peer, the sender included, prefixed with the
// sender's display name.
func TestChatMessageBroadcastWithSenderName(t *testing.T) {
	relay := testhelpers.StartRelay(t, sequentialNames(), routerWith(stubExchanger{}), nil)

	sender, err := testhelpers.ConnectWebSocket(relay.WSURL())
	if err != nil {
		t.Fatalf("Failed to connect sender: %v", err)
	}
	defer func() { _ = sender.Close() }()
	waitForClients(t, relay.Hub, 1)

	observer, err := testhelpers.ConnectWebSocket(relay.WSURL())
	if err != nil {
		t.Fatalf("Failed to connect observer: %v", err)
	}
	defer func() { _ = observer.Close() }()
	waitForClients(t, relay.Hub, 2)

	if err := sender.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}

	want := "Peer-1: hello"
	if got := testhelpers.ReceiveText(t, observer, 2*time.Second); got != want {
		t.Errorf("Observer received %q, want %q", got, want)
	}
	if got := testhelpers.ReceiveText(t, sender, 2*time.Second); got != want {
		t.Errorf("Sender received %q, want %q", got, want)
	}
}

// TestSuccessiveBroadcastsPreserveOrder verifies that two successive messages
// from one peer arrive at another peer in submission order.
func TestSuccessiveBroadcastsPreserveOrder(t *testing.T) {
	relay := testhelpers.StartRelay(t, sequentialNames(), routerWith(stubExchanger{}), nil)

	sender, err := testhelpers.ConnectWebSocket(relay.WSURL())
	if err != nil {
		t.Fatalf("Failed to connect sender: %v", err)
	}
	defer func() { _ = sender.Close() }()
	waitForClients(t, relay.Hub, 1)

	for i := 1; i <= 5; i++ {
		if err := sender.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("msg %d", i))); err != nil {
			t.Fatalf("Failed to send message %d: %v", i, err)
		}
	}

	// The write pump may coalesce queued frames into one newline-separated
	// frame, so collect lines until all five arrived.
	var lines []string
	for len(lines) < 5 {
		frame := testhelpers.ReceiveText(t, sender, 2*time.Second)
		lines = append(lines, strings.Split(frame, "\n")...)
	}

	for i, line := range lines {
		want := fmt.Sprintf("Peer-1: msg %d", i+1)
		if line != want {
			t.Errorf("Line %d: got %q, want %q", i, line, want)
		}
	}
}

// TestExchangeCommandSnapshot runs the full path: WebSocket frame, command
// routing, rate aggregation against a stubbed upstream API, and broadcast of
// the rendered report.
func TestExchangeCommandSnapshot(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/p24api/pubinfo" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"ccy":"USD","base_ccy":"UAH","buy":"27.50","sale":"27.90"}]`))
	}))
	defer api.Close()

	exchanger := exchange.NewService(privatbank.NewClient(privatbank.WithBaseURL(api.URL)))
	relay := testhelpers.StartRelay(t, sequentialNames(), routerWith(exchanger), nil)

	conn, err := testhelpers.ConnectWebSocket(relay.WSURL())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = conn.Close() }()
	waitForClients(t, relay.Hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("exchange")); err != nil {
		t.Fatalf("Failed to send exchange command: %v", err)
	}

	report := testhelpers.ReceiveText(t, conn, 2*time.Second)
	if !strings.Contains(report, "Купівля USD: 27.50 грн.") {
		t.Errorf("Report missing buy line: %q", report)
	}
	if !strings.Contains(report, "Продаж USD: 27.90 грн.") {
		t.Errorf("Report missing sell line: %q", report)
	}
}

// TestExchangeCommandHistoricalWithFilter covers the two-day filtered query:
// the most recent day lacks the requested currency and reports it missing,
// the older day renders its buy/sell lines.
func TestExchangeCommandHistoricalWithFilter(t *testing.T) {
	today := time.Now().Format("02.01.2006")
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == today {
			_, _ = w.Write([]byte(`{"date":"` + date + `","exchangeRate":[
				{"currency":"USD","baseCurrency":"UAH","purchaseRate":27.5,"saleRate":27.9}
			]}`))
			return
		}
		_, _ = w.Write([]byte(`{"date":"` + date + `","exchangeRate":[
			{"currency":"EUR","baseCurrency":"UAH","purchaseRate":27.0,"saleRate":27.4}
		]}`))
	}))
	defer api.Close()

	exchanger := exchange.NewService(privatbank.NewClient(privatbank.WithBaseURL(api.URL)))
	relay := testhelpers.StartRelay(t, sequentialNames(), routerWith(exchanger), nil)

	conn, err := testhelpers.ConnectWebSocket(relay.WSURL())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = conn.Close() }()
	waitForClients(t, relay.Hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("exchange 2 EUR")); err != nil {
		t.Fatalf("Failed to send exchange command: %v", err)
	}

	report := testhelpers.ReceiveText(t, conn, 2*time.Second)
	if !strings.Contains(report, "Немає валюти з назвою EUR") {
		t.Errorf("Report missing currency-not-found line: %q", report)
	}
	if !strings.Contains(report, "Купівля EUR: 27.00 грн.") {
		t.Errorf("Report missing EUR buy line: %q", report)
	}
	if !strings.Contains(report, "Продаж EUR: 27.40 грн.") {
		t.Errorf("Report missing EUR sell line: %q", report)
	}
	if strings.Contains(report, "USD") {
		t.Errorf("Filtered report should not mention USD: %q", report)
	}
}

// TestExchangeCommandCaseInsensitive verifies the keyword matches regardless
// of case.
func TestExchangeCommandCaseInsensitive(t *testing.T) {
	relay := testhelpers.StartRelay(t, sequentialNames(), routerWith(stubExchanger{report: "rates report"}), nil)

	conn, err := testhelpers.ConnectWebSocket(relay.WSURL())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = conn.Close() }()
	waitForClients(t, relay.Hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("EXCHANGE")); err != nil {
		t.Fatalf("Failed to send command: %v", err)
	}

	if got := testhelpers.ReceiveText(t, conn, 2*time.Second); got != "rates report" {
		t.Errorf("Expected rates report, got %q", got)
	}
}

// TestExchangeCommandMalformedDayCount verifies a non-numeric day token
// answers with the syntax help instead of crashing or staying silent.
func TestExchangeCommandMalformedDayCount(t *testing.T) {
	relay := testhelpers.StartRelay(t, sequentialNames(), routerWith(stubExchanger{}), nil)

	conn, err := testhelpers.ConnectWebSocket(relay.WSURL())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = conn.Close() }()
	waitForClients(t, relay.Hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("exchange abc")); err != nil {
		t.Fatalf("Failed to send command: %v", err)
	}

	if got := testhelpers.ReceiveText(t, conn, 2*time.Second); got != exchange.MsgBadDayCount {
		t.Errorf("Expected syntax help, got %q", got)
	}
}

// TestConcurrentRegistrations verifies that concurrently connecting N peers
// yields exactly N registry entries and that one disconnect removes exactly
// one entry.
func TestConcurrentRegistrations(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil, routerWith(stubExchanger{}), nil)

	const n = 10
	conns := make([]*websocket.Conn, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := testhelpers.ConnectWebSocket(relay.WSURL())
			if err != nil {
				t.Errorf("Connection %d failed: %v", i, err)
				return
			}
			mu.Lock()
			conns[i] = conn
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	t.Cleanup(func() {
		for _, conn := range conns {
			if conn != nil {
				_ = conn.Close()
			}
		}
	})

	waitForClients(t, relay.Hub, n)

	if err := testhelpers.CloseWebSocket(conns[0]); err != nil {
		t.Fatalf("Failed to close connection: %v", err)
	}
	conns[0] = nil

	waitForClients(t, relay.Hub, n-1)
}

// TestBroadcastDuringChurn verifies broadcasts stay consistent while peers
// join and leave concurrently.
func TestBroadcastDuringChurn(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil, routerWith(stubExchanger{}), nil)

	stable, err := testhelpers.ConnectWebSocket(relay.WSURL())
	if err != nil {
		t.Fatalf("Failed to connect stable peer: %v", err)
	}
	defer func() { _ = stable.Close() }()
	waitForClients(t, relay.Hub, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			conn, err := testhelpers.ConnectWebSocket(relay.WSURL())
			if err != nil {
				continue
			}
			time.Sleep(20 * time.Millisecond)
			_ = conn.Close()
		}
	}()

	for i := 0; i < 5; i++ {
		if err := stable.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("churn %d", i))); err != nil {
			t.Fatalf("Failed to send during churn: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	<-done

	// The stable peer must have received its own messages despite the churn.
	received := 0
	for received < 5 {
		frame := testhelpers.ReceiveText(t, stable, 2*time.Second)
		received += strings.Count(frame, "churn")
	}
}

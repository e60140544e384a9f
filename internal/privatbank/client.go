// Package privatbank implements a client for the PrivatBank public exchange
// rate API. Two endpoints are used: pubinfo for the current rate snapshot and
// exchange_rates for the archive of a single past day.
package privatbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/VadimBatsko/kurschat/internal/exchange"
)

// DateFormat is the date layout the archive endpoint expects.
const DateFormat = "02.01.2006"

const defaultBaseURL = "https://api.privatbank.ua"

// snapshotEntry is one record of the pubinfo payload. Rates arrive as strings.
type snapshotEntry struct {
	Currency string `json:"ccy"`
	BaseCcy  string `json:"base_ccy"`
	Buy      string `json:"buy"`
	Sale     string `json:"sale"`
}

// archiveResponse is the minimal shape of the exchange_rates payload. The
// ExchangeRate slice stays nil when the key is absent entirely, which is how
// the API signals a day without data.
type archiveResponse struct {
	Date         string         `json:"date"`
	ExchangeRate []archiveEntry `json:"exchangeRate"`
}

type archiveEntry struct {
	Currency     string  `json:"currency"`
	BaseCurrency string  `json:"baseCurrency"`
	PurchaseRate float64 `json:"purchaseRate"`
	SaleRate     float64 `json:"saleRate"`
}

// StatusError captures non-2xx upstream responses with status-aware context.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("privatbank: unexpected status %d from %s", e.StatusCode, e.URL)
}

// Client queries the PrivatBank public API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, e.g. to point at a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client with a 10 second request timeout by default.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	return c
}

// Current fetches the latest published rate snapshot.
func (c *Client) Current(ctx context.Context) ([]exchange.SnapshotRecord, error) {
	reqURL := c.baseURL + "/p24api/pubinfo?exchange&coursid=5"

	var entries []snapshotEntry
	if err := c.getJSON(ctx, reqURL, &entries); err != nil {
		return nil, err
	}

	records := make([]exchange.SnapshotRecord, 0, len(entries))
	for _, e := range entries {
		buy, err := decimal.NewFromString(e.Buy)
		if err != nil {
			continue
		}
		sale, err := decimal.NewFromString(e.Sale)
		if err != nil {
			continue
		}
		records = append(records, exchange.SnapshotRecord{
			Currency: e.Currency,
			Buy:      buy,
			Sale:     sale,
		})
	}
	return records, nil
}

// ForDate fetches the archived rates for one calendar day. A nil slice with a
// nil error means the upstream answered but carried no rate list for that day.
func (c *Client) ForDate(ctx context.Context, date time.Time) ([]exchange.DayRecord, error) {
	reqURL := c.baseURL + "/p24api/exchange_rates?date=" + url.QueryEscape(date.Format(DateFormat))

	var payload archiveResponse
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return nil, err
	}

	if payload.ExchangeRate == nil {
		return nil, nil
	}

	records := make([]exchange.DayRecord, 0, len(payload.ExchangeRate))
	for _, e := range payload.ExchangeRate {
		// The archive mixes complete and partial records; only entries
		// carrying both cash rates are usable.
		if e.Currency == "" || e.PurchaseRate == 0 || e.SaleRate == 0 {
			continue
		}
		records = append(records, exchange.DayRecord{
			Currency: e.Currency,
			Purchase: decimal.NewFromFloat(e.PurchaseRate),
			Sale:     decimal.NewFromFloat(e.SaleRate),
		})
	}
	return records, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("privatbank: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("privatbank: request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, URL: reqURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("privatbank: read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("privatbank: decode response: %w", err)
	}
	return nil
}

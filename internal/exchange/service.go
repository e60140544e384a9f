// Package exchange implements the rate aggregation core shared by the chat
// relay and the console runner: it parses exchange queries, fans out upstream
// quote requests and merges the answers into one rendered report.
package exchange

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateSource is the upstream quote collaborator. ForDate returning a nil
// slice with a nil error means the source answered but had no rate list for
// that day.
type RateSource interface {
	Current(ctx context.Context) ([]SnapshotRecord, error)
	ForDate(ctx context.Context, date time.Time) ([]DayRecord, error)
}

// AuditLogger records issued exchange commands. Implementations must be safe
// for concurrent use.
type AuditLogger interface {
	Record(days int, currency string) error
}

const (
	// DefaultMaxDays caps historical queries so a single command cannot fan
	// out into an unbounded number of upstream requests.
	DefaultMaxDays = 9

	// DateFormat is the layout dates carry in rendered reports.
	DateFormat = "02.01.2006"

	defaultRequestTimeout = 10 * time.Second
)

// Service aggregates upstream quotes into rendered reports.
type Service struct {
	source  RateSource
	audit   AuditLogger
	log     *slog.Logger
	maxDays int
	timeout time.Duration
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuditLogger attaches an audit sink for issued commands. Audit failures
// are logged and never surface in the user-visible report.
func WithAuditLogger(audit AuditLogger) ServiceOption {
	return func(s *Service) {
		s.audit = audit
	}
}

// WithMaxDays overrides the historical day-count guard.
func WithMaxDays(maxDays int) ServiceOption {
	return func(s *Service) {
		if maxDays > 0 {
			s.maxDays = maxDays
		}
	}
}

// WithRequestTimeout bounds each individual upstream request. A date whose
// request exceeds the timeout degrades to its no-data line instead of
// stalling the whole report.
func WithRequestTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source; tests pin it for stable dates.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service over the given quote source.
func NewService(source RateSource, opts ...ServiceOption) *Service {
	s := &Service{
		source:  source,
		log:     slog.Default(),
		maxDays: DefaultMaxDays,
		timeout: defaultRequestTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exchange runs one query and returns the rendered report. Upstream trouble
// never surfaces as an error: the snapshot mode answers with an apology text
// and the historical mode degrades per date. The returned error is reserved
// for a context that is already done before any request is issued.
//
// Snapshot mode deliberately ignores the currency filter; the historical mode
// applies it. The asymmetry matches the observed behavior of the service this
// one replaces and has been kept as is.
func (s *Service) Exchange(ctx context.Context, q Query) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if q.Days > s.maxDays {
		return MaxDaysMessage(s.maxDays), nil
	}

	s.recordAudit(q)

	if q.Days == 0 {
		return s.snapshot(ctx), nil
	}
	return s.history(ctx, q), nil
}

func (s *Service) recordAudit(q Query) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(q.Days, q.Currency); err != nil {
		s.log.Warn("audit log write failed", "err", err)
	}
}

func (s *Service) snapshot(ctx context.Context) string {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.source.Current(reqCtx)
	if err != nil {
		s.log.Warn("snapshot rate request failed", "err", err)
		return MsgUpstreamDown
	}
	return renderSnapshot(records)
}

// history issues one request per trailing day, all at once, and gathers the
// answers into slots indexed by date offset so the report order never depends
// on completion order.
func (s *Service) history(ctx context.Context, q Query) string {
	today := s.now()
	reports := make([]DateReport, q.Days)

	var wg sync.WaitGroup
	for i := 0; i < q.Days; i++ {
		date := today.AddDate(0, 0, -i)
		reports[i].Date = date.Format(DateFormat)

		wg.Add(1)
		go func(slot *DateReport, date time.Time) {
			defer wg.Done()

			reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			records, err := s.source.ForDate(reqCtx, date)
			if err != nil {
				s.log.Warn("archive rate request failed", "date", slot.Date, "err", err)
				slot.NoData = true
				return
			}
			if records == nil {
				slot.NoData = true
				return
			}
			slot.Records = records
		}(&reports[i], date)
	}
	wg.Wait()

	return renderHistory(reports, q.Currency)
}

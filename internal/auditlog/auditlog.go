// Package auditlog appends one line per issued exchange command to a plain
// text file. Writes are best-effort: callers treat a failed write as a
// logged warning, never as a failed command.
package auditlog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Logger appends audit lines to a single file. Safe for concurrent use.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New creates a Logger writing to path. The file is created on first write.
func New(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

// Record appends one audit line for an exchange command. An empty currency
// filter is recorded as "-".
func (l *Logger) Record(days int, currency string) error {
	if currency == "" {
		currency = "-"
	}
	line := fmt.Sprintf("[%s] Виконано команду exchange | Днів: %d | Валюта: %s\n",
		l.now().Format(timeLayout), days, currency)

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("auditlog: open %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("auditlog: write %s: %w", l.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("auditlog: sync %s: %w", l.path, err)
	}
	return nil
}

package exchange

import (
	"errors"
	"strconv"
	"strings"
)

// Keyword is the reserved first token that routes a message to the rate
// aggregator instead of the chat broadcast.
const Keyword = "exchange"

// ErrBadDayCount reports a day-count token that is not a non-negative integer.
var ErrBadDayCount = errors.New("exchange: day count must be a non-negative integer")

// Query describes one rate request: how many trailing days to report
// (0 means the current snapshot) and an optional currency code filter.
type Query struct {
	Days     int
	Currency string
}

// IsCommand reports whether token is the exchange keyword, case-insensitively.
func IsCommand(token string) bool {
	return strings.EqualFold(token, Keyword)
}

// ParseQuery builds a Query from the tokens following the keyword. A missing
// day token means the current snapshot; a missing currency token means no
// filter.
func ParseQuery(args []string) (Query, error) {
	var q Query
	if len(args) >= 1 {
		days, err := strconv.Atoi(args[0])
		if err != nil || days < 0 {
			return Query{}, ErrBadDayCount
		}
		q.Days = days
	}
	if len(args) >= 2 {
		q.Currency = args[1]
	}
	return q, nil
}

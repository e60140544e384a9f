package exchange

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// User-facing report texts. The relay talks to its peers in Ukrainian.
const (
	// MsgUpstreamDown is answered when the snapshot endpoint cannot be reached.
	MsgUpstreamDown = "Не вийшло в мене взнати курс. Приват не відповідає :)"
	// MsgBadDayCount explains the command syntax after a malformed day token.
	MsgBadDayCount = "Не зрозумів кількість днів. Використовуйте: exchange <кількість днів(за бажанням)> <валюта(за бажанням)>"
)

// MaxDaysMessage is the refusal answered when a query asks for more trailing
// days than the configured guard allows.
func MaxDaysMessage(maxDays int) string {
	return fmt.Sprintf("Вибачте я, як Дорі з Немо - запамятовую не більше %d днів 0_о", maxDays+1)
}

// SnapshotRecord is one currency's quote from the current-rates snapshot.
type SnapshotRecord struct {
	Currency string
	Buy      decimal.Decimal
	Sale     decimal.Decimal
}

// DayRecord is one currency's quote from a single archived day.
type DayRecord struct {
	Currency string
	Purchase decimal.Decimal
	Sale     decimal.Decimal
}

// DateReport is the per-date unit of a historical report. NoData marks a day
// the upstream had no usable rate list for.
type DateReport struct {
	Date    string
	Records []DayRecord
	NoData  bool
}

func renderSnapshot(records []SnapshotRecord) string {
	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "Купівля %s: %s грн.\nПродаж %s: %s грн.\n\n",
			rec.Currency, rec.Buy.StringFixed(2), rec.Currency, rec.Sale.StringFixed(2))
	}
	return b.String()
}

// renderHistory joins per-date sections in request order. The currency filter,
// when set, narrows each day to the matching record and falls back to an
// explicit not-found line when the day's list has no match.
func renderHistory(reports []DateReport, currency string) string {
	var b strings.Builder
	for _, report := range reports {
		if report.NoData {
			fmt.Fprintf(&b, "Нема даних за %s\n\n", report.Date)
			continue
		}

		b.WriteString(strings.Repeat("-", 30))
		fmt.Fprintf(&b, "\n\nКурс валют на %s\n\n", report.Date)

		matched := false
		for _, rec := range report.Records {
			if currency != "" && rec.Currency != currency {
				continue
			}
			fmt.Fprintf(&b, "Купівля %s: %s грн.\nПродаж %s: %s грн.\n\n",
				rec.Currency, rec.Purchase.StringFixed(2), rec.Currency, rec.Sale.StringFixed(2))
			matched = true
		}

		if currency != "" && !matched {
			fmt.Fprintf(&b, "Немає валюти з назвою %s\n", currency)
		}
	}
	return b.String()
}

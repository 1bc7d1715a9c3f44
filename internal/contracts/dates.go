package contracts

import (
	"fmt"
	"time"
)

// DateLayout is the wire/date-key format used everywhere (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// TradeDate truncates t to a UTC calendar date
func TradeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseTradeDate parses YYYY-MM-DD into a UTC calendar date
func ParseTradeDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate formats a date key
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns whole calendar days from a to b (b after a → positive)
func DaysBetween(a, b time.Time) int {
	return int(TradeDate(b).Sub(TradeDate(a)).Hours() / 24)
}

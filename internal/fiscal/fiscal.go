// Package fiscal computes the renewal fiscal-year window from a configurable
// year-end month-day.
package fiscal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFiscalConfig reports an unparseable fiscal year-end setting.
var ErrInvalidFiscalConfig = errors.New("invalid_fiscal_config")

// Window is one renewal cycle: the displayed label and the deadline instant.
type Window struct {
	Label    string
	Deadline time.Time
}

// CurrentWindow resolves the fiscal window for now given a "MM-DD" year end.
// The deadline is the end of that calendar day, so payments made on the
// deadline date itself are still on time. A Feb 29 year end clamps to Feb 28
// in non-leap years.
func CurrentWindow(now time.Time, yearEnd string) (Window, error) {
	month, day, err := parseMonthDay(yearEnd)
	if err != nil {
		return Window{}, err
	}

	year := now.Year()
	deadline := endOfDay(clampedDate(year, month, day, now.Location()))

	label := fmt.Sprintf("%d-%d", year-1, year)
	if now.After(deadline) {
		label = fmt.Sprintf("%d-%d", year, year+1)
	}

	return Window{Label: label, Deadline: deadline}, nil
}

func parseMonthDay(s string) (time.Month, int, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not MM-DD", ErrInvalidFiscalConfig, s)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("%w: bad month in %q", ErrInvalidFiscalConfig, s)
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil || d < 1 || d > 31 {
		return 0, 0, fmt.Errorf("%w: bad day in %q", ErrInvalidFiscalConfig, s)
	}
	// Reject days that can never exist for the month (Feb 30, Apr 31, ...).
	// Feb 29 is allowed and clamped per year.
	if d > daysInMonth(2024, time.Month(m)) {
		return 0, 0, fmt.Errorf("%w: day %d out of range for month %d", ErrInvalidFiscalConfig, d, m)
	}
	return time.Month(m), d, nil
}

func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if max := daysInMonth(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

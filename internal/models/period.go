package models

import (
	"fmt"
	"strings"
	"time"
)

// Supported lookback periods for price history requests.
var validPeriods = map[string]bool{
	"5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true,
	"ytd": true, "max": true,
}

// Supported bar intervals. Intraday bars are not served.
var validIntervals = map[string]bool{
	"1d": true, "1wk": true, "1mo": true,
}

// ParsePeriod normalises and validates a period string. Empty means "1y".
func ParsePeriod(period string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "" {
		return "1y", nil
	}
	if !validPeriods[p] {
		return "", fmt.Errorf("unsupported period %q", period)
	}
	return p, nil
}

// ValidateInterval normalises and validates an interval string. Empty means "1d".
func ValidateInterval(interval string) (string, error) {
	i := strings.ToLower(strings.TrimSpace(interval))
	if i == "" {
		return "1d", nil
	}
	if !validIntervals[i] {
		return "", fmt.Errorf("unsupported interval %q", interval)
	}
	return i, nil
}

// LookbackStart returns the first date covered by a period ending at now.
// "max" returns the zero time.
func LookbackStart(period string, now time.Time) time.Time {
	switch period {
	case "5d":
		return now.AddDate(0, 0, -7) // five trading days span a calendar week
	case "1mo":
		return now.AddDate(0, -1, 0)
	case "3mo":
		return now.AddDate(0, -3, 0)
	case "6mo":
		return now.AddDate(0, -6, 0)
	case "2y":
		return now.AddDate(-2, 0, 0)
	case "5y":
		return now.AddDate(-5, 0, 0)
	case "10y":
		return now.AddDate(-10, 0, 0)
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	case "max":
		return time.Time{}
	default:
		return now.AddDate(-1, 0, 0)
	}
}

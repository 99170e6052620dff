package models

import "strings"

// CandlesFor estimates how many bars of the given interval cover a period such as "3mo" or "1d".
// Providers that take an outputsize instead of a range use it.
func CandlesFor(period string, interval string) int {
	days := periodDays(period)
	candlesPerDay := 0

	switch interval {
	case "1m", "1min":
		candlesPerDay = 24 * 60
	case "5m", "5min":
		candlesPerDay = 24 * 12
	case "15m", "15min":
		candlesPerDay = 24 * 4
	case "30m", "30min":
		candlesPerDay = 24 * 2
	case "1h":
		candlesPerDay = 24
	case "4h":
		candlesPerDay = 6
	case "1d", "1day":
		candlesPerDay = 1
	case "1wk", "1week":
		candlesPerDay = 1
		days = days / 7
		if days < 1 {
			days = 1
		}
	}

	// Buffer for gaps and weekends
	n := int(float64(candlesPerDay) * float64(days) * 1.1)
	if n < 1 {
		n = 1
	}
	return n
}

func periodDays(period string) int {
	switch strings.ToLower(period) {
	case "1d":
		return 1
	case "5d":
		return 5
	case "1mo":
		return 31
	case "3mo":
		return 92
	case "6mo":
		return 183
	case "1y":
		return 365
	case "2y":
		return 730
	default:
		return 1
	}
}

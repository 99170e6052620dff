package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrMissingField is returned when a provider row lacks one of open/high/low/close.
	ErrMissingField = errors.New("missing price field")
	// ErrInvalidPrice is returned for non-finite or non-positive prices.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidRange is returned when high/low do not envelope open and close.
	ErrInvalidRange = errors.New("high/low do not envelope open/close")
	// ErrDuplicateBar is returned when two bars share a timestamp.
	ErrDuplicateBar = errors.New("duplicate bar timestamp")
)

// PriceBar represents a single OHLC bar
type PriceBar struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// ParseBar validates raw provider values and builds a PriceBar.
// A nil pointer means the provider returned null for that column.
func ParseBar(ts time.Time, open, high, low, close *float64) (PriceBar, error) {
	if open == nil || high == nil || low == nil || close == nil {
		return PriceBar{}, ErrMissingField
	}
	for _, v := range []float64{*open, *high, *low, *close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return PriceBar{}, fmt.Errorf("%w: %v", ErrInvalidPrice, v)
		}
	}
	if *high < *low || *high < math.Max(*open, *close) || *low > math.Min(*open, *close) {
		return PriceBar{}, fmt.Errorf("%w: o=%v h=%v l=%v c=%v", ErrInvalidRange, *open, *high, *low, *close)
	}
	return PriceBar{Time: ts, Open: *open, High: *high, Low: *low, Close: *close}, nil
}

// PriceSeries is an ordered run of bars for one symbol and interval.
// Timestamps are strictly increasing.
type PriceSeries struct {
	Symbol   string
	Interval string
	Bars     []PriceBar
}

// NewSeries sorts bars chronologically and rejects duplicate timestamps.
func NewSeries(symbol, interval string, bars []PriceBar) (*PriceSeries, error) {
	sorted := make([]PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	for i := 1; i < len(sorted); i++ {
		if !sorted[i].Time.After(sorted[i-1].Time) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBar, sorted[i].Time.Format(time.RFC3339))
		}
	}

	return &PriceSeries{Symbol: symbol, Interval: interval, Bars: sorted}, nil
}

// Len returns the number of bars; safe on a nil series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar.
func (s *PriceSeries) Last() (PriceBar, bool) {
	if s.Len() == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Tail returns the trailing n bars (or all of them when fewer exist).
func (s *PriceSeries) Tail(n int) []PriceBar {
	if s.Len() <= n {
		return s.Bars
	}
	return s.Bars[len(s.Bars)-n:]
}

// Closes extracts the close column.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i := range closes {
		closes[i] = s.Bars[i].Close
	}
	return closes
}

// Times extracts the timestamp column.
func (s *PriceSeries) Times() []time.Time {
	times := make([]time.Time, s.Len())
	for i := range times {
		times[i] = s.Bars[i].Time
	}
	return times
}

// Trend classifies price direction from moving averages
type Trend int

const (
	TrendUnknown Trend = iota
	TrendStrongUp
	TrendUp
	TrendSideways
	TrendDown
	TrendStrongDown
)

// Label returns the caption shown to users
func (t Trend) Label() string {
	switch t {
	case TrendStrongUp:
		return "📈 Strong uptrend"
	case TrendUp:
		return "↗️ Uptrend"
	case TrendSideways:
		return "➡️ Sideways"
	case TrendDown:
		return "↘️ Downtrend"
	case TrendStrongDown:
		return "📉 Strong downtrend"
	default:
		return "❓ Not enough data"
	}
}

func (t Trend) String() string {
	switch t {
	case TrendStrongUp:
		return "STRONG_UP"
	case TrendUp:
		return "UP"
	case TrendSideways:
		return "SIDEWAYS"
	case TrendDown:
		return "DOWN"
	case TrendStrongDown:
		return "STRONG_DOWN"
	default:
		return "UNKNOWN"
	}
}

func (t Trend) IsBullish() bool { return t == TrendUp || t == TrendStrongUp }
func (t Trend) IsBearish() bool { return t == TrendDown || t == TrendStrongDown }

// Volatility is the ATR bucket
type Volatility int

const (
	VolatilityLow Volatility = iota
	VolatilityMedium
	VolatilityHigh
)

func (v Volatility) Label() string {
	switch v {
	case VolatilityHigh:
		return "🔴 High"
	case VolatilityMedium:
		return "🟡 Medium"
	default:
		return "🟢 Low"
	}
}

func (v Volatility) String() string {
	switch v {
	case VolatilityHigh:
		return "HIGH"
	case VolatilityMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// SummaryStats holds range statistics over the trailing daily bars
type SummaryStats struct {
	AvgDailyRangePips float64 `json:"avg_daily_range"`
	MaxDailyRangePips float64 `json:"max_daily_range"`
	VolatilityPercent float64 `json:"volatility_percent"`
}

// AnalysisResult is the outcome of one pair analysis. It is built once and never modified.
type AnalysisResult struct {
	Pair           string        `json:"pair"`
	CurrentPrice   float64       `json:"current_price"`
	DailyATR       float64       `json:"daily_atr"` // pips
	Trend          Trend         `json:"trend"`
	Volatility     Volatility    `json:"volatility"`
	Recommendation string        `json:"recommendation"`
	Timestamp      time.Time     `json:"timestamp"`
	IsDemo         bool          `json:"is_demo"`
	Stats          *SummaryStats `json:"stats,omitempty"`
}

// TimestampLayout is the user-facing HH:MM DD.MM.YYYY format
const TimestampLayout = "15:04 02.01.2006"

// FormattedTime renders Timestamp for messages
func (r AnalysisResult) FormattedTime() string {
	return r.Timestamp.Format(TimestampLayout)
}

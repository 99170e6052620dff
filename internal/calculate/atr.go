package calculate

import (
	"math"

	"github.com/Alias1177/fxpulse/models"
)

// DefaultATRPeriod is the classic 14-bar window
const DefaultATRPeriod = 14

// ATRLimits holds the per-pair pip factor and plausibility band.
type ATRLimits struct {
	PipFactor float64
	Min       float64
	Max       float64
	Fallback  float64
}

// ATRLimitsFor extracts limits from a pair's constants
func ATRLimitsFor(p models.Pair) ATRLimits {
	p = p.WithDefaults()
	return ATRLimits{PipFactor: p.PipFactor, Min: p.ATRMin, Max: p.ATRMax, Fallback: p.ATRFallback}
}

// TrueRanges computes the true range of every bar that has a predecessor.
func TrueRanges(bars []models.PriceBar) []float64 {
	if len(bars) < 2 {
		return nil
	}

	trueRanges := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		// True Range is the greatest of:
		// 1. Current High - Current Low
		// 2. Abs(Current High - Previous Close)
		// 3. Abs(Current Low - Previous Close)
		highLow := bars[i].High - bars[i].Low
		highPrevClose := math.Abs(bars[i].High - bars[i-1].Close)
		lowPrevClose := math.Abs(bars[i].Low - bars[i-1].Close)

		trueRanges = append(trueRanges, math.Max(highLow, math.Max(highPrevClose, lowPrevClose)))
	}
	return trueRanges
}

// AverageTrueRange is the mean of the trailing period true ranges in price units.
// ok is false when the window cannot be filled.
func AverageTrueRange(bars []models.PriceBar, period int) (atr float64, ok bool) {
	if period < 1 {
		return 0, false
	}
	trueRanges := TrueRanges(bars)
	if len(trueRanges) < period {
		return 0, false
	}
	return calculateAverage(trueRanges[len(trueRanges)-period:]), true
}

// ComputeATR returns the daily ATR in pips rounded to one decimal.
// Short series and values outside the plausibility band yield the fallback constant.
func ComputeATR(series *models.PriceSeries, period int, lim ATRLimits) float64 {
	if series.Len() < period {
		return lim.Fallback
	}

	atr, ok := AverageTrueRange(series.Bars, period)
	if !ok {
		return lim.Fallback
	}

	pips := Round(atr*lim.PipFactor, 1)
	if math.IsNaN(pips) || pips < lim.Min || pips > lim.Max {
		return lim.Fallback
	}
	return pips
}

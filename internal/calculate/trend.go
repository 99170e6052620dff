package calculate

import (
	"github.com/Alias1177/fxpulse/models"
)

const (
	MinTrendBars = 20
	FastEMASpan  = 20
	SlowEMASpan  = 50
)

// TrendDeviations returns price vs EMA20 and EMA20 vs EMA50, both in percent.
func TrendDeviations(closes []float64) (priceVsFast, fastVsSlow float64) {
	price := closes[len(closes)-1]
	fast := lastEWMA(closes, FastEMASpan)
	slow := lastEWMA(closes, SlowEMASpan)

	priceVsFast = (price - fast) / fast * 100
	fastVsSlow = (fast - slow) / slow * 100
	return priceVsFast, fastVsSlow
}

// ClassifyTrend derives the trend from EMA20/EMA50 deviations of the close.
func ClassifyTrend(series *models.PriceSeries) models.Trend {
	if series.Len() < MinTrendBars {
		return models.TrendUnknown
	}

	d1, d2 := TrendDeviations(series.Closes())

	switch {
	case d1 > 0.5 && d2 > 0.2:
		return models.TrendStrongUp
	case d1 > 0.1:
		return models.TrendUp
	case d1 < -0.5 && d2 < -0.2:
		return models.TrendStrongDown
	case d1 < -0.1:
		return models.TrendDown
	default:
		return models.TrendSideways
	}
}

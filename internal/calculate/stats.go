package calculate

import (
	"math"

	"github.com/Alias1177/fxpulse/models"
)

const (
	StatsWindow  = 30
	MinStatsBars = 5
)

// SummaryStats computes range and return-volatility statistics over the trailing 30 bars.
// It returns nil when fewer than 5 bars are available.
func SummaryStats(series *models.PriceSeries, pipFactor float64) *models.SummaryStats {
	if series.Len() < MinStatsBars {
		return nil
	}

	recent := series.Tail(StatsWindow)

	ranges := make([]float64, len(recent))
	for i, b := range recent {
		ranges[i] = (b.High - b.Low) * pipFactor
	}

	returns := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		prev := recent[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, (recent[i].Close-prev)/prev)
	}

	volatility := calculateSampleStdDev(returns) * 100
	if math.IsNaN(volatility) {
		volatility = 0
	}

	return &models.SummaryStats{
		AvgDailyRangePips: Round(calculateAverage(ranges), 1),
		MaxDailyRangePips: Round(calculateMax(ranges), 1),
		VolatilityPercent: Round(volatility, 2),
	}
}

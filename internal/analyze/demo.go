package analyze

import (
	"github.com/Alias1177/fxpulse/internal/calculate"
	"github.com/Alias1177/fxpulse/models"
)

// DemoRecommendation is shown instead of trading advice on synthetic results
const DemoRecommendation = "These are demo figures. Live market data is temporarily unavailable."

const (
	demoJitter = 0.005
	demoATRMin = 70.0
	demoATRMax = 110.0
)

var (
	demoTrends       = []models.Trend{models.TrendUp, models.TrendDown, models.TrendSideways}
	demoVolatilities = []models.Volatility{models.VolatilityLow, models.VolatilityMedium, models.VolatilityHigh}
)

// DemoFallback builds a plausible synthetic result around the pair's baseline price.
func (e *Engine) DemoFallback(name string) models.AnalysisResult {
	return e.demoResult(e.pairs.Resolve(name))
}

func (e *Engine) demoResult(pair models.Pair) models.AnalysisResult {
	e.randMu.Lock()
	jitter := (e.rand.Float64()*2 - 1) * demoJitter
	atr := demoATRMin + e.rand.Float64()*(demoATRMax-demoATRMin)
	trend := demoTrends[e.rand.IntN(len(demoTrends))]
	volatility := demoVolatilities[e.rand.IntN(len(demoVolatilities))]
	e.randMu.Unlock()

	return models.AnalysisResult{
		Pair:           pair.Name,
		CurrentPrice:   calculate.Round(pair.DemoBasePrice+jitter, 5),
		DailyATR:       calculate.Round(atr, 1),
		Trend:          trend,
		Volatility:     volatility,
		Recommendation: DemoRecommendation,
		Timestamp:      e.now(),
		IsDemo:         true,
	}
}

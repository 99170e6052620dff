package calculate

import "github.com/Alias1177/fxpulse/models"

// ClassifyVolatility buckets a daily ATR in pips
func ClassifyVolatility(atrPips float64) models.Volatility {
	if atrPips > 100 {
		return models.VolatilityHigh
	} else if atrPips > 70 {
		return models.VolatilityMedium
	}
	return models.VolatilityLow
}

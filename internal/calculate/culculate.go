package calculate

import (
	"fmt"
	"strings"

	"github.com/Alias1177/fxpulse/models"
)

// MinStopLossPips is the floor for any suggested stop
const MinStopLossPips = 20

// StopLossPips sizes the stop as a share of daily ATR; wider share for wilder markets.
func StopLossPips(atrPips float64) int {
	atrMultiplier := 0.25
	if atrPips > 100 {
		atrMultiplier = 0.4
	} else if atrPips > 70 {
		atrMultiplier = 0.3
	}

	stop := int(Round(atrPips*atrMultiplier, 0))
	if stop < MinStopLossPips {
		stop = MinStopLossPips
	}
	return stop
}

// Recommend builds the trading advice text for a trend/volatility combination.
func Recommend(trend models.Trend, volatility models.Volatility, atrPips float64) string {
	var recommendations []string

	switch {
	case trend.IsBullish():
		recommendations = append(recommendations, "Consider buying")
	case trend.IsBearish():
		recommendations = append(recommendations, "Consider selling")
	default:
		recommendations = append(recommendations, "Trade within the range")
	}

	switch volatility {
	case models.VolatilityHigh:
		recommendations = append(recommendations, "Use wide stop-losses", "Good for swing trading")
	case models.VolatilityLow:
		recommendations = append(recommendations, "Suitable for scalping", "Use tight stop-losses")
	}

	recommendations = append(recommendations, fmt.Sprintf("Recommended stop-loss: %d pips", StopLossPips(atrPips)))

	return strings.Join(recommendations, ". ")
}

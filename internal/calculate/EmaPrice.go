package calculate

// EWMA returns the span-adjusted exponentially weighted mean at every position.
// Each output divides the decayed sum of prices by the decayed sum of weights, so
// early values are not biased toward zero and no SMA seed is needed.
func EWMA(prices []float64, span int) []float64 {
	out := make([]float64, len(prices))
	if span < 1 {
		copy(out, prices)
		return out
	}

	// Multiplier for weighting the EMA
	multiplier := 2.0 / float64(span+1)
	decay := 1 - multiplier

	var num, den float64
	for i, p := range prices {
		num = p + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}

	return out
}

// lastEWMA returns only the final EWMA value
func lastEWMA(prices []float64, span int) float64 {
	if len(prices) == 0 {
		return 0
	}
	series := EWMA(prices, span)
	return series[len(series)-1]
}

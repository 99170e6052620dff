package calculate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/fxpulse/models"
)

var defaultLimits = ATRLimits{PipFactor: 10000, Min: 20, Max: 300, Fallback: 85}

func generateTestSeries(t *testing.T, n int, generator func(int) models.PriceBar) *models.PriceSeries {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := 0; i < n; i++ {
		bars[i] = generator(i)
		bars[i].Time = start.AddDate(0, 0, i)
	}
	series, err := models.NewSeries("TEST=X", "1d", bars)
	require.NoError(t, err)
	return series
}

// flatBar returns a bar centred on price with the given high-low spread
func flatBar(price, spread float64) models.PriceBar {
	return models.PriceBar{Open: price, High: price + spread/2, Low: price - spread/2, Close: price}
}

func TestComputeATR(t *testing.T) {
	tests := []struct {
		name     string
		bars     int
		spread   float64
		expected float64
	}{
		{name: "constant 80 pip range", bars: 30, spread: 0.0080, expected: 80.0},
		{name: "constant 150 pip range", bars: 30, spread: 0.0150, expected: 150.0},
		{name: "too few bars", bars: 10, spread: 0.0080, expected: 85.0},
		{name: "exactly one window of bars", bars: 14, spread: 0.0080, expected: 85.0},
		{name: "implausibly quiet", bars: 30, spread: 0.0005, expected: 85.0},
		{name: "implausibly wild", bars: 30, spread: 0.0500, expected: 85.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := generateTestSeries(t, tt.bars, func(i int) models.PriceBar {
				return flatBar(1.2650, tt.spread)
			})
			assert.InDelta(t, tt.expected, ComputeATR(series, DefaultATRPeriod, defaultLimits), 1e-9)
		})
	}
}

func TestComputeATR_UsesPreviousClose(t *testing.T) {
	// Gap bars: range is 10 pips but each bar opens 60 pips away from the previous close.
	series := generateTestSeries(t, 20, func(i int) models.PriceBar {
		price := 1.2000
		if i%2 == 1 {
			price = 1.2060
		}
		return flatBar(price, 0.0010)
	})

	// gap to the previous close plus half the bar range: 0.0060 + 0.0005
	assert.InDelta(t, 65.0, ComputeATR(series, DefaultATRPeriod, defaultLimits), 1e-9)
}

func TestComputeATR_AlwaysInBandOrFallback(t *testing.T) {
	for n := DefaultATRPeriod; n < 60; n++ {
		series := generateTestSeries(t, n, func(i int) models.PriceBar {
			return flatBar(1.1+float64(i%7)*0.003, 0.0005+float64(i%5)*0.004)
		})
		atr := ComputeATR(series, DefaultATRPeriod, defaultLimits)
		if atr != defaultLimits.Fallback {
			assert.GreaterOrEqual(t, atr, defaultLimits.Min)
			assert.LessOrEqual(t, atr, defaultLimits.Max)
		}
	}
}

func TestEWMA(t *testing.T) {
	prices := []float64{1, 2, 3}
	got := EWMA(prices, 3) // alpha = 0.5

	require.Len(t, got, 3)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	// (2 + 0.5*1) / (1 + 0.5)
	assert.InDelta(t, 2.5/1.5, got[1], 1e-12)
	// (3 + 0.5*2 + 0.25*1) / (1 + 0.5 + 0.25)
	assert.InDelta(t, 4.25/1.75, got[2], 1e-12)
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name     string
		bars     int
		close    func(i int) float64
		expected []models.Trend
	}{
		{
			name:     "not enough data",
			bars:     19,
			close:    func(i int) float64 { return 1.1 + float64(i)*0.01 },
			expected: []models.Trend{models.TrendUnknown},
		},
		{
			name:     "steady rise",
			bars:     60,
			close:    func(i int) float64 { return 1.1 + float64(i)*0.002 },
			expected: []models.Trend{models.TrendUp, models.TrendStrongUp},
		},
		{
			name:     "steady fall",
			bars:     60,
			close:    func(i int) float64 { return 1.3 - float64(i)*0.002 },
			expected: []models.Trend{models.TrendDown, models.TrendStrongDown},
		},
		{
			name:     "flat",
			bars:     60,
			close:    func(i int) float64 { return 1.2 },
			expected: []models.Trend{models.TrendSideways},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := generateTestSeries(t, tt.bars, func(i int) models.PriceBar {
				return flatBar(tt.close(i), 0.001)
			})
			assert.Contains(t, tt.expected, ClassifyTrend(series))
		})
	}
}

func TestClassifyTrend_MonotoneSeries(t *testing.T) {
	for n := 50; n <= 90; n += 10 {
		rising := generateTestSeries(t, n, func(i int) models.PriceBar {
			return flatBar(0.6+float64(i)*0.001, 0.0005)
		})
		assert.True(t, ClassifyTrend(rising).IsBullish(), "rising series of %d bars", n)

		falling := generateTestSeries(t, n, func(i int) models.PriceBar {
			return flatBar(0.7-float64(i)*0.001, 0.0005)
		})
		assert.True(t, ClassifyTrend(falling).IsBearish(), "falling series of %d bars", n)
	}
}

func TestClassifyVolatility(t *testing.T) {
	assert.Equal(t, models.VolatilityHigh, ClassifyVolatility(150))
	assert.Equal(t, models.VolatilityMedium, ClassifyVolatility(85))
	assert.Equal(t, models.VolatilityLow, ClassifyVolatility(50))
	assert.Equal(t, models.VolatilityMedium, ClassifyVolatility(100))
	assert.Equal(t, models.VolatilityLow, ClassifyVolatility(70))
}

func TestStopLossPips(t *testing.T) {
	tests := []struct {
		atr      float64
		expected int
	}{
		{atr: 0, expected: 20},
		{atr: -50, expected: 20},
		{atr: 50, expected: 20},
		{atr: 85, expected: 26},  // 25.5 rounds half away from zero
		{atr: 150, expected: 60}, // 0.4
		{atr: 100, expected: 30}, // 0.3 band is exclusive above 100
		{atr: 1000, expected: 400},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, StopLossPips(tt.atr), "atr=%v", tt.atr)
		assert.GreaterOrEqual(t, StopLossPips(tt.atr), MinStopLossPips)
	}
}

func TestRecommend(t *testing.T) {
	got := Recommend(models.TrendStrongUp, models.VolatilityHigh, 150)
	assert.Equal(t, "Consider buying. Use wide stop-losses. Good for swing trading. Recommended stop-loss: 60 pips", got)

	got = Recommend(models.TrendDown, models.VolatilityLow, 40)
	assert.Equal(t, "Consider selling. Suitable for scalping. Use tight stop-losses. Recommended stop-loss: 20 pips", got)

	got = Recommend(models.TrendSideways, models.VolatilityMedium, 85)
	assert.Equal(t, "Trade within the range. Recommended stop-loss: 26 pips", got)

	got = Recommend(models.TrendUnknown, models.VolatilityMedium, 0)
	assert.Contains(t, got, "Trade within the range")
	assert.Contains(t, got, "20 pips")
}

func TestSummaryStats(t *testing.T) {
	t.Run("too few bars", func(t *testing.T) {
		series := generateTestSeries(t, 4, func(i int) models.PriceBar { return flatBar(1.1, 0.001) })
		assert.Nil(t, SummaryStats(series, 10000))
	})

	t.Run("ranges and return volatility", func(t *testing.T) {
		closes := []float64{1.00, 1.01, 1.00, 1.01, 1.00}
		spreads := []float64{0.0050, 0.0070, 0.0060, 0.0080, 0.0040}
		series := generateTestSeries(t, len(closes), func(i int) models.PriceBar {
			return flatBar(closes[i], spreads[i])
		})

		stats := SummaryStats(series, 10000)
		require.NotNil(t, stats)
		assert.InDelta(t, 60.0, stats.AvgDailyRangePips, 1e-9)
		assert.InDelta(t, 80.0, stats.MaxDailyRangePips, 1e-9)

		returns := []float64{0.01, -0.01 / 1.01, 0.01, -0.01 / 1.01}
		want := Round(calculateSampleStdDev(returns)*100, 2)
		assert.InDelta(t, want, stats.VolatilityPercent, 1e-9)
		assert.False(t, math.IsNaN(stats.VolatilityPercent))
	})

	t.Run("only trailing window counts", func(t *testing.T) {
		series := generateTestSeries(t, 40, func(i int) models.PriceBar {
			if i < 10 {
				return flatBar(1.1, 0.0500)
			}
			return flatBar(1.1, 0.0010)
		})
		stats := SummaryStats(series, 10000)
		require.NotNil(t, stats)
		assert.InDelta(t, 10.0, stats.MaxDailyRangePips, 1e-9)
		assert.InDelta(t, 0.0, stats.VolatilityPercent, 1e-9)
	})
}

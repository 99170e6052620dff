package analyze

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/fxpulse/internal/calculate"
	"github.com/Alias1177/fxpulse/internal/metrics"
	"github.com/Alias1177/fxpulse/models"
)

// Options tunes the engine; zero values select the defaults below.
type Options struct {
	ATRPeriod       int
	DailyPeriod     string // "3mo"
	DailyInterval   string // "1d"
	CurrentPeriod   string // "1d"
	CurrentInterval string // "1h"
	Rand            *rand.Rand
	Clock           func() time.Time
	Metrics         *metrics.Metrics
}

// Engine runs the indicator pipeline for one pair at a time
type Engine struct {
	pairs   *models.PairSet
	fetcher models.BarFetcher
	opts    Options
	metrics *metrics.Metrics
	logger  zerolog.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewEngine creates an engine over the given pair set and data provider
func NewEngine(pairs *models.PairSet, fetcher models.BarFetcher, opts Options) *Engine {
	if opts.ATRPeriod <= 0 {
		opts.ATRPeriod = calculate.DefaultATRPeriod
	}
	if opts.DailyPeriod == "" {
		opts.DailyPeriod = "3mo"
	}
	if opts.DailyInterval == "" {
		opts.DailyInterval = "1d"
	}
	if opts.CurrentPeriod == "" {
		opts.CurrentPeriod = "1d"
	}
	if opts.CurrentInterval == "" {
		opts.CurrentInterval = "1h"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	r := opts.Rand
	if r == nil {
		seed := uint64(time.Now().UnixNano())
		r = rand.New(rand.NewPCG(seed, seed>>1))
	}

	return &Engine{
		pairs:   pairs,
		fetcher: fetcher,
		opts:    opts,
		metrics: opts.Metrics,
		logger:  log.With().Str("component", "analyzer").Logger(),
		rand:    r,
	}
}

func (e *Engine) now() time.Time { return e.opts.Clock() }

// Analyze fetches the daily and intraday series for a pair and computes the result.
// It never fails: any problem yields a demo outcome carrying the cause.
func (e *Engine) Analyze(ctx context.Context, name string) (out Outcome) {
	pair := e.pairs.Resolve(name)
	logger := e.logger.With().Str("pair", pair.Name).Logger()

	defer func() {
		if r := recover(); r != nil {
			out = e.demo(pair, fmt.Errorf("%w: panic: %v", ErrComputation, r))
		}
		if out.IsDemo() {
			logger.Warn().Err(out.Cause).Msg("Using demo data")
		} else {
			logger.Info().
				Float64("price", out.Result.CurrentPrice).
				Float64("atr", out.Result.DailyATR).
				Str("trend", out.Result.Trend.String()).
				Msg("Analysis complete")
		}
		e.metrics.ObserveAnalysis(pair.Name, out.Source.String())
	}()

	symbol := pair.Symbol(e.fetcher.Name())

	daily, err := e.fetch(ctx, symbol, e.opts.DailyPeriod, e.opts.DailyInterval)
	if err != nil {
		return e.demo(pair, fmt.Errorf("daily series: %w", err))
	}
	current, err := e.fetch(ctx, symbol, e.opts.CurrentPeriod, e.opts.CurrentInterval)
	if err != nil {
		return e.demo(pair, fmt.Errorf("current series: %w", err))
	}

	return e.Evaluate(pair, daily, current)
}

func (e *Engine) fetch(ctx context.Context, symbol, period, interval string) (*models.PriceSeries, error) {
	started := time.Now()
	series, err := e.fetcher.Fetch(ctx, symbol, period, interval)
	e.metrics.ObserveFetch(e.fetcher.Name(), started, err)
	if err != nil {
		return nil, classify(err)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: empty %s series for %s", ErrDataUnavailable, interval, symbol)
	}
	return series, nil
}

// Evaluate computes a result from already fetched series. The current price is the last
// close of current; every indicator comes from daily.
func (e *Engine) Evaluate(pair models.Pair, daily, current *models.PriceSeries) Outcome {
	pair = pair.WithDefaults()

	last, ok := current.Last()
	if !ok || daily.Len() == 0 {
		return e.demo(pair, fmt.Errorf("%w: empty series", ErrDataUnavailable))
	}

	result, err := e.compute(pair, daily, last.Close)
	if err != nil {
		return e.demo(pair, err)
	}
	return Outcome{Source: SourceReal, Result: result, Daily: daily}
}

func (e *Engine) compute(pair models.Pair, daily *models.PriceSeries, price float64) (res models.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrComputation, r)
		}
	}()

	atr := calculate.ComputeATR(daily, e.opts.ATRPeriod, calculate.ATRLimitsFor(pair))
	if !finite(price) || !finite(atr) {
		return res, fmt.Errorf("%w: price=%v atr=%v", ErrComputation, price, atr)
	}

	trend := calculate.ClassifyTrend(daily)
	volatility := calculate.ClassifyVolatility(atr)

	return models.AnalysisResult{
		Pair:           pair.Name,
		CurrentPrice:   price,
		DailyATR:       atr,
		Trend:          trend,
		Volatility:     volatility,
		Recommendation: calculate.Recommend(trend, volatility, atr),
		Timestamp:      e.now(),
		Stats:          calculate.SummaryStats(daily, pair.PipFactor),
	}, nil
}

func (e *Engine) demo(pair models.Pair, cause error) Outcome {
	if cause == nil {
		cause = errors.New("unknown failure")
	}
	return Outcome{Source: SourceDemo, Result: e.demoResult(pair.WithDefaults()), Cause: cause}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

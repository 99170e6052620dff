package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/fxpulse/internal/analyze"
	"github.com/Alias1177/fxpulse/internal/api/twelvedata"
	"github.com/Alias1177/fxpulse/internal/api/yahoo"
	"github.com/Alias1177/fxpulse/internal/bot"
	"github.com/Alias1177/fxpulse/internal/chart"
	"github.com/Alias1177/fxpulse/internal/config"
	"github.com/Alias1177/fxpulse/internal/metrics"
	"github.com/Alias1177/fxpulse/internal/scheduler"
	"github.com/Alias1177/fxpulse/models"
)

const (
	defaultFailurePause = 15 * time.Second
	authMaxElapsed      = 2 * time.Minute
	shutdownTimeout     = 5 * time.Second
)

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupLogging("info")

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		pause := defaultFailurePause
		if cfg != nil && cfg.StartupFailurePause > 0 {
			pause = cfg.StartupFailurePauseDuration()
		}
		startupFailure(err, "Invalid configuration", pause)
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().Msg("Starting forex pulse bot")
	printConfig(cfg)

	pairs, err := config.LoadPairs(cfg.PairsFile)
	if err != nil {
		startupFailure(err, "Failed to load pairs", cfg.StartupFailurePauseDuration())
	}

	// 3. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)
	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, registry)
		metricsServer.Start()
	}

	// 4. Analysis engine
	engine := analyze.NewEngine(pairs, newFetcher(cfg), analyze.Options{
		ATRPeriod: cfg.ATRPeriod,
		Metrics:   m,
	})

	if cfg.SelfTest {
		runSelfTest(ctx, engine, pairs)
	}

	// 5. Telegram
	api, err := connectBot(ctx, cfg)
	if err != nil {
		startupFailure(err, "Failed to initialize Telegram bot", cfg.StartupFailurePauseDuration())
	}
	log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	var renderer bot.Renderer
	if cfg.ChartEnabled {
		renderer = chart.NewRenderer(cfg.ChartDir)
	}
	dispatcher := bot.NewDispatcher(api, engine, renderer, pairs, bot.Options{
		BatchSize:  cfg.BatchSize,
		BatchDelay: cfg.BatchDelay(),
		Metrics:    m,
	})

	// 6. Optional digest
	var digest *scheduler.Scheduler
	if cfg.DigestCron != "" {
		digest = scheduler.NewScheduler(ctx, dispatcher, cfg.DigestChatID)
		if err := digest.Register(cfg.DigestCron); err != nil {
			startupFailure(err, "Invalid digest schedule", cfg.StartupFailurePauseDuration())
		}
		digest.Start()
	}

	// 7. Update loop
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	log.Info().Msg("Bot is ready")
	for running := true; running; {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutdown signal received")
			running = false
		case update, ok := <-updates:
			if !ok {
				running = false
				break
			}
			dispatcher.HandleUpdate(ctx, update)
		}
	}

	api.StopReceivingUpdates()
	if digest != nil {
		digest.Stop()
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown")
		}
	}
	log.Info().Msg("Stopped")
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	// Set log level from config
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config) {
	log.Info().
		Str("DataProvider", cfg.DataProvider).
		Int("ATRPeriod", cfg.ATRPeriod).
		Int("BatchSize", cfg.BatchSize).
		Dur("BatchDelay", cfg.BatchDelay()).
		Bool("ChartEnabled", cfg.ChartEnabled).
		Str("ChartDir", cfg.ChartDir).
		Str("MetricsAddr", cfg.MetricsAddr).
		Str("DigestCron", cfg.DigestCron).
		Str("PairsFile", cfg.PairsFile).
		Msg("Configuration loaded")
}

func newFetcher(cfg *config.Config) models.BarFetcher {
	if cfg.DataProvider == "twelvedata" {
		return twelvedata.NewClient(twelvedata.ClientOptions{
			APIKey:         cfg.TwelveAPIKey,
			RequestTimeout: cfg.RequestTimeoutDuration(),
			RequestsPerSec: cfg.RequestsPerSec,
		})
	}
	return yahoo.NewClient(yahoo.ClientOptions{
		RequestTimeout: cfg.RequestTimeoutDuration(),
		RequestsPerSec: cfg.RequestsPerSec,
	})
}

// runSelfTest analyzes the first pair once so a broken provider shows up in the logs at startup
func runSelfTest(ctx context.Context, engine *analyze.Engine, pairs *models.PairSet) {
	names := pairs.Names()
	if len(names) == 0 {
		return
	}
	out := engine.Analyze(ctx, names[0])
	if out.IsDemo() {
		log.Warn().Err(out.Cause).Str("pair", names[0]).Msg("Self-test: analyzer is using demo data")
		return
	}
	log.Info().
		Str("pair", out.Result.Pair).
		Float64("price", out.Result.CurrentPrice).
		Msg("Self-test: analyzer works")
}

// connectBot authorizes with Telegram, retrying transient failures with exponential backoff
func connectBot(ctx context.Context, cfg *config.Config) (*tgbotapi.BotAPI, error) {
	var api *tgbotapi.BotAPI

	operation := func() error {
		var err error
		api, err = tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err == nil {
			return nil
		}
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) && tgErr.Code == 401 {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Msg("Telegram authorization failed, retrying")
		return err
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = authMaxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug
	return api, nil
}

// startupFailure logs a fatal startup error, pauses, and exits
func startupFailure(err error, msg string, pause time.Duration) {
	log.Error().Err(err).Dur("pause", pause).Msg(msg)
	time.Sleep(pause)
	os.Exit(1)
}

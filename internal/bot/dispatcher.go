package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Alias1177/fxpulse/internal/analyze"
	"github.com/Alias1177/fxpulse/internal/metrics"
	"github.com/Alias1177/fxpulse/models"
)

// ErrDelivery wraps failures to hand a message or photo to Telegram
var ErrDelivery = errors.New("message delivery failed")

// captionLimit is Telegram's maximum photo caption length
const captionLimit = 1024

// Sender is the subset of *tgbotapi.BotAPI the dispatcher needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Analyzer produces an outcome for a pair; implemented by *analyze.Engine
type Analyzer interface {
	Analyze(ctx context.Context, pair string) analyze.Outcome
}

// Renderer draws a chart file for a series; implemented by *chart.Renderer
type Renderer interface {
	Render(series *models.PriceSeries, title string) (string, error)
}

// Options holds dispatcher settings
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	Metrics    *metrics.Metrics
}

// BatchResult is the per-pair outcome of an all-pairs run
type BatchResult struct {
	Pair    string
	Outcome analyze.Outcome
	Err     error
}

// Dispatcher routes chat messages to the analyzer and relays formatted output
type Dispatcher struct {
	sender   Sender
	analyzer Analyzer
	renderer Renderer
	pairs    *models.PairSet
	opts     Options
	pacer    *rate.Limiter
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher. renderer may be nil to disable charts.
func NewDispatcher(sender Sender, analyzer Analyzer, renderer Renderer, pairs *models.PairSet, opts Options) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = 2 * time.Second
	}

	return &Dispatcher{
		sender:   sender,
		analyzer: analyzer,
		renderer: renderer,
		pairs:    pairs,
		opts:     opts,
		pacer:    rate.NewLimiter(rate.Every(opts.BatchDelay), 1),
		metrics:  opts.Metrics,
		logger:   log.With().Str("component", "bot").Logger(),
	}
}

// HandleUpdate processes one update from the Telegram update channel
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	d.HandleMessage(ctx, update.Message)
}

// HandleMessage routes commands, keyboard captions and free-text pair names
func (d *Dispatcher) HandleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	logger := d.logger.With().Int64("chat_id", chatID).Logger()

	if message.IsCommand() {
		command := strings.ToLower(message.Command())
		logger.Debug().Str("command", command).Msg("Command received")

		switch command {
		case "start", "help":
			d.sendWelcome(chatID)
		case "all":
			d.RunBatch(ctx, chatID, "command")
		default:
			if pair, ok := d.pairs.Lookup(command); ok {
				d.SendAnalysis(ctx, chatID, pair.Name, false)
				return
			}
			d.reply(chatID, unknownCommandText, false)
		}
		return
	}

	text := strings.TrimSpace(message.Text)
	switch text {
	case AllPairsButton:
		d.RunBatch(ctx, chatID, "command")
		return
	case HelpButton:
		d.sendWelcome(chatID)
		return
	}

	if pair, ok := d.pairs.ByButton(text); ok {
		d.SendAnalysis(ctx, chatID, pair.Name, false)
		return
	}
	if pair, ok := d.pairs.Lookup(text); ok {
		d.SendAnalysis(ctx, chatID, pair.Name, false)
		return
	}

	d.reply(chatID, notUnderstoodText, true)
}

// SendAnalysis analyzes pair and delivers the result, as a chart photo when one can be drawn.
// Silent mode skips the typing indicator and the reply keyboard.
func (d *Dispatcher) SendAnalysis(ctx context.Context, chatID int64, pair string, silent bool) (analyze.Outcome, error) {
	logger := d.logger.With().Int64("chat_id", chatID).Str("pair", pair).Logger()

	if !silent {
		if _, err := d.sender.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
			logger.Debug().Err(err).Msg("Chat action failed")
		}
	}

	logger.Info().Msg("Analysis requested")
	out := d.analyzer.Analyze(ctx, pair)
	text := FormatAnalysis(out.Result)

	chartPath := d.renderChart(out, logger)

	var err error
	if chartPath != "" {
		err = d.sendPhoto(chatID, chartPath, text, silent)
		if rmErr := os.Remove(chartPath); rmErr != nil {
			logger.Warn().Err(rmErr).Str("path", chartPath).Msg("Failed to remove chart file")
		}
	} else {
		err = d.sendText(chatID, text, silent)
	}

	if err != nil {
		logger.Error().Err(err).Msg("Failed to deliver analysis")
		d.reply(chatID, deliveryErrorText(pair), true)
		return out, fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	logger.Info().Str("source", out.Source.String()).Bool("chart", chartPath != "").Msg("Analysis sent")
	return out, nil
}

func (d *Dispatcher) renderChart(out analyze.Outcome, logger zerolog.Logger) string {
	if d.renderer == nil || out.Daily == nil {
		return ""
	}
	path, err := d.renderer.Render(out.Daily, displayName(out.Result.Pair)+" Daily Chart")
	if err != nil {
		d.metrics.ObserveChartFailure()
		logger.Warn().Err(err).Msg("Chart rendering failed, sending text only")
		return ""
	}
	return path
}

// RunBatch analyzes the first BatchSize pairs, paced at least BatchDelay apart.
// A failing pair gets an error message and the loop moves on.
func (d *Dispatcher) RunBatch(ctx context.Context, chatID int64, trigger string) []BatchResult {
	d.metrics.ObserveBatch(trigger)
	d.reply(chatID, batchStartText, false)

	names := d.pairs.Names()
	if len(names) > d.opts.BatchSize {
		names = names[:d.opts.BatchSize]
	}

	results := make([]BatchResult, 0, len(names))
	for _, name := range names {
		if err := d.pacer.Wait(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("Batch interrupted")
			break
		}

		out, err := d.analyzeIsolated(ctx, chatID, name)
		if err != nil {
			d.logger.Error().Err(err).Str("pair", name).Msg("Batch analysis failed")
			d.reply(chatID, batchErrorText(name), false)
		}
		results = append(results, BatchResult{Pair: name, Outcome: out, Err: err})
	}
	return results
}

func (d *Dispatcher) analyzeIsolated(ctx context.Context, chatID int64, pair string) (out analyze.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.SendAnalysis(ctx, chatID, pair, true)
}

func (d *Dispatcher) sendWelcome(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, welcomeText(d.pairs))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainKeyboard(d.pairs)
	_, err := d.sender.Send(msg)
	d.metrics.ObserveDelivery("text", err)
	if err != nil {
		d.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send welcome")
	}
}

func (d *Dispatcher) sendText(chatID int64, text string, silent bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if !silent {
		msg.ReplyMarkup = mainKeyboard(d.pairs)
	}
	_, err := d.sender.Send(msg)
	d.metrics.ObserveDelivery("text", err)
	return err
}

func (d *Dispatcher) sendPhoto(chatID int64, path, caption string, silent bool) error {
	if utf8.RuneCountInString(caption) > captionLimit {
		if err := d.sendRawPhoto(chatID, path, "", silent); err != nil {
			return err
		}
		return d.sendText(chatID, caption, silent)
	}
	return d.sendRawPhoto(chatID, path, caption, silent)
}

func (d *Dispatcher) sendRawPhoto(chatID int64, path, caption string, silent bool) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if !silent {
		photo.ReplyMarkup = mainKeyboard(d.pairs)
	}
	_, err := d.sender.Send(photo)
	d.metrics.ObserveDelivery("photo", err)
	return err
}

// reply sends a plain status message; failures are only logged
func (d *Dispatcher) reply(chatID int64, text string, withKeyboard bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	if withKeyboard {
		msg.ReplyMarkup = mainKeyboard(d.pairs)
	}
	_, err := d.sender.Send(msg)
	d.metrics.ObserveDelivery("text", err)
	if err != nil {
		d.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

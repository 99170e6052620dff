package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/fxpulse/internal/bot"
)

// BatchRunner runs the all-pairs batch into a chat; implemented by *bot.Dispatcher
type BatchRunner interface {
	RunBatch(ctx context.Context, chatID int64, trigger string) []bot.BatchResult
}

// Scheduler posts the all-pairs digest into one chat on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner BatchRunner
	chatID int64
	ctx    context.Context
	logger zerolog.Logger
}

// NewScheduler creates a scheduler. Cron expressions take six fields, seconds first.
func NewScheduler(ctx context.Context, runner BatchRunner, chatID int64) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		runner: runner,
		chatID: chatID,
		ctx:    ctx,
		logger: log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the digest job
func (s *Scheduler) Register(expr string) error {
	if _, err := s.cron.AddFunc(expr, s.RunNow); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	s.logger.Info().Str("cron", expr).Int64("chat_id", s.chatID).Msg("Digest scheduled")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for a running digest to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunNow executes the digest immediately
func (s *Scheduler) RunNow() {
	if s.ctx.Err() != nil {
		return
	}
	s.logger.Info().Msg("Running digest")
	results := s.runner.RunBatch(s.ctx, s.chatID, "digest")

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info().Int("pairs", len(results)).Int("failed", failed).Msg("Digest finished")
}

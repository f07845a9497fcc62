package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"SignalDesk/internal/autotrade"
	"SignalDesk/internal/martingale"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/risk"
)

// PositionRetention is how long closed positions stay in the book. It covers
// the current day and any break-warning window crossing midnight.
const PositionRetention = 24 * time.Hour

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	Martingale *martingale.Store
	Amounts    *autotrade.AmountHistory
	Positions  *risk.PositionBook
	Ledger     *risk.Ledger
	Evaluator  *risk.Evaluator
	Recorder   recorder.Recorder
	Metrics    *metrics.Metrics
	Ctx        context.Context
	Now        func() time.Time
}

// NewScheduler creates a new Scheduler. Overlapping runs of the same job are
// skipped and panics are recovered.
func NewScheduler(ctx context.Context, ms *martingale.Store, amounts *autotrade.AmountHistory, book *risk.PositionBook,
	ledger *risk.Ledger, eval *risk.Evaluator, rec recorder.Recorder, m *metrics.Metrics) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Martingale: ms,
		Amounts:    amounts,
		Positions:  book,
		Ledger:     ledger,
		Evaluator:  eval,
		Recorder:   recorder.OrNoop(rec),
		Metrics:    metrics.OrDefault(m),
		Ctx:        ctx,
		Now:        time.Now,
	}
}

// RegisterAll registers the cleanup sweep, the daily reset and the periodic
// risk evaluation.
func (s *Scheduler) RegisterAll(cleanupCron, dailyCron, evaluateCron string) error {
	if _, err := s.Cron.AddFunc(cleanupCron, s.cleanupTask); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyReset); err != nil {
		return fmt.Errorf("register daily reset: %w", err)
	}
	if _, err := s.Cron.AddFunc(evaluateCron, s.evaluateTask); err != nil {
		return fmt.Errorf("register evaluate task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunCleanupNow executes the cleanup sweep immediately (RUN_ON_START).
func (s *Scheduler) RunCleanupNow() recorder.CleanupEvent {
	return s.cleanup()
}

func (s *Scheduler) cleanupTask() {
	s.cleanup()
}

func (s *Scheduler) cleanup() recorder.CleanupEvent {
	var evt recorder.CleanupEvent
	if s.Martingale != nil {
		res := s.Martingale.CleanupExpired()
		evt.Chains, evt.Orders = res.Chains, res.Orders
	}
	if s.Amounts != nil {
		evt.Amounts = s.Amounts.Prune()
		s.Metrics.CleanupRemoved.WithLabelValues("amounts").Add(float64(evt.Amounts))
	}
	if s.Positions != nil {
		evt.Positions = s.Positions.Prune(s.Now().Add(-PositionRetention))
		s.Metrics.CleanupRemoved.WithLabelValues("positions").Add(float64(evt.Positions))
	}

	log.Info().Int("chains", evt.Chains).Int("orders", evt.Orders).Int("amounts", evt.Amounts).
		Int("positions", evt.Positions).Msg("cleanup sweep finished")
	if err := s.Recorder.RecordCleanup(&evt); err != nil {
		log.Error().Err(err).Msg("record cleanup")
	}
	return evt
}

func (s *Scheduler) dailyReset() {
	if s.Ledger == nil {
		return
	}
	s.Ledger.ResetForNewDay()
}

func (s *Scheduler) evaluateTask() {
	if s.Evaluator == nil {
		return
	}
	err := s.Evaluator.EvaluateAll(s.Ctx)
	for _, e := range multierr.Errors(err) {
		log.Warn().Err(e).Msg("risk evaluation failed")
	}
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

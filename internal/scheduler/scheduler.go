package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"OHLCPipeline/internal/metrics"
	"OHLCPipeline/internal/notifier"
	"OHLCPipeline/internal/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) *pipeline.Summary
}

// Sender delivers a formatted run summary.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler drives pipeline runs, either once or from a cron expression, and
// fans each summary out to metrics and the notifier.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline Runner
	// Notifier, Metrics and MetricsPath are optional.
	Notifier    Sender
	Metrics     *metrics.Recorder
	MetricsPath string
	Logger      *zap.Logger
	Ctx         context.Context

	running sync.Mutex
	mu      sync.Mutex
	last    *pipeline.Summary
	entry   cron.EntryID
}

// NewScheduler creates a Scheduler. Overlapping cron triggers are skipped
// while a run is still in progress.
func NewScheduler(ctx context.Context, runner Runner, sender Sender, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scheduler")
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Pipeline: runner,
		Notifier: sender,
		Logger:   logger,
		Ctx:      ctx,
	}
}

// Register adds the pipeline run under a six-field cron expression (with seconds).
func (s *Scheduler) Register(expr string) error {
	id, err := s.Cron.AddFunc(expr, func() { s.RunNow() })
	if err != nil {
		return fmt.Errorf("register pipeline run %q: %w", expr, err)
	}
	s.entry = id
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Time("next", s.Next()))
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// Next returns the next scheduled run, zero if nothing is registered.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.Cron.Entry(s.entry).Next
}

// Last returns the summary of the most recent completed run.
func (s *Scheduler) Last() *pipeline.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Restore seeds Last, typically from the report of a previous process.
func (s *Scheduler) Restore(sum *pipeline.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = sum
	}
}

// RunNow executes one run and reports it. It returns nil without running if
// another run is in progress.
func (s *Scheduler) RunNow() *pipeline.Summary {
	if !s.running.TryLock() {
		s.Logger.Warn("run already in progress, skipping")
		return nil
	}
	defer s.running.Unlock()

	sum := s.Pipeline.Run(s.Ctx)

	s.mu.Lock()
	s.last = sum
	s.mu.Unlock()

	if s.Metrics != nil && s.MetricsPath != "" {
		if err := s.Metrics.WriteTextfile(s.MetricsPath); err != nil {
			s.Logger.Error("write metrics", zap.Error(err))
		}
	}
	s.trySend(notifier.FormatRunSummary(sum))
	return sum
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch strings.ToLower(command) {
	case "/run":
		go s.RunNow()
		return "Run started."
	case "/status":
		return notifier.FormatStatus(s.Last(), s.Next())
	default:
		return "Available commands:\n• /run\n• /status"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error("send notification", zap.Error(err))
	}
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appetims "github.com/dukapos/backend/internal/application/etims"
)

// SweepRunner runs one resubmission pass over invoices awaiting submission.
type SweepRunner interface {
	RetrySweep(ctx context.Context, limit int) (appetims.SweepReport, error)
}

// RetrySweepSchedulerConfig holds configuration for the retry sweep scheduler
type RetrySweepSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// SweepInterval is the time between sweeps
	SweepInterval time.Duration

	// BatchSize is the maximum number of invoices attempted per sweep
	BatchSize int

	// SweepTimeout is the maximum time for a single sweep run.
	// Must be shorter than SweepInterval so sweeps never overlap.
	SweepTimeout time.Duration
}

// DefaultRetrySweepSchedulerConfig returns default configuration
func DefaultRetrySweepSchedulerConfig() RetrySweepSchedulerConfig {
	return RetrySweepSchedulerConfig{
		Enabled:       true,
		SweepInterval: 5 * time.Minute,
		BatchSize:     50,
		SweepTimeout:  4 * time.Minute,
	}
}

// RetrySweepScheduler periodically resubmits invoices that failed with a
// transport error and are still under the retry ceiling. It never retries
// rejected invoices: the sweep runner only ever sees pending and failed
// ones.
type RetrySweepScheduler struct {
	runner    SweepRunner
	logger    *zap.Logger
	config    RetrySweepSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRetrySweepScheduler creates a new retry sweep scheduler
func NewRetrySweepScheduler(
	runner SweepRunner,
	logger *zap.Logger,
	config RetrySweepSchedulerConfig,
) *RetrySweepScheduler {
	return &RetrySweepScheduler{
		runner: runner,
		logger: logger,
		config: config,
	}
}

// Start starts the retry sweep scheduler
func (s *RetrySweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Retry sweep scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runSweepLoop(ctx)

	s.logger.Info("Retry sweep scheduler started",
		zap.Duration("sweep_interval", s.config.SweepInterval),
		zap.Int("batch_size", s.config.BatchSize),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *RetrySweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Retry sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Retry sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// runSweepLoop runs a sweep every SweepInterval until the context ends
func (s *RetrySweepScheduler) runSweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Retry sweep loop stopping")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep executes one bounded sweep run
func (s *RetrySweepScheduler) executeSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	startTime := time.Now()
	report, err := s.runner.RetrySweep(sweepCtx, s.config.BatchSize)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Invoice retry sweep failed",
			zap.Error(err),
			zap.Duration("duration", duration),
			zap.Int("attempted", report.Attempted),
		)
		return
	}

	if report.Attempted == 0 && report.Skipped == 0 {
		s.logger.Debug("Invoice retry sweep found nothing to do",
			zap.Duration("duration", duration),
		)
		return
	}

	s.logger.Info("Invoice retry sweep completed",
		zap.Duration("duration", duration),
		zap.Int("attempted", report.Attempted),
		zap.Int("approved", report.Approved),
		zap.Int("rejected", report.Rejected),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
}

package app

import (
	"context"
	"time"

	"github.com/lessonwire/core/internal/service"
	"go.uber.org/zap"
)

// Scheduler runs the two periodic sweeps: automatic escrow release for
// sessions past the dispute window, and expiry of stale reschedule requests.
// Both sweeps are idempotent and safe to run concurrently with foreground
// requests.
type Scheduler struct {
	escrow     *service.EscrowService
	reschedule *service.RescheduleService
	interval   time.Duration
	logger     *zap.Logger
	stopChan   chan struct{}
}

func NewScheduler(
	escrow *service.EscrowService,
	reschedule *service.RescheduleService,
	interval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		escrow:     escrow,
		reschedule: reschedule,
		interval:   interval,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Start launches the background sweeps.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting background scheduler", zap.Duration("interval", s.interval))

	go s.run(ctx, "auto-release", func(ctx context.Context) (int, error) {
		return s.escrow.AutoReleaseSweep(ctx)
	})
	go s.run(ctx, "reschedule-expiry", func(ctx context.Context) (int, error) {
		return s.reschedule.ExpireSweep(ctx)
	})
}

// Stop halts the background sweeps.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping background scheduler")
	close(s.stopChan)
}

func (s *Scheduler) run(ctx context.Context, name string, sweep func(context.Context) (int, error)) {
	// First pass right at startup, then on the ticker.
	s.sweep(ctx, name, sweep)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx, name, sweep)
		case <-s.stopChan:
			s.logger.Info("sweep stopped", zap.String("sweep", name))
			return
		case <-ctx.Done():
			s.logger.Info("sweep cancelled", zap.String("sweep", name))
			return
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context, name string, fn func(context.Context) (int, error)) {
	n, err := fn(ctx)
	if err != nil {
		s.logger.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("sweep finished", zap.String("sweep", name), zap.Int("processed", n))
	}
}

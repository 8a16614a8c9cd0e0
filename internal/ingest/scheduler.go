package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-alert-service/internal/observability"
)

// CycleRunner runs one ingestion cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context)
}

// Scheduler triggers ingestion cycles on a fixed interval, plus one
// immediately at startup. Each tick dispatches asynchronously; the engine's
// own guard drops a tick that arrives while a cycle is still in flight.
type Scheduler struct {
	engine   CycleRunner
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewScheduler creates a scheduler for the given poll interval.
func NewScheduler(engine CycleRunner, clock clockwork.Clock, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		engine:   engine,
		clock:    clock,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run blocks until ctx is cancelled, firing one cycle immediately and then
// one per interval.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	go s.engine.RunCycle(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.Chan():
			go s.engine.RunCycle(ctx)
		}
	}
}

package executor

import (
	"context"
	"time"

	"github.com/dsr-ph/dsr-loadtest/pkg/logging"
)

// Scheduler drives the pool from the schedule at a bounded tick interval.
// Ticks are anchored to the run start, strictly ordered and monotonic in
// elapsed time.
type Scheduler struct {
	schedule *Schedule
	pool     *Pool
	interval time.Duration
	observer Observer
	logger   *logging.Logger
}

// NewScheduler creates a scheduler over the schedule and pool
func NewScheduler(schedule *Schedule, pool *Pool, interval time.Duration, observer Observer, logger *logging.Logger) *Scheduler {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Scheduler{
		schedule: schedule,
		pool:     pool,
		interval: interval,
		observer: observer,
		logger:   logger,
	}
}

// Run ticks until the schedule's total duration elapses or the context is
// canceled, then drains the pool gracefully. onTick, if non-nil, is called
// once per tick with the elapsed time and desired concurrency.
func (s *Scheduler) Run(ctx context.Context, onTick func(elapsed time.Duration, desired int)) {
	start := time.Now()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Apply the initial sizing without waiting for the first tick
	s.tick(ctx, 0, onTick)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("run canceled, draining virtual users")
			s.pool.Drain()
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			if elapsed > s.schedule.Total() {
				s.pool.Drain()
				return
			}
			s.tick(ctx, elapsed, onTick)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, elapsed time.Duration, onTick func(time.Duration, int)) {
	desired := s.schedule.DesiredAt(elapsed)
	s.pool.Resize(ctx, desired)

	live := s.pool.Live()
	s.observer.OnTick(elapsed, desired, live)
	if onTick != nil {
		onTick(elapsed, desired)
	}

	s.logger.Debug("scheduler tick",
		"elapsed", elapsed.String(),
		"desired", desired,
		"live", live,
	)
}

package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
)

// Pinger is the dependency probed by the scheduler.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Scheduler periodically probes the record store and keeps the latest result.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Pinger
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	healthy   atomic.Bool
}

// New creates a new Scheduler. The store is assumed healthy until the first
// probe says otherwise.
func New(target Pinger, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := interval / 2
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}

	s := &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
	s.healthy.Store(true)
	return s
}

// Start schedules the probe job and starts the underlying scheduler. The
// first probe runs immediately.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(s.Probe)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Probe pings the store once and records the outcome.
func (s *Scheduler) Probe() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.target.Ping(ctx)
	ok := err == nil
	was := s.healthy.Swap(ok)

	switch {
	case was && !ok:
		s.logger.Error("record store probe failed", "error", err)
	case !was && ok:
		s.logger.Info("record store reachable again")
	case !ok:
		s.logger.Debug("record store still unreachable", "error", err)
	}
}

// Healthy reports whether the latest probe succeeded.
func (s *Scheduler) Healthy() bool {
	return s.healthy.Load()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"roora/internal/log"
)

// Scheduler runs a job immediately and then on every tick until stopped.
type Scheduler struct {
	interval time.Duration
	job      func(ctx context.Context) error
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(interval time.Duration, job func(ctx context.Context) error, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Scheduler{interval: interval, job: job, logger: logger.WithComponent(log.ComponentWorker)}
}

// Start launches the loop. Starting twice is an error.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler is already running")
	}
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(ctx, s.stopCh, s.doneCh)
	s.logger.InfoContext(ctx, "Scheduler started", "interval", s.interval)
	return nil
}

// Stop signals the loop and waits for it, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.run(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if err := s.job(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "Scheduled job failed", log.FieldError, err)
	}
}

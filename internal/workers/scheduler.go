package workers

import (
	"context"
	"sync"
	"time"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

// Scheduler runs registered workers, each on its own ticker.
type Scheduler struct {
	workers []Worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	log     *logger.Logger
	started bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		log: logger.Get().With("component", "scheduler"),
	}
}

// RegisterWorker adds a worker. Registration after Start is refused.
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnf("Cannot register worker %s after start", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infof("Worker %s registered (interval %s)", w.Name(), w.Interval())
}

// Start launches every enabled worker in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler already started")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	for _, w := range s.workers {
		if !w.Enabled() {
			s.log.Infof("Skipping disabled worker %s", w.Name())
			continue
		}
		s.wg.Add(1)
		go s.runWorker(w)
	}

	s.log.Infof("Scheduler started with %d workers", len(s.workers))
	return nil
}

// Stop signals all workers and waits for them, bounded by the shutdown
// timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		s.log.Infof("All workers stopped")
	case <-time.After(shutdownTimeout):
		err = errors.Wrapf(errors.ErrInternal, "worker shutdown timed out after %s", shutdownTimeout)
		s.log.Warnf("Worker shutdown timed out after %s", shutdownTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return err
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Scheduler) runWorker(w Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	// Run once immediately, then on every tick.
	s.execute(w)

	for {
		select {
		case <-s.ctx.Done():
			s.log.Infof("Worker %s stopping", w.Name())
			return
		case <-ticker.C:
			s.execute(w)
		}
	}
}

func (s *Scheduler) execute(w Worker) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("Worker %s panicked: %v", w.Name(), r)
		}
	}()

	if err := w.Run(s.ctx); err != nil {
		s.log.Errorf("Worker %s failed: %v", w.Name(), err)
	}
}

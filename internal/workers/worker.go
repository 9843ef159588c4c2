// Package workers runs the background loops of live mode: gateway intake
// and periodic status reporting.
package workers

import (
	"context"
	"sync"
	"time"

	"hermes/pkg/logger"
)

// Worker is one background loop iteration. The scheduler calls Run on every
// tick of Interval.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
	Enabled() bool
}

// BaseWorker provides the common counters and identity of a worker.
type BaseWorker struct {
	name     string
	interval time.Duration
	enabled  bool
	log      *logger.Logger

	mu         sync.RWMutex
	lastRun    time.Time
	lastError  error
	runCount   int64
	errorCount int64
}

// NewBaseWorker creates a base worker.
func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      logger.Get().With("worker", name),
	}
}

// Name returns the worker name.
func (w *BaseWorker) Name() string {
	return w.name
}

// Interval returns the run interval.
func (w *BaseWorker) Interval() time.Duration {
	return w.interval
}

// Enabled reports whether the worker should run.
func (w *BaseWorker) Enabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.enabled
}

// Log returns the worker's logger.
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// RecordRun records a successful iteration.
func (w *BaseWorker) RecordRun() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastRun = time.Now()
	w.runCount++
	w.lastError = nil
}

// RecordError records a failed iteration.
func (w *BaseWorker) RecordError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastRun = time.Now()
	w.runCount++
	w.errorCount++
	w.lastError = err
}

// Health is a worker's health snapshot.
type Health struct {
	LastRun    time.Time
	LastError  error
	RunCount   int64
	ErrorCount int64
}

// Health returns the worker's counters.
func (w *BaseWorker) Health() Health {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Health{
		LastRun:    w.lastRun,
		LastError:  w.lastError,
		RunCount:   w.runCount,
		ErrorCount: w.errorCount,
	}
}

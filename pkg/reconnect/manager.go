// Package reconnect provides exponential backoff with a circuit breaker for
// long-lived external connections (websocket gateways, brokers, caches).
package reconnect

import (
	"context"
	"sync"
	"time"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Manager tracks consecutive connection failures and produces the backoff
// schedule for the next attempt. After MaxRetries consecutive failures the
// circuit opens and attempts are refused until CircuitResetAfter elapses.
type Manager struct {
	minBackoff        time.Duration
	maxBackoff        time.Duration
	multiplier        float64
	maxRetries        int
	circuitResetAfter time.Duration

	mu              sync.RWMutex
	currentBackoff  time.Duration
	failures        int
	totalReconnects int
	circuitOpen     bool
	circuitOpenedAt time.Time

	log *logger.Logger
}

// Config configures the reconnect manager. Zero values fall back to defaults.
type Config struct {
	MinBackoff        time.Duration
	MaxBackoff        time.Duration
	Multiplier        float64
	MaxRetries        int
	CircuitResetAfter time.Duration
}

// NewManager creates a reconnect manager with sensible defaults.
func NewManager(cfg Config, log *logger.Logger) *Manager {
	if cfg.MinBackoff == 0 {
		cfg.MinBackoff = 1 * time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 2 * time.Minute
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 10
	}
	if cfg.CircuitResetAfter == 0 {
		cfg.CircuitResetAfter = 5 * time.Minute
	}

	return &Manager{
		minBackoff:        cfg.MinBackoff,
		maxBackoff:        cfg.MaxBackoff,
		multiplier:        cfg.Multiplier,
		maxRetries:        cfg.MaxRetries,
		circuitResetAfter: cfg.CircuitResetAfter,
		currentBackoff:    cfg.MinBackoff,
		log:               log,
	}
}

// ShouldRetry reports whether another connection attempt is allowed.
func (m *Manager) ShouldRetry() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.circuitOpen {
		return time.Since(m.circuitOpenedAt) >= m.circuitResetAfter
	}
	return m.failures < m.maxRetries
}

// Backoff returns the wait before the next attempt.
func (m *Manager) Backoff() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentBackoff
}

// RecordFailure bumps the failure count and grows the backoff. The circuit
// opens once failures reach the retry cap.
func (m *Manager) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++

	next := time.Duration(float64(m.currentBackoff) * m.multiplier)
	if next > m.maxBackoff {
		next = m.maxBackoff
	}
	m.currentBackoff = next

	m.log.Warnf("Connection attempt failed (%d consecutive), next backoff %s", m.failures, m.currentBackoff)

	if m.failures >= m.maxRetries && !m.circuitOpen {
		m.circuitOpen = true
		m.circuitOpenedAt = time.Now()
		m.log.Errorf("Circuit opened after %d consecutive failures, retrying in %s", m.failures, m.circuitResetAfter)
	}
}

// RecordSuccess resets backoff and closes the circuit.
func (m *Manager) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.log.Infof("Connection restored after %d failed attempts", m.failures)
	}

	m.currentBackoff = m.minBackoff
	m.failures = 0
	m.totalReconnects++
	m.circuitOpen = false
	m.circuitOpenedAt = time.Time{}
}

// Stats contains reconnection counters for status reports.
type Stats struct {
	ConsecutiveFailures int
	TotalReconnects     int
	CurrentBackoff      time.Duration
	CircuitOpen         bool
}

// GetStats returns a snapshot of the reconnect state.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		ConsecutiveFailures: m.failures,
		TotalReconnects:     m.totalReconnects,
		CurrentBackoff:      m.currentBackoff,
		CircuitOpen:         m.circuitOpen,
	}
}

// Run executes connect with the current backoff applied first. It returns
// the connect error on failure, or a circuit error when attempts are refused.
func (m *Manager) Run(ctx context.Context, connect func(context.Context) error) error {
	if !m.ShouldRetry() {
		m.mu.RLock()
		failures := m.failures
		m.mu.RUnlock()
		return errors.Newf("circuit open: %d consecutive failures", failures)
	}

	if backoff := m.Backoff(); backoff > 0 {
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := connect(ctx); err != nil {
		m.RecordFailure()
		return errors.Wrap(err, "connect")
	}

	m.RecordSuccess()
	return nil
}

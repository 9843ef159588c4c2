package gateway

import (
	"context"
	"sync"

	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
)

// Loopback is an in-process gateway backed by channels. Scenario runs and
// tests use it to feed events in and capture decisions without any external
// infrastructure.
type Loopback struct {
	events    chan *event.Event
	decisions chan opinion.Decision

	mu     sync.Mutex
	closed bool
}

// NewLoopback creates a loopback gateway with the given buffer size.
func NewLoopback(buffer int) *Loopback {
	if buffer < 1 {
		buffer = 16
	}
	return &Loopback{
		events:    make(chan *event.Event, buffer),
		decisions: make(chan opinion.Decision, buffer),
	}
}

// Feed queues an external event for the broker to pull. The lock guards
// against Close closing the channel mid-send, so the send must never block
// while it is held: a full buffer is reported instead of waited out.
func (l *Loopback) Feed(ev *event.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.ErrGatewayClosed
	}
	select {
	case l.events <- ev:
		return nil
	default:
		return errors.Wrap(errors.ErrInternal, "loopback event buffer full")
	}
}

// Push captures a consolidated decision.
func (l *Loopback) Push(ctx context.Context, d opinion.Decision) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		metrics.GatewayPushes.WithLabelValues("loopback", "error").Inc()
		return errors.ErrGatewayClosed
	}

	select {
	case l.decisions <- d:
		metrics.GatewayPushes.WithLabelValues("loopback", "success").Inc()
		return nil
	case <-ctx.Done():
		metrics.GatewayPushes.WithLabelValues("loopback", "error").Inc()
		return ctx.Err()
	}
}

// Pull returns the next queued event, or ErrNoEvent when the queue is empty.
func (l *Loopback) Pull(ctx context.Context) (*event.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	select {
	case ev, ok := <-l.events:
		if !ok {
			return nil, errors.ErrGatewayClosed
		}
		metrics.GatewayPulls.WithLabelValues("loopback").Inc()
		return ev, nil
	default:
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return nil, errors.ErrGatewayClosed
		}
		return nil, errors.ErrNoEvent
	}
}

// Decisions exposes the captured decision stream.
func (l *Loopback) Decisions() <-chan opinion.Decision {
	return l.decisions
}

// Close shuts the loopback down. Queued events drain before Pull starts
// reporting ErrGatewayClosed.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.events)
	return nil
}

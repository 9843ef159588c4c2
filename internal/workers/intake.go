package workers

import (
	"context"
	"time"

	"hermes/internal/broker"
	"hermes/internal/gateway"
	"hermes/internal/scenario"
	"hermes/pkg/errors"
)

// IntakeWorker drives live mode: each iteration drains the gateway's pending
// events and runs one coordination cycle per event. Decisions travel back
// through the broker's own gateway push; the worker additionally mirrors
// records into the trace store when one is bound.
type IntakeWorker struct {
	*BaseWorker

	broker *broker.Broker
	gw     gateway.Gateway
	store  scenario.Store
	run    string

	trace *scenario.Trace
}

// NewIntakeWorker creates the gateway intake worker. run names the trace in
// the store; store may be nil.
func NewIntakeWorker(b *broker.Broker, gw gateway.Gateway, store scenario.Store, run string, interval time.Duration) *IntakeWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &IntakeWorker{
		BaseWorker: NewBaseWorker("gateway_intake", interval, true),
		broker:     b,
		gw:         gw,
		store:      store,
		run:        run,
		trace:      &scenario.Trace{Scenario: run, StartedAt: time.Now().UTC()},
	}
}

// Run drains everything the gateway has queued, then yields until the next
// tick.
func (w *IntakeWorker) Run(ctx context.Context) error {
	for {
		ev, err := w.gw.Pull(ctx)
		if err != nil {
			switch {
			case errors.Is(err, errors.ErrNoEvent):
				w.RecordRun()
				return nil
			case errors.Is(err, errors.ErrGatewayClosed), errors.Is(err, context.Canceled):
				w.RecordRun()
				return nil
			default:
				w.RecordError(err)
				return errors.Wrap(err, "gateway pull")
			}
		}

		res := w.broker.RunCycle(ctx, ev)
		rec := w.trace.Append(res.Decision.Cycle, res)

		if w.store != nil {
			if err := w.store.Append(ctx, w.run, rec); err != nil {
				w.Log().Errorf("Trace persist failed for seq %d: %v", rec.Seq, err)
			}
		}
	}
}

// Trace returns everything processed so far.
func (w *IntakeWorker) Trace() *scenario.Trace {
	return w.trace
}

package scenario

import (
	"context"
	"time"

	"hermes/internal/broker"
	"hermes/internal/domain/opinion"
	"hermes/pkg/logger"
)

// Runner replays a scenario's event sequence through the broker for a number
// of simulation cycles. Event order within a cycle is the scenario order;
// cycle numbering is the broker's global counter.
type Runner struct {
	broker *broker.Broker
	store  Store
	log    *logger.Logger
}

// NewRunner creates a runner. store may be nil when persistence is disabled.
func NewRunner(b *broker.Broker, store Store) *Runner {
	return &Runner{
		broker: b,
		store:  store,
		log:    logger.Get().With("component", "scenario_runner"),
	}
}

// Run executes numCycles full passes over the scenario. Cancellation takes
// effect at the next event boundary; the trace keeps everything produced up
// to that point, including the aborted cycle's decision.
func (r *Runner) Run(ctx context.Context, sc *Scenario, numCycles int) (*Trace, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if numCycles < 1 {
		numCycles = 1
	}

	trace := &Trace{
		Scenario:  sc.Name,
		StartedAt: time.Now().UTC(),
	}

	r.log.Infof("Running scenario %q: %d events x %d cycles", sc.Name, len(sc.Events), numCycles)

	for pass := 0; pass < numCycles; pass++ {
		for i := range sc.Events {
			res := r.broker.RunCycle(ctx, &sc.Events[i])
			rec := trace.Append(res.Decision.Cycle, res)
			r.persist(ctx, sc.Name, rec)

			switch res.Decision.Kind {
			case opinion.KindUnresolved:
				r.log.Warnf("Cycle %d unresolved: %s", rec.Cycle, res.Decision.Rationale)
			case opinion.KindAborted:
				trace.FinishedAt = time.Now().UTC()
				r.log.Warnf("Scenario %q aborted at cycle %d", sc.Name, rec.Cycle)
				return trace, ctx.Err()
			}
		}
	}

	trace.FinishedAt = time.Now().UTC()
	r.log.Infof("Scenario %q finished: %d records", sc.Name, len(trace.Records))
	return trace, nil
}

// persist mirrors a record into the store. Storage faults must not disturb
// the run; they are logged and dropped.
func (r *Runner) persist(ctx context.Context, run string, rec Record) {
	if r.store == nil {
		return
	}
	if err := r.store.Append(ctx, run, rec); err != nil {
		r.log.Errorf("Trace persist failed for seq %d: %v", rec.Seq, err)
	}
}

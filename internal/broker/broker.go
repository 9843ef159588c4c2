package broker

import (
	"context"
	"time"

	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
	"hermes/internal/domain/role"
	"hermes/internal/gateway"
	"hermes/internal/metrics"
	"hermes/internal/network"
	"hermes/internal/resolver"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Config assembles a broker for one run. Zero-valued fields fall back to the
// standard roster, topology and priority table.
type Config struct {
	Name string

	HopLimit        int
	DecisionTimeout time.Duration

	// ExecutiveFallback routes unmatched events to the executive desk
	// instead of NoAction.
	ExecutiveFallback bool

	Topology      *network.Topology
	Subscriptions network.SubscriptionTable
	Resolver      resolver.Config
	Profiles      map[role.Role]role.Profile
}

// CycleResult is everything one cycle produced: the event, every opinion
// collected during routing (failures included), and the reconciled decision.
type CycleResult struct {
	Event    *event.Event      `json:"event"`
	Opinions []opinion.Opinion `json:"opinions"`
	Decision opinion.Decision  `json:"decision"`
}

// Broker is the composite brokerage agent. It owns the department sub-agents
// and the internal network, and orchestrates one cycle per external event:
// intake, routing, department responses, conflict resolution, consolidated
// output. Between cycles it carries nothing event-specific beyond the cycle
// counter; per-department state lives in the sub-agents.
type Broker struct {
	name     string
	agents   map[role.Role]*SubAgent
	roster   []role.Role
	network  *network.Network
	resolver *resolver.Resolver
	gateway  gateway.Gateway

	cycle int
	log   *logger.Logger
}

// New builds the composite agent. bind selects each department's decision
// function; gw may be nil when no external integration is configured.
func New(cfg Config, bind Binding, gw gateway.Gateway) (*Broker, error) {
	if cfg.HopLimit < 1 {
		cfg.HopLimit = 3
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = 30 * time.Second
	}
	topology := cfg.Topology
	if topology == nil {
		topology = network.DefaultTopology()
	}
	profiles := cfg.Profiles
	if profiles == nil {
		profiles = role.DefaultProfiles()
	}

	net, err := network.New(network.Config{
		Topology:          topology,
		Subscriptions:     cfg.Subscriptions,
		HopLimit:          cfg.HopLimit,
		ExecutiveFallback: cfg.ExecutiveFallback,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build internal network")
	}

	b := &Broker{
		name:     cfg.Name,
		agents:   make(map[role.Role]*SubAgent),
		roster:   role.All(),
		network:  net,
		resolver: resolver.New(cfg.Resolver),
		gateway:  gw,
		log:      logger.Get().With("component", "broker", "name", cfg.Name),
	}

	for _, r := range b.roster {
		profile, ok := profiles[r]
		if !ok {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "no profile for role %s", r)
		}
		decide := bind(r)
		if decide == nil {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "no decision function bound for role %s", r)
		}
		b.agents[r] = NewSubAgent(profile, decide, cfg.DecisionTimeout)
	}

	return b, nil
}

// Network exposes the internal network for status reporting.
func (b *Broker) Network() *network.Network {
	return b.network
}

// Agent returns the sub-agent for a role. Used by tests and status reports;
// never by routing.
func (b *Broker) Agent(r role.Role) *SubAgent {
	return b.agents[r]
}

// Cycle returns the monotonically increasing cycle counter.
func (b *Broker) Cycle() int {
	return b.cycle
}

// RunCycle drives one full coordination cycle for an external event. It
// never returns an error: every failure mode is a well-defined decision kind
// captured in the result. Cancellation is honored between hop levels only
// and yields an Aborted decision.
func (b *Broker) RunCycle(ctx context.Context, ev *event.Event) CycleResult {
	b.cycle++
	start := time.Now()

	b.log.Infof("Cycle %d: %s event %s", b.cycle, ev.Type, ev.ID)

	opinions, aborted := b.drain(ctx, ev)

	var decision opinion.Decision
	switch {
	case aborted:
		decision = opinion.Decision{
			EventID:   ev.ID,
			Cycle:     b.cycle,
			Kind:      opinion.KindAborted,
			Rationale: "cycle cancelled between hop levels",
		}
	default:
		decision = b.resolve(ctx, ev, &opinions)
	}
	decision.Cycle = b.cycle

	b.push(ctx, decision)

	metrics.RecordCycle(string(ev.Type), time.Since(start), string(decision.Kind))
	b.log.Infof("Cycle %d decided: %s (%d opinions)", b.cycle, decision.Kind, len(opinions))

	return CycleResult{Event: ev, Opinions: opinions, Decision: decision}
}

// drain performs the breadth-first traversal: hop level by hop level, FIFO
// within a level, until the queue empties or the hop ceiling drops the
// remaining messages. Sub-agent iteration order is generation order, which
// makes replays byte-for-byte identical.
func (b *Broker) drain(ctx context.Context, ev *event.Event) (opinions []opinion.Opinion, aborted bool) {
	level := b.network.Route(ev, b.cycle)
	metrics.MessagesDelivered.WithLabelValues(string(network.KindEvent)).Add(float64(len(level)))

	for len(level) > 0 {
		// Cancellation barrier: only between hop levels, never mid-level.
		select {
		case <-ctx.Done():
			b.log.Warnf("Cycle %d aborted at hop %d", b.cycle, level[0].Hop)
			return opinions, true
		default:
		}

		var next []*network.Message
		for _, msg := range level {
			agent, ok := b.agents[msg.To]
			if !ok {
				b.log.Warnf("No sub-agent for role %s, dropping message", msg.To)
				continue
			}

			op, outs := agent.Receive(ctx, msg)
			if op != nil {
				opinions = append(opinions, *op)
			}

			delivered, _ := b.network.Expand(msg.To, msg, outs)
			metrics.MessagesDelivered.WithLabelValues(string(network.KindInternal)).Add(float64(len(delivered)))
			next = append(next, delivered...)
		}
		level = next
	}

	return b.forEvent(opinions, ev), false
}

// forEvent keeps only opinions addressing the cycle's event. Stray opinions
// are a decision-function bug; they are logged and excluded from resolution.
func (b *Broker) forEvent(opinions []opinion.Opinion, ev *event.Event) []opinion.Opinion {
	out := opinions[:0]
	for _, op := range opinions {
		if op.EventID == ev.ID {
			out = append(out, op)
		} else {
			b.log.Warnf("Opinion from %s references foreign event %s, ignoring", op.Role, op.EventID)
		}
	}
	return out
}

// resolve runs conflict resolution and, when the resolver ties, the single
// escalation round to the executive desk. The executive's opinion (or
// failure) is appended to the collected opinions so the trace shows it.
func (b *Broker) resolve(ctx context.Context, ev *event.Event, opinions *[]opinion.Opinion) opinion.Decision {
	decision, escalate := b.resolver.Resolve(ev, *opinions)
	if !escalate {
		return decision
	}

	metrics.Escalations.Inc()
	body, data := resolver.EscalationBody(*opinions)
	msg := b.network.Escalate(ev, b.cycle, body, data)
	metrics.MessagesDelivered.WithLabelValues(string(network.KindEscalation)).Inc()

	execOp, outs := b.agents[role.Executive].Receive(ctx, msg)
	if len(outs) > 0 {
		// The cycle is held open for exactly one delivery round; follow-ups
		// from the arbitration itself have nowhere to go.
		b.log.Debugf("Discarding %d follow-ups from escalation round", len(outs))
	}
	if execOp != nil {
		*opinions = append(*opinions, *execOp)
	}

	return b.resolver.ResolveEscalation(ev, b.cycle, execOp)
}

// push emits the decision through the external gateway, if one is bound.
// Push failures are logged, never propagated: the trace is the authoritative
// output.
func (b *Broker) push(ctx context.Context, decision opinion.Decision) {
	if b.gateway == nil {
		return
	}
	if err := b.gateway.Push(ctx, decision); err != nil {
		b.log.Errorf("Gateway push failed for event %s: %v", decision.EventID, err)
	}
}

// Status is the composite agent's status report.
type Status struct {
	Name           string              `json:"name"`
	Cycles         int                 `json:"cycles"`
	Agents         []AgentStatus       `json:"agents"`
	Traffic        []network.RoleStats `json:"traffic"`
	TotalDelivered int                 `json:"total_delivered"`
}

// Status reports per-department counters and network traffic.
func (b *Broker) Status() Status {
	s := Status{
		Name:   b.name,
		Cycles: b.cycle,
	}
	for _, r := range b.roster {
		s.Agents = append(s.Agents, b.agents[r].Status())
	}
	s.Traffic, s.TotalDelivered = b.network.Stats().Summary()
	return s
}

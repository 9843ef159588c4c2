package network

import (
	"github.com/google/uuid"

	"hermes/internal/domain/event"
	"hermes/internal/domain/role"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Config assembles a network for one run.
type Config struct {
	Topology      *Topology
	Subscriptions SubscriptionTable

	// HopLimit is the propagation ceiling H per originating event. Messages
	// whose hop count reaches H are dropped and logged, which is what makes
	// cyclic peer edges safe.
	HopLimit int

	// ExecutiveFallback routes events with no subscription match to the
	// executive desk instead of producing no recipients.
	ExecutiveFallback bool
}

// Network owns routing of external events into the hierarchy and delivery of
// department-to-department messages along topology edges.
type Network struct {
	topology  *Topology
	subs      SubscriptionTable
	hopLimit  int
	fallback  bool
	stats     *Stats
	log       *logger.Logger
}

// New validates the configuration and builds the network.
func New(cfg Config) (*Network, error) {
	if cfg.Topology == nil {
		return nil, errors.Wrap(errors.ErrMalformedTopology, "nil topology")
	}
	if cfg.HopLimit < 1 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "hop limit must be >= 1, got %d", cfg.HopLimit)
	}
	subs := cfg.Subscriptions
	if subs == nil {
		subs = DefaultSubscriptions()
	}

	return &Network{
		topology: cfg.Topology,
		subs:     subs,
		hopLimit: cfg.HopLimit,
		fallback: cfg.ExecutiveFallback,
		stats:    NewStats(),
		log:      logger.Get().With("component", "internal_network"),
	}, nil
}

// HopLimit returns the configured propagation ceiling.
func (n *Network) HopLimit() int {
	return n.hopLimit
}

// Stats returns the communication accounting for this run.
func (n *Network) Stats() *Stats {
	return n.stats
}

// Route translates an external event into its hop-0 messages. An empty
// result means no department is subscribed; the broker turns that into a
// NoAction decision.
func (n *Network) Route(ev *event.Event, cycle int) []*Message {
	recipients := n.subs.Recipients(ev)

	if len(recipients) == 0 && n.fallback {
		n.log.Debugf("No subscription match for %s event %s, falling back to executive", ev.Type, ev.ID)
		recipients = []role.Role{role.Executive}
	}

	msgs := make([]*Message, 0, len(recipients))
	for _, r := range recipients {
		msgs = append(msgs, &Message{
			ID:    uuid.New(),
			Kind:  KindEvent,
			To:    r,
			Hop:   0,
			Cycle: cycle,
			Event: ev,
		})
		n.stats.RecordInbound(r)
	}
	return msgs
}

// Expand turns a sub-agent's outbound requests into concrete next-hop
// messages. Deliveries are only made along topology edges; broadcast fans
// out one hop from the sender. Messages that would reach the hop ceiling are
// dropped and counted, never delivered.
func (n *Network) Expand(sender role.Role, parent *Message, outs []Outbound) (delivered []*Message, dropped int) {
	for _, out := range outs {
		var recipients []role.Role
		if out.Broadcast {
			recipients = n.topology.Neighbors(sender)
		} else if n.topology.CanSend(sender, out.To) {
			recipients = []role.Role{out.To}
		} else {
			n.log.Warnf("No channel from %s to %s, dropping message", sender, out.To)
			continue
		}

		hop := parent.Hop + 1
		if hop >= n.hopLimit {
			dropped += len(recipients)
			metrics.HopLimitDrops.Add(float64(len(recipients)))
			n.log.Warnf("Hop limit exceeded for event %s (hop %d >= %d), dropping message from %s",
				parent.Event.ID, hop, n.hopLimit, sender)
			continue
		}

		for _, r := range recipients {
			delivered = append(delivered, &Message{
				ID:    uuid.New(),
				Kind:  KindInternal,
				From:  sender,
				To:    r,
				Hop:   hop,
				Cycle: parent.Cycle,
				Event: parent.Event,
				Body:  out.Body,
				Data:  out.Data,
			})
			n.stats.RecordDelivery(sender, r)
		}
	}
	return delivered, dropped
}

// Escalate builds the single escalation message delivered to the executive
// desk when conflict resolution ties. It bypasses the hop ceiling: the
// escalation round is exactly one additional delivery, mandated by the
// resolution protocol rather than by propagation.
func (n *Network) Escalate(parent *event.Event, cycle int, body string, data map[string]string) *Message {
	n.stats.RecordInbound(role.Executive)
	return &Message{
		ID:    uuid.New(),
		Kind:  KindEscalation,
		To:    role.Executive,
		Hop:   n.hopLimit,
		Cycle: cycle,
		Event: parent,
		Body:  body,
		Data:  data,
	}
}

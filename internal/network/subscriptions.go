package network

import (
	"hermes/internal/domain/event"
	"hermes/internal/domain/role"
)

// SubscriptionTable maps an event type to the departments that react to it.
// Client requests are routed dynamically to the request's primary owner
// rather than through this table.
type SubscriptionTable map[event.Type][]role.Role

// DefaultSubscriptions reflects which desks care about which external
// stimuli: market updates go to the trading-relevant desks, regulatory news
// to compliance and the executive committee, opportunities to the desks that
// can act on them.
func DefaultSubscriptions() SubscriptionTable {
	return SubscriptionTable{
		event.TypeMarketUpdate: {
			role.SalesTrading, role.Research, role.RiskCompliance,
		},
		event.TypeRegulatoryAnnouncement: {
			role.RiskCompliance, role.Executive,
		},
		event.TypeTradingOpportunity: {
			role.SalesTrading, role.Research,
		},
	}
}

// Recipients resolves the initial delivery set for an event. Order follows
// the fixed roster so routing is deterministic.
func (s SubscriptionTable) Recipients(ev *event.Event) []role.Role {
	if ev.Type == event.TypeClientRequest {
		return []role.Role{ev.PrimaryOwner()}
	}

	subscribed := make(map[role.Role]bool)
	for _, r := range s[ev.Type] {
		subscribed[r] = true
	}

	out := make([]role.Role, 0, len(subscribed))
	for _, r := range role.All() {
		if subscribed[r] {
			out = append(out, r)
		}
	}
	return out
}

package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/domain/event"
	"hermes/internal/domain/role"
	"hermes/pkg/errors"
)

func newTestNetwork(t *testing.T, hopLimit int, fallback bool) *Network {
	t.Helper()
	n, err := New(Config{
		Topology:          DefaultTopology(),
		HopLimit:          hopLimit,
		ExecutiveFallback: fallback,
	})
	require.NoError(t, err)
	return n
}

func TestNewTopologyRejectsSelfEdge(t *testing.T) {
	_, err := NewTopology([]Edge{{From: role.Research, To: role.Research}})
	require.ErrorIs(t, err, errors.ErrMalformedTopology)
}

func TestNewTopologyRejectsUnknownRole(t *testing.T) {
	_, err := NewTopology([]Edge{{From: role.Research, To: role.Role("janitorial")}})
	require.ErrorIs(t, err, errors.ErrMalformedTopology)
}

func TestNewRejectsInvalidHopLimit(t *testing.T) {
	_, err := New(Config{Topology: DefaultTopology(), HopLimit: 0})
	require.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestDefaultTopologyShape(t *testing.T) {
	top := DefaultTopology()

	// Executive reaches everyone, both directions.
	for _, r := range role.All() {
		if r == role.Executive {
			continue
		}
		assert.True(t, top.CanSend(role.Executive, r), "executive -> %s", r)
		assert.True(t, top.CanSend(r, role.Executive), "%s -> executive", r)
	}

	// No direct channel between wealth management and sales & trading.
	assert.False(t, top.CanSend(role.WealthManagement, role.SalesTrading))

	// Neighbors come back in roster order.
	nbrs := top.Neighbors(role.Research)
	for i := 1; i < len(nbrs); i++ {
		assert.True(t, rosterIndex(nbrs[i-1]) < rosterIndex(nbrs[i]),
			"neighbors out of roster order: %v", nbrs)
	}
}

func rosterIndex(r role.Role) int {
	for i, candidate := range role.All() {
		if candidate == r {
			return i
		}
	}
	return -1
}

func TestRouteClientRequestGoesToPrimaryOwner(t *testing.T) {
	n := newTestNetwork(t, 3, false)

	ev := event.New(event.TypeClientRequest, "execute this block trade")
	ev.ClientRequest = &event.ClientRequestData{RequestType: "trading"}

	msgs := n.Route(ev, 1)
	require.Len(t, msgs, 1)
	assert.Equal(t, role.SalesTrading, msgs[0].To)
	assert.Equal(t, 0, msgs[0].Hop)
	assert.Equal(t, KindEvent, msgs[0].Kind)
}

func TestRouteMarketUpdateFansOutInRosterOrder(t *testing.T) {
	n := newTestNetwork(t, 3, false)

	ev := event.New(event.TypeMarketUpdate, "tech selloff")
	msgs := n.Route(ev, 1)

	require.Len(t, msgs, 3)
	assert.Equal(t, role.SalesTrading, msgs[0].To)
	assert.Equal(t, role.Research, msgs[1].To)
	assert.Equal(t, role.RiskCompliance, msgs[2].To)
}

func TestRouteUnmatchedEvent(t *testing.T) {
	empty := SubscriptionTable{}

	n, err := New(Config{Topology: DefaultTopology(), Subscriptions: empty, HopLimit: 3})
	require.NoError(t, err)
	assert.Empty(t, n.Route(event.New(event.TypeMarketUpdate, "x"), 1))

	fb, err := New(Config{Topology: DefaultTopology(), Subscriptions: empty, HopLimit: 3, ExecutiveFallback: true})
	require.NoError(t, err)
	msgs := fb.Route(event.New(event.TypeMarketUpdate, "x"), 1)
	require.Len(t, msgs, 1)
	assert.Equal(t, role.Executive, msgs[0].To)
}

func TestExpandEnforcesTopologyEdges(t *testing.T) {
	n := newTestNetwork(t, 3, false)

	ev := event.New(event.TypeMarketUpdate, "x")
	parent := &Message{Hop: 0, Cycle: 1, Event: ev, To: role.WealthManagement}

	delivered, dropped := n.Expand(role.WealthManagement, parent, []Outbound{
		{To: role.SalesTrading, Body: "no channel"},
		{To: role.AssetManagement, Body: "peer channel"},
	})

	assert.Equal(t, 0, dropped) // hop ceiling drops only; edge misses are discarded
	require.Len(t, delivered, 1)
	assert.Equal(t, role.AssetManagement, delivered[0].To)
	assert.Equal(t, role.WealthManagement, delivered[0].From)
	assert.Equal(t, 1, delivered[0].Hop)
	assert.Equal(t, KindInternal, delivered[0].Kind)
}

func TestExpandBroadcastUsesNeighbors(t *testing.T) {
	n := newTestNetwork(t, 5, false)

	ev := event.New(event.TypeMarketUpdate, "x")
	parent := &Message{Hop: 0, Cycle: 1, Event: ev, To: role.Research}

	delivered, _ := n.Expand(role.Research, parent, []Outbound{{Broadcast: true, Body: "note"}})

	want := DefaultTopology().Neighbors(role.Research)
	require.Len(t, delivered, len(want))
	for i, msg := range delivered {
		assert.Equal(t, want[i], msg.To)
	}
}

func TestExpandDropsAtHopCeiling(t *testing.T) {
	n := newTestNetwork(t, 2, false)

	ev := event.New(event.TypeMarketUpdate, "x")
	parent := &Message{Hop: 1, Cycle: 1, Event: ev, To: role.Research}

	delivered, dropped := n.Expand(role.Research, parent, []Outbound{
		{To: role.SalesTrading, Body: "would be hop 2"},
	})

	assert.Empty(t, delivered)
	assert.Equal(t, 1, dropped)
}

func TestHopCeilingTerminatesCyclicPropagation(t *testing.T) {
	// WM and AM form a two-node cycle. An echoing agent would bounce
	// messages forever without the ceiling.
	n := newTestNetwork(t, 4, false)

	ev := event.New(event.TypeMarketUpdate, "x")
	level := []*Message{{Hop: 0, Cycle: 1, Event: ev, To: role.WealthManagement}}

	totalDelivered := 0
	for len(level) > 0 {
		var next []*Message
		for _, msg := range level {
			peer := role.AssetManagement
			if msg.To == role.AssetManagement {
				peer = role.WealthManagement
			}
			delivered, _ := n.Expand(msg.To, msg, []Outbound{{To: peer, Body: "echo"}})
			next = append(next, delivered...)
			totalDelivered += len(delivered)
		}
		level = next
	}

	// Hops 1 through 3 deliver, hop 4 is dropped.
	assert.Equal(t, 3, totalDelivered)
}

func TestEscalateBypassesHopCeiling(t *testing.T) {
	n := newTestNetwork(t, 2, false)

	ev := event.New(event.TypeMarketUpdate, "x")
	msg := n.Escalate(ev, 7, "arbitrate", map[string]string{"research": "hold"})

	assert.Equal(t, KindEscalation, msg.Kind)
	assert.Equal(t, role.Executive, msg.To)
	assert.Equal(t, 7, msg.Cycle)
	assert.Equal(t, ev, msg.Event)
}

func TestStatsAccounting(t *testing.T) {
	n := newTestNetwork(t, 3, false)

	ev := event.New(event.TypeMarketUpdate, "x")
	n.Route(ev, 1)

	parent := &Message{Hop: 0, Cycle: 1, Event: ev, To: role.Research}
	n.Expand(role.Research, parent, []Outbound{{To: role.SalesTrading, Body: "note"}})

	assert.Equal(t, 1, n.Stats().EdgeCount(role.Research, role.SalesTrading))

	perRole, total := n.Stats().Summary()
	assert.Equal(t, 4, total) // 3 hop-0 deliveries + 1 internal
	assert.Len(t, perRole, len(role.All()))
}

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
	"hermes/internal/domain/role"
)

func marketEvent() *event.Event {
	return event.New(event.TypeMarketUpdate, "sector rotation") // primary owner: research
}

func TestResolveNoOpinionsIsNoAction(t *testing.T) {
	r := New(DefaultConfig())

	d, escalate := r.Resolve(marketEvent(), nil)
	assert.False(t, escalate)
	assert.Equal(t, opinion.KindNoAction, d.Kind)
	assert.Nil(t, d.Payload)
}

func TestResolveAllFailedIsUnresolved(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	opinions := []opinion.Opinion{
		opinion.NewFailure(role.Research, ev.ID, 1, "timeout"),
		opinion.NewFailure(role.SalesTrading, ev.ID, 1, "panic"),
	}

	d, escalate := r.Resolve(ev, opinions)
	assert.False(t, escalate)
	assert.Equal(t, opinion.KindUnresolved, d.Kind)
}

func TestResolveUnanimity(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	// Payload equality is canonical: case and spacing do not split consensus.
	a := opinion.New(role.Research, ev.ID, 1, opinion.Payload{Action: "Hold_Positions", Summary: "sit  tight"})
	b := opinion.New(role.SalesTrading, ev.ID, 1, opinion.Payload{Action: "hold_positions", Summary: "Sit Tight"})

	d, escalate := r.Resolve(ev, []opinion.Opinion{a, b})
	assert.False(t, escalate)
	assert.Equal(t, opinion.KindUnanimous, d.Kind)
	assert.Equal(t, role.Research, d.Owner) // primary owner of market updates
	require.NotNil(t, d.Payload)
}

func TestResolveFailuresDoNotBreakUnanimity(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	opinions := []opinion.Opinion{
		opinion.New(role.Research, ev.ID, 1, opinion.Payload{Action: "hold"}),
		opinion.NewFailure(role.SalesTrading, ev.ID, 1, "timeout"),
		opinion.New(role.RiskCompliance, ev.ID, 1, opinion.Payload{Action: "hold"}),
	}

	d, escalate := r.Resolve(ev, opinions)
	assert.False(t, escalate)
	assert.Equal(t, opinion.KindUnanimous, d.Kind)
}

func TestResolveComplianceVetoBeatsPriority(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	veto := opinion.New(role.RiskCompliance, ev.ID, 1, opinion.Payload{Action: "restrict_risk_taking"})
	veto.Blocking = true

	opinions := []opinion.Opinion{
		opinion.New(role.Research, ev.ID, 1, opinion.Payload{Action: "buy_the_dip"}),
		opinion.New(role.SalesTrading, ev.ID, 1, opinion.Payload{Action: "take_liquidity"}),
		veto,
	}

	d, escalate := r.Resolve(ev, opinions)
	assert.False(t, escalate)
	assert.Equal(t, opinion.KindVetoed, d.Kind)
	assert.Equal(t, role.RiskCompliance, d.Owner)
	assert.Equal(t, "restrict_risk_taking", d.Payload.Action)
}

func TestResolveNonBlockingComplianceDoesNotOutrankOwner(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	opinions := []opinion.Opinion{
		opinion.New(role.Research, ev.ID, 1, opinion.Payload{Action: "downgrade_outlook"}),
		opinion.New(role.RiskCompliance, ev.ID, 1, opinion.Payload{Action: "approve_with_monitoring"}),
	}

	// Without the veto, compliance sits with the other desks: the boosted
	// primary owner carries the decision.
	d, escalate := r.Resolve(ev, opinions)
	assert.False(t, escalate)
	assert.Equal(t, opinion.KindPriority, d.Kind)
	assert.Equal(t, role.Research, d.Owner)
	assert.Equal(t, "downgrade_outlook", d.Payload.Action)
}

func TestResolveNonComplianceBlockingDoesNotVeto(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	blocking := opinion.New(role.SalesTrading, ev.ID, 1, opinion.Payload{Action: "halt"})
	blocking.Blocking = true

	opinions := []opinion.Opinion{
		opinion.New(role.Research, ev.ID, 1, opinion.Payload{Action: "hold"}),
		blocking,
	}

	// The veto is a compliance power; other desks' blocking flags fall
	// through to priority scoring, where research wins as primary owner.
	d, escalate := r.Resolve(ev, opinions)
	assert.False(t, escalate)
	assert.Equal(t, opinion.KindPriority, d.Kind)
	assert.Equal(t, role.Research, d.Owner)
}

func TestResolvePrimaryOwnerBoostWins(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	opinions := []opinion.Opinion{
		opinion.New(role.SalesTrading, ev.ID, 1, opinion.Payload{Action: "take_liquidity"}),
		opinion.New(role.Research, ev.ID, 1, opinion.Payload{Action: "downgrade_outlook"}),
	}

	d, escalate := r.Resolve(ev, opinions)
	assert.False(t, escalate)
	assert.Equal(t, opinion.KindPriority, d.Kind)
	assert.Equal(t, role.Research, d.Owner)
	assert.Equal(t, "downgrade_outlook", d.Payload.Action)
}

func TestResolveTieEscalates(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	// Two non-owner desks at the same score with different payloads.
	opinions := []opinion.Opinion{
		opinion.New(role.SalesTrading, ev.ID, 1, opinion.Payload{Action: "take_liquidity"}),
		opinion.New(role.WealthManagement, ev.ID, 1, opinion.Payload{Action: "rebalance"}),
	}

	d, escalate := r.Resolve(ev, opinions)
	assert.True(t, escalate)
	assert.Equal(t, opinion.KindUnresolved, d.Kind)
	assert.True(t, d.Escalated)
}

func TestResolveTopScoreTieWithEqualPayloadsIsNotATie(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	opinions := []opinion.Opinion{
		opinion.New(role.SalesTrading, ev.ID, 1, opinion.Payload{Action: "hold"}),
		opinion.New(role.WealthManagement, ev.ID, 1, opinion.Payload{Action: "hold"}),
		opinion.New(role.AssetManagement, ev.ID, 1, opinion.Payload{Action: "liquidate"}),
	}

	// ST and WM share the top score but agree, so there is no conflict at
	// the top... except AM also sits at the same score with a different
	// payload, which is a real tie.
	_, escalate := r.Resolve(ev, opinions)
	assert.True(t, escalate)
}

func TestResolveEscalationAdoptsExecutive(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	exec := opinion.New(role.Executive, ev.ID, 1, opinion.Payload{Action: "take_liquidity"})
	d := r.ResolveEscalation(ev, 1, &exec)

	assert.Equal(t, opinion.KindEscalated, d.Kind)
	assert.Equal(t, role.Executive, d.Owner)
	assert.True(t, d.Escalated)
	assert.Equal(t, "take_liquidity", d.Payload.Action)
}

func TestResolveEscalationWithoutExecutiveIsUnresolved(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	d := r.ResolveEscalation(ev, 1, nil)
	assert.Equal(t, opinion.KindUnresolved, d.Kind)

	failed := opinion.NewFailure(role.Executive, ev.ID, 1, "timeout")
	d = r.ResolveEscalation(ev, 1, &failed)
	assert.Equal(t, opinion.KindUnresolved, d.Kind)
	assert.Contains(t, d.Rationale, "timeout")
}

func TestResolveDeterminism(t *testing.T) {
	r := New(DefaultConfig())
	ev := marketEvent()

	opinions := []opinion.Opinion{
		opinion.New(role.SalesTrading, ev.ID, 1, opinion.Payload{Action: "take_liquidity"}),
		opinion.New(role.Research, ev.ID, 1, opinion.Payload{Action: "downgrade_outlook"}),
		opinion.New(role.RiskCompliance, ev.ID, 1, opinion.Payload{Action: "approve_with_monitoring"}),
	}

	first, _ := r.Resolve(ev, opinions)
	for i := 0; i < 10; i++ {
		d, _ := r.Resolve(ev, opinions)
		assert.Equal(t, first.Kind, d.Kind)
		assert.Equal(t, first.Owner, d.Owner)
		assert.Equal(t, first.Payload.Canonical(), d.Payload.Canonical())
	}
}

func TestEscalationBodySkipsFailures(t *testing.T) {
	ev := marketEvent()

	opinions := []opinion.Opinion{
		opinion.New(role.SalesTrading, ev.ID, 1, opinion.Payload{Action: "take_liquidity"}),
		opinion.NewFailure(role.Research, ev.ID, 1, "timeout"),
	}

	body, data := EscalationBody(opinions)
	assert.Contains(t, body, "sales_trading")
	assert.NotContains(t, body, "research proposes")
	assert.Len(t, data, 1)
}

package opinion

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/domain/role"
)

func TestCanonicalNormalizesFormatting(t *testing.T) {
	a := Payload{Action: "  Take_Liquidity ", Summary: "Cross   the  spread"}
	b := Payload{Action: "take_liquidity", Summary: "cross the spread"}

	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.True(t, a.Equal(b))
}

func TestCanonicalSortsDetailKeys(t *testing.T) {
	a := Payload{Action: "hold", Details: map[string]string{"zeta": "1", "alpha": "2"}}
	b := Payload{Action: "hold", Details: map[string]string{"alpha": "2", "zeta": "1"}}

	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.Equal(t, "hold||alpha=2|zeta=1", a.Canonical())
}

func TestCanonicalDistinguishesContent(t *testing.T) {
	base := Payload{Action: "hold", Summary: "wait"}

	assert.False(t, base.Equal(Payload{Action: "sell", Summary: "wait"}))
	assert.False(t, base.Equal(Payload{Action: "hold", Summary: "wait longer"}))
	assert.False(t, base.Equal(Payload{Action: "hold", Summary: "wait", Details: map[string]string{"k": "v"}}))
}

func TestNewOpinionDefaults(t *testing.T) {
	eventID := uuid.New()
	op := New(role.Research, eventID, 3, Payload{Action: "downgrade_outlook"})

	assert.NotEqual(t, uuid.Nil, op.ID)
	assert.Equal(t, role.Research, op.Role)
	assert.Equal(t, eventID, op.EventID)
	assert.Equal(t, 3, op.Cycle)
	assert.Equal(t, 1.0, op.Confidence)
	assert.False(t, op.Failed)
	assert.False(t, op.Blocking)
}

func TestNewFailureCarriesReasonOnly(t *testing.T) {
	op := NewFailure(role.SalesTrading, uuid.New(), 2, "timeout after 30s")

	assert.True(t, op.Failed)
	assert.Equal(t, "timeout after 30s", op.FailReason)
	assert.Empty(t, op.Payload.Action)
	assert.Zero(t, op.Confidence)
}

func TestDecisionActionable(t *testing.T) {
	payload := &Payload{Action: "hold"}

	for _, kind := range []DecisionKind{KindUnanimous, KindVetoed, KindPriority, KindEscalated} {
		d := Decision{Kind: kind, Payload: payload}
		assert.True(t, d.Actionable(), "kind %s with payload", kind)

		d.Payload = nil
		assert.False(t, d.Actionable(), "kind %s without payload", kind)
	}

	for _, kind := range []DecisionKind{KindNoAction, KindUnresolved, KindAborted} {
		d := Decision{Kind: kind, Payload: payload}
		assert.False(t, d.Actionable(), "kind %s", kind)
	}
}

func TestDecisionDegraded(t *testing.T) {
	require.True(t, Decision{Kind: KindUnresolved}.Degraded())
	require.True(t, Decision{Kind: KindAborted}.Degraded())
	require.False(t, Decision{Kind: KindUnanimous}.Degraded())
	require.False(t, Decision{Kind: KindNoAction}.Degraded())
}

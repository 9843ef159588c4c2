package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
	"hermes/internal/domain/role"
	"hermes/internal/network"
)

// scripted builds a binding where the listed roles answer with a fixed
// payload and everyone else stays silent.
func scripted(answers map[role.Role]*Result) Binding {
	silent := DecideFn(func(_ context.Context, _ Request) (*Result, error) {
		return &Result{}, nil
	})
	return func(r role.Role) DecisionFunc {
		if res, ok := answers[r]; ok {
			resCopy := res
			return DecideFn(func(_ context.Context, _ Request) (*Result, error) {
				return resCopy, nil
			})
		}
		return silent
	}
}

func answer(action string) *Result {
	return &Result{Opinion: &OpinionDraft{
		Payload:    opinion.Payload{Action: action},
		Confidence: 0.8,
	}}
}

func newTestBroker(t *testing.T, cfg Config, bind Binding) *Broker {
	t.Helper()
	b, err := New(cfg, bind, nil)
	require.NoError(t, err)
	return b
}

func marketUpdate() *event.Event {
	ev := event.New(event.TypeMarketUpdate, "macro shift")
	ev.MarketUpdate = &event.MarketUpdateData{}
	return ev
}

func TestNewRequiresBindingForEveryRole(t *testing.T) {
	bind := func(r role.Role) DecisionFunc {
		if r == role.Research {
			return nil
		}
		return DecideFn(func(_ context.Context, _ Request) (*Result, error) { return &Result{}, nil })
	}
	_, err := New(Config{}, bind, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "research")
}

func TestRunCycleUnanimous(t *testing.T) {
	b := newTestBroker(t, Config{}, scripted(map[role.Role]*Result{
		role.SalesTrading:   answer("hold"),
		role.Research:       answer("hold"),
		role.RiskCompliance: answer("hold"),
	}))

	res := b.RunCycle(context.Background(), marketUpdate())

	assert.Equal(t, opinion.KindUnanimous, res.Decision.Kind)
	assert.Len(t, res.Opinions, 3)
	assert.Equal(t, 1, res.Decision.Cycle)
}

func TestRunCycleNoSubscribersYieldsNoAction(t *testing.T) {
	b := newTestBroker(t, Config{
		Subscriptions: network.SubscriptionTable{},
	}, scripted(nil))

	res := b.RunCycle(context.Background(), marketUpdate())

	assert.Equal(t, opinion.KindNoAction, res.Decision.Kind)
	assert.Empty(t, res.Opinions)
}

func TestRunCycleComplianceVeto(t *testing.T) {
	veto := &Result{Opinion: &OpinionDraft{
		Payload:  opinion.Payload{Action: "restrict_risk_taking"},
		Blocking: true,
	}}

	b := newTestBroker(t, Config{}, scripted(map[role.Role]*Result{
		role.SalesTrading:   answer("take_liquidity"),
		role.Research:       answer("buy_the_dip"),
		role.RiskCompliance: veto,
	}))

	res := b.RunCycle(context.Background(), marketUpdate())

	assert.Equal(t, opinion.KindVetoed, res.Decision.Kind)
	assert.Equal(t, role.RiskCompliance, res.Decision.Owner)
}

func TestRunCycleTimeoutBecomesFailureOpinion(t *testing.T) {
	stall := DecideFn(func(ctx context.Context, _ Request) (*Result, error) {
		select {
		case <-time.After(time.Minute):
		case <-ctx.Done():
		}
		return &Result{}, nil
	})

	bind := func(r role.Role) DecisionFunc {
		if r == role.Research {
			return stall
		}
		return DecideFn(func(_ context.Context, _ Request) (*Result, error) { return &Result{}, nil })
	}

	b := newTestBroker(t, Config{DecisionTimeout: 50 * time.Millisecond}, bind)
	res := b.RunCycle(context.Background(), marketUpdate())

	var failed *opinion.Opinion
	for i := range res.Opinions {
		if res.Opinions[i].Failed {
			failed = &res.Opinions[i]
		}
	}
	require.NotNil(t, failed, "expected a failure opinion from the stalled desk")
	assert.Equal(t, role.Research, failed.Role)
	assert.Contains(t, failed.FailReason, "timeout")
}

func TestRunCyclePanicBecomesFailureOpinion(t *testing.T) {
	boom := DecideFn(func(_ context.Context, _ Request) (*Result, error) {
		panic("nil map write")
	})
	bind := func(r role.Role) DecisionFunc {
		if r == role.Research {
			return boom
		}
		return DecideFn(func(_ context.Context, _ Request) (*Result, error) { return &Result{}, nil })
	}

	b := newTestBroker(t, Config{}, bind)
	res := b.RunCycle(context.Background(), marketUpdate())

	// The cycle completes; the panicking desk contributes a failure opinion.
	require.NotEqual(t, opinion.KindAborted, res.Decision.Kind)
	found := false
	for _, op := range res.Opinions {
		if op.Role == role.Research {
			assert.True(t, op.Failed)
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunCycleCancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newTestBroker(t, Config{}, scripted(map[role.Role]*Result{
		role.Research: answer("hold"),
	}))

	res := b.RunCycle(ctx, marketUpdate())
	assert.Equal(t, opinion.KindAborted, res.Decision.Kind)
	assert.Empty(t, res.Opinions)
}

func TestRunCycleEscalationToExecutive(t *testing.T) {
	// Two non-owner desks tie; the executive arbitrates.
	b := newTestBroker(t, Config{
		Subscriptions: network.SubscriptionTable{
			event.TypeMarketUpdate: {role.SalesTrading, role.WealthManagement},
		},
	}, scripted(map[role.Role]*Result{
		role.SalesTrading:     answer("take_liquidity"),
		role.WealthManagement: answer("rebalance"),
		role.Executive:        answer("take_liquidity"),
	}))

	res := b.RunCycle(context.Background(), marketUpdate())

	assert.Equal(t, opinion.KindEscalated, res.Decision.Kind)
	assert.Equal(t, role.Executive, res.Decision.Owner)
	assert.True(t, res.Decision.Escalated)

	// The executive's opinion is part of the record.
	var sawExec bool
	for _, op := range res.Opinions {
		if op.Role == role.Executive {
			sawExec = true
		}
	}
	assert.True(t, sawExec)
}

func TestRunCycleInternalFollowUpsPropagate(t *testing.T) {
	// Research forwards a note to sales & trading, which then opines.
	research := &Result{
		Opinion: &OpinionDraft{Payload: opinion.Payload{Action: "downgrade_outlook"}},
		Outbound: []network.Outbound{
			{To: role.SalesTrading, Body: "cut exposure", Data: map[string]string{"stance": "bearish"}},
		},
	}

	st := DecideFn(func(_ context.Context, req Request) (*Result, error) {
		if req.Message.Kind == network.KindInternal {
			return answer("widen_quotes_reduce_exposure"), nil
		}
		return &Result{}, nil
	})

	bind := func(r role.Role) DecisionFunc {
		switch r {
		case role.Research:
			return DecideFn(func(_ context.Context, _ Request) (*Result, error) { return research, nil })
		case role.SalesTrading:
			return st
		}
		return DecideFn(func(_ context.Context, _ Request) (*Result, error) { return &Result{}, nil })
	}

	b := newTestBroker(t, Config{}, bind)
	res := b.RunCycle(context.Background(), marketUpdate())

	roles := make([]role.Role, 0, len(res.Opinions))
	for _, op := range res.Opinions {
		roles = append(roles, op.Role)
	}
	assert.Contains(t, roles, role.Research)
	assert.Contains(t, roles, role.SalesTrading)
}

func TestStatePersistsAcrossCyclesAndResets(t *testing.T) {
	counting := DecideFn(func(_ context.Context, req Request) (*Result, error) {
		seen, _ := req.State["seen"].(int)
		return &Result{StateDelta: map[string]interface{}{"seen": seen + 1}}, nil
	})
	bind := func(r role.Role) DecisionFunc {
		if r == role.Research {
			return counting
		}
		return DecideFn(func(_ context.Context, _ Request) (*Result, error) { return &Result{}, nil })
	}

	b := newTestBroker(t, Config{}, bind)
	b.RunCycle(context.Background(), marketUpdate())
	b.RunCycle(context.Background(), marketUpdate())

	agent := b.Agent(role.Research)
	assert.Equal(t, 2, agent.StateSnapshot()["seen"])

	agent.ResetState()
	assert.Empty(t, agent.StateSnapshot())
}

func TestRunCycleDeterministicReplay(t *testing.T) {
	build := func() *Broker {
		return newTestBroker(t, Config{}, scripted(map[role.Role]*Result{
			role.SalesTrading:   answer("take_liquidity"),
			role.Research:       answer("downgrade_outlook"),
			role.RiskCompliance: answer("approve_with_monitoring"),
		}))
	}

	ev := marketUpdate()

	first := build().RunCycle(context.Background(), ev)
	for i := 0; i < 5; i++ {
		replay := build().RunCycle(context.Background(), ev)

		require.Len(t, replay.Opinions, len(first.Opinions))
		for j := range first.Opinions {
			assert.Equal(t, first.Opinions[j].Role, replay.Opinions[j].Role)
			assert.Equal(t, first.Opinions[j].Payload.Canonical(), replay.Opinions[j].Payload.Canonical())
		}
		assert.Equal(t, first.Decision.Kind, replay.Decision.Kind)
		assert.Equal(t, first.Decision.Owner, replay.Decision.Owner)
	}
}

func TestStatusReport(t *testing.T) {
	b := newTestBroker(t, Config{Name: "Hermes Securities"}, scripted(map[role.Role]*Result{
		role.Research: answer("hold"),
	}))

	b.RunCycle(context.Background(), marketUpdate())

	status := b.Status()
	assert.Equal(t, "Hermes Securities", status.Name)
	assert.Equal(t, 1, status.Cycles)
	assert.Len(t, status.Agents, len(role.All()))
	assert.Greater(t, status.TotalDelivered, 0)
}

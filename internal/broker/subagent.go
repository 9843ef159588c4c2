package broker

import (
	"context"
	"fmt"
	"time"

	"hermes/internal/domain/opinion"
	"hermes/internal/domain/role"
	"hermes/internal/metrics"
	"hermes/internal/network"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// SubAgent is one department actor: a role tag, role-scoped state and an
// injected decision function. Sub-agents live for the whole run; their state
// accumulates across cycles.
type SubAgent struct {
	role    role.Role
	name    string
	profile role.Profile
	decide  DecisionFunc
	timeout time.Duration

	state State

	// Counters for status reporting.
	processed int
	opinions  int
	failures  int

	log *logger.Logger
}

// NewSubAgent creates a department actor.
func NewSubAgent(profile role.Profile, decide DecisionFunc, timeout time.Duration) *SubAgent {
	return &SubAgent{
		role:    profile.Role,
		name:    profile.DisplayName,
		profile: profile,
		decide:  decide,
		timeout: timeout,
		state:   make(State),
		log:     logger.Get().With("component", "sub_agent", "role", profile.Role.String()),
	}
}

// Role returns the department this agent represents.
func (a *SubAgent) Role() role.Role {
	return a.role
}

// Receive processes one delivered message: it invokes the decision function
// with the full accumulated state, applies the resulting state delta, and
// returns the terminal opinion (if any) plus internal follow-ups. A faulted
// or timed-out decision function yields a DecisionFailure opinion, so the
// cycle always completes.
//
// The broker serializes calls per agent, which is what gives each department
// sequential consistency over its own state.
func (a *SubAgent) Receive(ctx context.Context, msg *network.Message) (*opinion.Opinion, []network.Outbound) {
	a.processed++
	start := time.Now()

	result, err := a.callDecision(ctx, msg)
	latency := time.Since(start)

	if err != nil {
		a.failures++
		status := "error"
		if errors.Is(err, errors.ErrDecisionTimeout) {
			status = "timeout"
		}
		metrics.RecordDecisionCall(a.role.String(), latency, status)
		a.log.Warnf("Decision failed for event %s: %v", msg.Event.ID, err)

		failure := opinion.NewFailure(a.role, msg.Event.ID, msg.Cycle, err.Error())
		return &failure, nil
	}

	metrics.RecordDecisionCall(a.role.String(), latency, "success")

	// State updates become visible to this agent's subsequent calls only.
	for k, v := range result.StateDelta {
		a.state[k] = v
	}

	var op *opinion.Opinion
	if result.Opinion != nil {
		built := opinion.New(a.role, msg.Event.ID, msg.Cycle, result.Opinion.Payload)
		if result.Opinion.Confidence > 0 {
			built.Confidence = result.Opinion.Confidence
		}
		built.Blocking = result.Opinion.Blocking
		op = &built
		a.opinions++
	}

	return op, result.Outbound
}

// callDecision enforces the decision timeout. The call runs in its own
// goroutine so a stalled external collaborator cannot block the cycle; on
// timeout the goroutine is abandoned and its eventual result discarded.
func (a *SubAgent) callDecision(ctx context.Context, msg *network.Message) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.Wrapf(errors.ErrDecisionFailed, "panic: %v", r)}
			}
		}()
		// The decision function sees a snapshot: an abandoned timed-out call
		// must never observe state applied by later calls.
		result, err := a.decide.Decide(ctx, Request{
			Role:    a.role,
			Profile: a.profile,
			State:   a.state.Clone(),
			Message: msg,
		})
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.Wrapf(errors.ErrDecisionTimeout, "after %s", a.timeout)
	case out := <-done:
		if out.err != nil {
			return nil, errors.Wrap(errors.ErrDecisionFailed, out.err.Error())
		}
		if out.result == nil {
			out.result = &Result{}
		}
		return out.result, nil
	}
}

// StateSnapshot returns a copy of the accumulated state.
func (a *SubAgent) StateSnapshot() State {
	return a.state.Clone()
}

// ResetState clears the accumulated state, as if the agent were freshly
// constructed.
func (a *SubAgent) ResetState() {
	a.state = make(State)
}

// AgentStatus is one department's status report.
type AgentStatus struct {
	Role      role.Role `json:"role"`
	Name      string    `json:"name"`
	Processed int       `json:"processed"`
	Opinions  int       `json:"opinions"`
	Failures  int       `json:"failures"`
	StateKeys int       `json:"state_keys"`
}

// Status reports the agent's counters.
func (a *SubAgent) Status() AgentStatus {
	return AgentStatus{
		Role:      a.role,
		Name:      a.name,
		Processed: a.processed,
		Opinions:  a.opinions,
		Failures:  a.failures,
		StateKeys: len(a.state),
	}
}

// String implements fmt.Stringer.
func (a *SubAgent) String() string {
	return fmt.Sprintf("%s (%s)", a.name, a.role)
}

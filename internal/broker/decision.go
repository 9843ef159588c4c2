package broker

import (
	"context"

	"hermes/internal/domain/opinion"
	"hermes/internal/domain/role"
	"hermes/internal/network"
)

// State is a sub-agent's accumulated internal knowledge. Opaque to the
// engine: only the agent's own decision function reads or writes it.
type State map[string]interface{}

// Clone returns a shallow copy for snapshots and replay tests.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Request is one decision-function invocation: the department's identity,
// its full accumulated state, and the incoming message.
type Request struct {
	Role    role.Role
	Profile role.Profile
	State   State
	Message *network.Message
}

// OpinionDraft is a decision function's proposed resolution. The sub-agent
// stamps identity, event and cycle onto it.
type OpinionDraft struct {
	Payload    opinion.Payload
	Confidence float64
	Blocking   bool
}

// Result is what a decision function produces for one message: optionally a
// terminal opinion, zero or more internal follow-ups, and state updates to
// apply after the call.
type Result struct {
	Opinion    *OpinionDraft
	Outbound   []network.Outbound
	StateDelta map[string]interface{}
}

// DecisionFunc is the injected capability behind every department: a
// language model binding, a rule engine, or a scripted fake in tests. It
// is never called concurrently for the same sub-agent.
type DecisionFunc interface {
	Decide(ctx context.Context, req Request) (*Result, error)
}

// DecideFn adapts a plain function to DecisionFunc.
type DecideFn func(ctx context.Context, req Request) (*Result, error)

// Decide implements DecisionFunc.
func (f DecideFn) Decide(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Binding selects the decision function for each department at construction
// time.
type Binding func(r role.Role) DecisionFunc

package opinion

import (
	"github.com/google/uuid"

	"hermes/internal/domain/role"
)

// DecisionKind classifies how a brokerage-level decision was reached.
type DecisionKind string

const (
	// KindUnanimous means every opinion carried the same payload.
	KindUnanimous DecisionKind = "unanimous"

	// KindVetoed means a blocking risk_compliance opinion won unconditionally.
	KindVetoed DecisionKind = "vetoed"

	// KindPriority means the highest-priority opinion was selected.
	KindPriority DecisionKind = "priority"

	// KindEscalated means an executive arbitration settled a priority tie.
	KindEscalated DecisionKind = "escalated"

	// KindUnresolved means escalation produced no executive opinion.
	// Terminal and explicit: the engine never silently picks an arbitrary
	// opinion.
	KindUnresolved DecisionKind = "unresolved"

	// KindNoAction means no department was subscribed to the event.
	KindNoAction DecisionKind = "no_action"

	// KindAborted means the cycle was cancelled between hop levels.
	KindAborted DecisionKind = "aborted"
)

// Decision is the brokerage-level output for one event.
type Decision struct {
	EventID uuid.UUID    `json:"event_id"`
	Cycle   int          `json:"cycle"`
	Kind    DecisionKind `json:"kind"`

	// Owner is the role whose opinion carried the decision. For unanimous
	// decisions it is the event's primary owner; empty for no_action,
	// unresolved and aborted outcomes.
	Owner role.Role `json:"owner,omitempty"`

	Payload   *Payload `json:"payload,omitempty"`
	Rationale string   `json:"rationale,omitempty"`

	// Escalated records that an escalation round ran, whatever its outcome.
	Escalated bool `json:"escalated,omitempty"`
}

// Actionable reports whether the decision carries a payload to act on.
func (d Decision) Actionable() bool {
	switch d.Kind {
	case KindUnanimous, KindVetoed, KindPriority, KindEscalated:
		return d.Payload != nil
	}
	return false
}

// Degraded reports whether the decision is one of the non-fatal failure
// outcomes a caller should surface.
func (d Decision) Degraded() bool {
	return d.Kind == KindUnresolved || d.Kind == KindAborted
}

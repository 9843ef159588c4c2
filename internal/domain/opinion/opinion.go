package opinion

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"hermes/internal/domain/role"
)

// Payload is a department's proposed decision content. Two payloads are the
// same decision when their canonical forms match.
type Payload struct {
	Action  string            `json:"action"`
	Summary string            `json:"summary,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Canonical returns a normalized string form used for payload equality:
// whitespace-trimmed, case-folded, details in sorted key order.
func (p Payload) Canonical() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(p.Action)))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.Join(strings.Fields(p.Summary), " ")))

	if len(p.Details) > 0 {
		keys := make([]string, 0, len(p.Details))
		for k := range p.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte('|')
			b.WriteString(strings.ToLower(k))
			b.WriteByte('=')
			b.WriteString(strings.ToLower(strings.TrimSpace(p.Details[k])))
		}
	}
	return b.String()
}

// Equal reports whether two payloads describe the same decision.
func (p Payload) Equal(other Payload) bool {
	return p.Canonical() == other.Canonical()
}

// Opinion is one department's proposed resolution for an event.
type Opinion struct {
	ID         uuid.UUID `json:"id"`
	Role       role.Role `json:"role"`
	EventID    uuid.UUID `json:"event_id"`
	Cycle      int       `json:"cycle"`
	Confidence float64   `json:"confidence"`

	// Blocking marks a compliance veto: if set by risk_compliance the
	// opinion wins unconditionally.
	Blocking bool `json:"blocking,omitempty"`

	// Failed marks a DecisionFailure: the department's decision function
	// faulted or timed out. Failed opinions carry no usable payload.
	Failed     bool   `json:"failed,omitempty"`
	FailReason string `json:"fail_reason,omitempty"`

	Payload Payload `json:"payload"`
}

// New creates an opinion from a department for an event.
func New(r role.Role, eventID uuid.UUID, cycle int, payload Payload) Opinion {
	return Opinion{
		ID:         uuid.New(),
		Role:       r,
		EventID:    eventID,
		Cycle:      cycle,
		Confidence: 1.0,
		Payload:    payload,
	}
}

// NewFailure creates a DecisionFailure opinion. The cycle still completes;
// the failure is visible in the trace instead of aborting the run.
func NewFailure(r role.Role, eventID uuid.UUID, cycle int, reason string) Opinion {
	return Opinion{
		ID:         uuid.New(),
		Role:       r,
		EventID:    eventID,
		Cycle:      cycle,
		Failed:     true,
		FailReason: reason,
	}
}

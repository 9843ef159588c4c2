package resolver

import (
	"fmt"
	"strings"

	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
	"hermes/internal/domain/role"
	"hermes/pkg/logger"
)

// Config carries the role-priority table. The exact ordering is deliberately
// configurable; only the executive's supremacy and the compliance veto are
// structural.
type Config struct {
	Priorities        map[role.Role]int
	PrimaryOwnerBoost int
}

// DefaultConfig returns the standard priority table: executive above the
// event's primary owner above everyone else. The boost is what puts the
// owner ahead of the other departments, compliance included; compliance
// outranks the owner only through the blocking veto, never on priority.
func DefaultConfig() Config {
	priorities := make(map[role.Role]int)
	for _, r := range role.All() {
		priorities[r] = 50
	}
	priorities[role.Executive] = 100

	return Config{
		Priorities:        priorities,
		PrimaryOwnerBoost: 25,
	}
}

// Resolver reconciles disagreeing department opinions into one brokerage
// decision. The policy is deterministic and total over its inputs: identical
// opinion sets always produce identical decisions.
type Resolver struct {
	cfg Config
	log *logger.Logger
}

// New creates a resolver with the given priority table.
func New(cfg Config) *Resolver {
	if cfg.Priorities == nil {
		cfg = DefaultConfig()
	}
	return &Resolver{
		cfg: cfg,
		log: logger.Get().With("component", "conflict_resolver"),
	}
}

// Resolve applies the resolution policy in order:
//
//  1. no opinions at all -> NoAction
//  2. unanimous payloads -> that payload, no conflict
//  3. blocking risk_compliance opinion -> compliance veto, wins unconditionally
//  4. highest priority score wins; a tie at the top -> escalate
//
// escalate=true means the caller must run exactly one escalation round to the
// executive desk and then call ResolveEscalation with its outcome.
func (r *Resolver) Resolve(ev *event.Event, opinions []opinion.Opinion) (decision opinion.Decision, escalate bool) {
	if len(opinions) == 0 {
		return opinion.Decision{
			EventID:   ev.ID,
			Kind:      opinion.KindNoAction,
			Rationale: "no department subscribed to this event",
		}, false
	}

	usable := make([]opinion.Opinion, 0, len(opinions))
	for _, op := range opinions {
		if !op.Failed {
			usable = append(usable, op)
		}
	}

	// Every subscribed department faulted. Distinct from NoAction: there
	// were subscribers, they just produced nothing usable.
	if len(usable) == 0 {
		return opinion.Decision{
			EventID:   ev.ID,
			Cycle:     opinions[0].Cycle,
			Kind:      opinion.KindUnresolved,
			Rationale: fmt.Sprintf("all %d subscribed departments failed to produce an opinion", len(opinions)),
		}, false
	}

	cycle := usable[0].Cycle

	// Rule 1: unanimity.
	if unanimous(usable) {
		win := usable[0]
		payload := win.Payload
		return opinion.Decision{
			EventID:   ev.ID,
			Cycle:     cycle,
			Kind:      opinion.KindUnanimous,
			Owner:     ev.PrimaryOwner(),
			Payload:   &payload,
			Rationale: fmt.Sprintf("%d departments agree", len(usable)),
		}, false
	}

	// Rule 2: compliance veto.
	for _, op := range usable {
		if op.Role == role.RiskCompliance && op.Blocking {
			payload := op.Payload
			r.log.Infof("Compliance veto on event %s: %s", ev.ID, payload.Action)
			return opinion.Decision{
				EventID:   ev.ID,
				Cycle:     cycle,
				Kind:      opinion.KindVetoed,
				Owner:     role.RiskCompliance,
				Payload:   &payload,
				Rationale: "blocking opinion from risk & compliance",
			}, false
		}
	}

	// Rule 3: priority scoring.
	owner := ev.PrimaryOwner()
	best, tied := r.selectByPriority(usable, owner)

	if !tied {
		payload := best.Payload
		return opinion.Decision{
			EventID: ev.ID,
			Cycle:   cycle,
			Kind:    opinion.KindPriority,
			Owner:   best.Role,
			Payload: &payload,
			Rationale: fmt.Sprintf("highest priority opinion (%s, score %d)",
				best.Role, r.score(best.Role, owner)),
		}, false
	}

	r.log.Infof("Priority tie on event %s, escalating to executive", ev.ID)
	return opinion.Decision{
		EventID:   ev.ID,
		Cycle:     cycle,
		Kind:      opinion.KindUnresolved,
		Escalated: true,
		Rationale: "priority tie pending executive arbitration",
	}, true
}

// ResolveEscalation settles an escalated event with the executive's opinion
// from the extra delivery round. A nil or failed executive opinion yields
// Unresolved.
func (r *Resolver) ResolveEscalation(ev *event.Event, cycle int, exec *opinion.Opinion) opinion.Decision {
	if exec == nil || exec.Failed {
		reason := "executive produced no opinion within the escalation round"
		if exec != nil && exec.FailReason != "" {
			reason = "executive decision failed: " + exec.FailReason
		}
		return opinion.Decision{
			EventID:   ev.ID,
			Cycle:     cycle,
			Kind:      opinion.KindUnresolved,
			Escalated: true,
			Rationale: reason,
		}
	}

	payload := exec.Payload
	return opinion.Decision{
		EventID:   ev.ID,
		Cycle:     cycle,
		Kind:      opinion.KindEscalated,
		Owner:     role.Executive,
		Payload:   &payload,
		Escalated: true,
		Rationale: "executive arbitration after priority tie",
	}
}

// EscalationBody summarizes the conflicting opinions for the executive desk.
func EscalationBody(opinions []opinion.Opinion) (string, map[string]string) {
	var lines []string
	data := make(map[string]string, len(opinions))
	for _, op := range opinions {
		if op.Failed {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s proposes %s", op.Role, op.Payload.Action))
		data[op.Role.String()] = op.Payload.Canonical()
	}
	return "conflicting department opinions require arbitration: " + strings.Join(lines, "; "), data
}

func unanimous(opinions []opinion.Opinion) bool {
	first := opinions[0].Payload.Canonical()
	for _, op := range opinions[1:] {
		if op.Payload.Canonical() != first {
			return false
		}
	}
	return true
}

// selectByPriority returns the opinion with the highest score. tied is true
// when another opinion shares the top score with a different payload; equal
// payloads at the top are not a conflict.
func (r *Resolver) selectByPriority(opinions []opinion.Opinion, owner role.Role) (best opinion.Opinion, tied bool) {
	bestScore := -1
	for _, op := range opinions {
		s := r.score(op.Role, owner)
		switch {
		case s > bestScore:
			best, bestScore, tied = op, s, false
		case s == bestScore && !op.Payload.Equal(best.Payload):
			tied = true
		}
	}
	return best, tied
}

func (r *Resolver) score(of role.Role, owner role.Role) int {
	s := r.cfg.Priorities[of]
	if of == owner {
		s += r.cfg.PrimaryOwnerBoost
	}
	return s
}

package network

import (
	"github.com/google/uuid"

	"hermes/internal/domain/event"
	"hermes/internal/domain/role"
)

// MessageKind distinguishes how a message entered the network.
type MessageKind string

const (
	// KindEvent is the hop-0 translation of an external event.
	KindEvent MessageKind = "event"

	// KindInternal is a department-to-department follow-up.
	KindInternal MessageKind = "internal"

	// KindEscalation is the forced hand-off of a tied decision to the
	// executive committee.
	KindEscalation MessageKind = "escalation"
)

// Message is one unit of internal delivery. Created by its sender, handed to
// the network, which owns delivery state from then on.
type Message struct {
	ID   uuid.UUID
	Kind MessageKind

	// From is empty for hop-0 event messages: those originate outside the
	// hierarchy, not from any desk.
	From role.Role
	To   role.Role

	// Hop is the propagation depth from the originating event, 0-based.
	Hop   int
	Cycle int

	// Event is the originating external event; always set.
	Event *event.Event

	// Body and Data carry free-text and structured content for internal
	// follow-ups and escalations.
	Body string
	Data map[string]string
}

// Outbound is a sub-agent's request to send a follow-up. The network expands
// it into concrete messages according to the topology; broadcast fans out to
// every role one hop away from the sender.
type Outbound struct {
	To        role.Role
	Broadcast bool
	Body      string
	Data      map[string]string
}

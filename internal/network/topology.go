package network

import (
	"hermes/internal/domain/role"
	"hermes/pkg/errors"
)

// Edge is a directed communication channel between two departments.
type Edge struct {
	From role.Role
	To   role.Role
}

// Topology is the directed graph of allowed department-to-department
// channels. It is fixed for a run and read-only after construction, so it is
// shared freely across concurrent sub-agent calls. Peer edges may form
// cycles; termination comes from the hop ceiling, not from the graph shape.
type Topology struct {
	edges map[role.Role]map[role.Role]bool
}

// NewTopology validates the edge list and builds the graph. Self-edges and
// unknown roles are configuration errors.
func NewTopology(edges []Edge) (*Topology, error) {
	t := &Topology{edges: make(map[role.Role]map[role.Role]bool)}

	for _, e := range edges {
		if !e.From.Valid() || !e.To.Valid() {
			return nil, errors.Wrapf(errors.ErrMalformedTopology, "edge %s -> %s", e.From, e.To)
		}
		if e.From == e.To {
			return nil, errors.Wrapf(errors.ErrMalformedTopology, "self edge on %s", e.From)
		}
		if t.edges[e.From] == nil {
			t.edges[e.From] = make(map[role.Role]bool)
		}
		t.edges[e.From][e.To] = true
	}

	return t, nil
}

// DefaultTopology mirrors the standard brokerage hierarchy: the executive
// committee reaches every desk, risk & compliance reaches every business
// desk, research feeds the desks it covers, and peer edges connect desks
// that work mandates together.
func DefaultTopology() *Topology {
	var edges []Edge

	both := func(a, b role.Role) {
		edges = append(edges, Edge{From: a, To: b}, Edge{From: b, To: a})
	}

	for _, r := range role.All() {
		if r != role.Executive {
			both(role.Executive, r)
		}
	}
	for _, r := range []role.Role{
		role.InvestmentBanking, role.SalesTrading, role.WealthManagement, role.AssetManagement, role.Research,
	} {
		both(role.RiskCompliance, r)
	}
	for _, r := range []role.Role{role.SalesTrading, role.AssetManagement, role.WealthManagement} {
		both(role.Research, r)
	}
	both(role.InvestmentBanking, role.SalesTrading)
	both(role.InvestmentBanking, role.Research)
	both(role.WealthManagement, role.AssetManagement)

	t, err := NewTopology(edges)
	if err != nil {
		// Unreachable: the built-in edge list only uses valid roles.
		panic(err)
	}
	return t
}

// CanSend reports whether a direct channel exists from one role to another.
func (t *Topology) CanSend(from, to role.Role) bool {
	return t.edges[from][to]
}

// Neighbors returns every role reachable in one hop from r, in fixed roster
// order for deterministic broadcast fan-out.
func (t *Topology) Neighbors(r role.Role) []role.Role {
	out := make([]role.Role, 0, len(t.edges[r]))
	for _, candidate := range role.All() {
		if t.edges[r][candidate] {
			out = append(out, candidate)
		}
	}
	return out
}

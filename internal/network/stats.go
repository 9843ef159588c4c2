package network

import (
	"sync"

	"hermes/internal/domain/role"
)

// Stats accounts for communication across the run: per-edge delivery counts
// and per-role traffic. Snapshot data only; nothing routes through it.
type Stats struct {
	mu       sync.Mutex
	edges    map[Edge]int
	inbound  map[role.Role]int
	outbound map[role.Role]int
}

// NewStats creates empty accounting.
func NewStats() *Stats {
	return &Stats{
		edges:    make(map[Edge]int),
		inbound:  make(map[role.Role]int),
		outbound: make(map[role.Role]int),
	}
}

// RecordDelivery counts one internal delivery along an edge.
func (s *Stats) RecordDelivery(from, to role.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[Edge{From: from, To: to}]++
	s.outbound[from]++
	s.inbound[to]++
}

// RecordInbound counts one externally originated delivery to a role.
func (s *Stats) RecordInbound(to role.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound[to]++
}

// RoleStats is one department's traffic summary.
type RoleStats struct {
	Role     role.Role `json:"role"`
	Inbound  int       `json:"inbound"`
	Outbound int       `json:"outbound"`
}

// Summary returns per-role traffic in fixed roster order plus the total
// number of recorded deliveries.
func (s *Stats) Summary() (perRole []RoleStats, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range role.All() {
		perRole = append(perRole, RoleStats{
			Role:     r,
			Inbound:  s.inbound[r],
			Outbound: s.outbound[r],
		})
		total += s.inbound[r]
	}
	return perRole, total
}

// EdgeCount returns how many deliveries crossed a specific edge.
func (s *Stats) EdgeCount(from, to role.Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edges[Edge{From: from, To: to}]
}

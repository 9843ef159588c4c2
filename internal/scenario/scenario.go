// Package scenario runs scripted event sequences through the broker and
// records the full coordination trace for inspection and replay.
package scenario

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"hermes/internal/domain/event"
	"hermes/pkg/errors"
)

// Scenario is a named, ordered sequence of external events. Each simulation
// cycle replays the full sequence in order.
type Scenario struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Events      []event.Event `json:"events"`
}

// Validate rejects scenarios the runner cannot execute. A bad scenario file
// is a configuration fault and aborts the run before any cycle starts.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.Wrap(errors.ErrInvalidScenario, "scenario name is required")
	}
	if len(s.Events) == 0 {
		return errors.Wrapf(errors.ErrInvalidScenario, "scenario %q has no events", s.Name)
	}
	seen := make(map[uuid.UUID]struct{}, len(s.Events))
	for i := range s.Events {
		ev := &s.Events[i]
		if err := ev.Validate(); err != nil {
			return errors.Wrapf(err, "scenario %q event %d", s.Name, i)
		}
		if _, dup := seen[ev.ID]; dup {
			return errors.Wrapf(errors.ErrInvalidScenario, "scenario %q has duplicate event id %s", s.Name, ev.ID)
		}
		seen[ev.ID] = struct{}{}
	}
	return nil
}

// LoadFile reads and validates a scenario from a JSON file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", path)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidScenario, "parse %s: %v", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Sample returns the built-in demonstration scenario: a client trading
// request followed by a broad market update.
func Sample() *Scenario {
	return &Scenario{
		Name:        "sample",
		Description: "Client IPO mandate followed by a tech sector selloff",
		Events: []event.Event{
			*event.SampleClientRequest(),
			*event.SampleMarketUpdate(),
		},
	}
}

package errors

import (
	"errors"
	"fmt"
)

// Configuration errors. These are the only fatal errors in the system:
// they abort a run before any cycle executes.

var (
	// ErrUnknownRole indicates a role name outside the closed department set
	ErrUnknownRole = errors.New("unknown role")

	// ErrMalformedTopology indicates an invalid topology edge set
	ErrMalformedTopology = errors.New("malformed topology")

	// ErrUnknownEventType indicates an event type not recognized by the subscription table
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidConfig indicates invalid configuration parameters
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidScenario indicates a scenario file that cannot be loaded
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Runtime errors. Captured into the trace, never raised out of a cycle.

var (
	// ErrDecisionTimeout indicates a decision function exceeded its deadline
	ErrDecisionTimeout = errors.New("decision function timeout")

	// ErrDecisionFailed indicates a decision function returned a fault
	ErrDecisionFailed = errors.New("decision function failed")
)

// Infrastructure errors.

var (
	// ErrGatewayClosed indicates the external gateway has been shut down
	ErrGatewayClosed = errors.New("gateway closed")

	// ErrNoEvent indicates the gateway has no event available to pull
	ErrNoEvent = errors.New("no event available")

	// ErrRateLimited indicates an AI provider call was throttled
	ErrRateLimited = errors.New("rate limited")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)

// MultiError collects errors from independent sub-agent deliveries
// so a failing department never masks the others.
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

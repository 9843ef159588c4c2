// Package gateway is the contract between the coordination engine and the
// outside world. The engine pushes consolidated decisions out and pulls
// external events in; everything behind the interface (Kafka, websocket,
// in-process loopback) is an implementation detail.
package gateway

import (
	"context"

	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
)

// Gateway connects the broker to an external system.
//
// Push delivers a consolidated decision. Pull returns the next external
// event, or errors.ErrNoEvent when none is available. Both return
// errors.ErrGatewayClosed after Close.
type Gateway interface {
	Push(ctx context.Context, d opinion.Decision) error
	Pull(ctx context.Context) (*event.Event, error)
	Close() error
}

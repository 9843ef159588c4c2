package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/reconnect"
)

const wsWriteTimeout = 10 * time.Second

// WebsocketGateway exchanges events and decisions with a live upstream over a
// single websocket. Inbound frames are JSON events; decisions are written back
// as JSON. A background reader keeps the connection alive and redials with
// backoff when it drops.
type WebsocketGateway struct {
	url       string
	dialer    *websocket.Dialer
	reconnect *reconnect.Manager
	log       *logger.Logger

	events chan *event.Event

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWebsocket dials the upstream and starts the read loop. The initial dial
// must succeed; later drops are handled by the reconnect manager.
func NewWebsocket(url string) (*WebsocketGateway, error) {
	log := logger.Get().With("component", "websocket_gateway", "url", url)

	g := &WebsocketGateway{
		url:       url,
		dialer:    websocket.DefaultDialer,
		reconnect: reconnect.NewManager(reconnect.Config{}, log),
		log:       log,
		events:    make(chan *event.Event, 64),
		done:      make(chan struct{}),
	}

	conn, _, err := g.dialer.Dial(url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	g.conn = conn
	g.reconnect.RecordSuccess()

	g.wg.Add(1)
	go g.readLoop()

	return g, nil
}

// Push writes a consolidated decision frame to the upstream.
func (g *WebsocketGateway) Push(ctx context.Context, d opinion.Decision) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		metrics.GatewayPushes.WithLabelValues("websocket", "error").Inc()
		return errors.ErrGatewayClosed
	}
	if g.conn == nil {
		metrics.GatewayPushes.WithLabelValues("websocket", "error").Inc()
		return errors.New("websocket disconnected")
	}

	data, err := json.Marshal(d)
	if err != nil {
		metrics.GatewayPushes.WithLabelValues("websocket", "error").Inc()
		return errors.Wrap(err, "marshal decision")
	}

	deadline := time.Now().Add(wsWriteTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = g.conn.SetWriteDeadline(deadline)

	if err := g.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		metrics.GatewayPushes.WithLabelValues("websocket", "error").Inc()
		return errors.Wrap(err, "write decision")
	}

	metrics.GatewayPushes.WithLabelValues("websocket", "success").Inc()
	return nil
}

// Pull returns the next buffered event, or ErrNoEvent when the reader has
// nothing queued.
func (g *WebsocketGateway) Pull(ctx context.Context) (*event.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev, ok := <-g.events:
		if !ok {
			return nil, errors.ErrGatewayClosed
		}
		metrics.GatewayPulls.WithLabelValues("websocket").Inc()
		return ev, nil
	default:
		g.mu.Lock()
		closed := g.closed
		g.mu.Unlock()
		if closed {
			return nil, errors.ErrGatewayClosed
		}
		return nil, errors.ErrNoEvent
	}
}

// Close stops the read loop and closes the connection.
func (g *WebsocketGateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	close(g.done)
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	g.wg.Wait()
	close(g.events)
	return err
}

// readLoop reads event frames until Close, redialing on connection loss.
func (g *WebsocketGateway) readLoop() {
	defer g.wg.Done()

	for {
		select {
		case <-g.done:
			return
		default:
		}

		g.mu.Lock()
		conn := g.conn
		g.mu.Unlock()

		if conn == nil {
			if !g.redial() {
				return
			}
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-g.done:
				return
			default:
			}
			g.log.Warnf("Read failed, reconnecting: %v", err)
			g.mu.Lock()
			g.conn = nil
			g.mu.Unlock()
			_ = conn.Close()
			continue
		}

		var ev event.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			g.log.Warnf("Skipping malformed event frame: %v", err)
			continue
		}
		if err := ev.Validate(); err != nil {
			g.log.Warnf("Skipping invalid event %s: %v", ev.ID, err)
			continue
		}

		select {
		case g.events <- &ev:
		case <-g.done:
			return
		}
	}
}

// redial reconnects with backoff. Returns false when the gateway is closing
// or the circuit stays open.
func (g *WebsocketGateway) redial() bool {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-g.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-g.done:
			return false
		default:
		}

		err := g.reconnect.Run(ctx, func(ctx context.Context) error {
			conn, _, err := g.dialer.DialContext(ctx, g.url, nil)
			if err != nil {
				return err
			}
			g.mu.Lock()
			if g.closed {
				g.mu.Unlock()
				_ = conn.Close()
				return errors.ErrGatewayClosed
			}
			g.conn = conn
			g.mu.Unlock()
			return nil
		})
		if err == nil {
			g.log.Infof("Reconnected to %s", g.url)
			return true
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, errors.ErrGatewayClosed) {
			return false
		}
		if !g.reconnect.ShouldRetry() {
			g.log.Errorf("Giving up on %s: %v", g.url, err)
			return false
		}
	}
}

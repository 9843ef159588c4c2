package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"hermes/internal/adapters/config"
	"hermes/internal/adapters/kafka"
	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// KafkaGateway streams external events from a Kafka topic and publishes
// consolidated decisions to another.
type KafkaGateway struct {
	producer       *kafka.Producer
	consumer       *kafka.Consumer
	decisionsTopic string
	pullTimeout    time.Duration
	log            *logger.Logger

	mu     sync.Mutex
	closed bool
}

// NewKafka builds a Kafka-backed gateway from configuration.
func NewKafka(cfg config.KafkaConfig, pullTimeout time.Duration) *KafkaGateway {
	if pullTimeout <= 0 {
		pullTimeout = 5 * time.Second
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Brokers})
	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.EventsTopic,
	})

	return &KafkaGateway{
		producer:       producer,
		consumer:       consumer,
		decisionsTopic: cfg.DecisionsTopic,
		pullTimeout:    pullTimeout,
		log:            logger.Get().With("component", "kafka_gateway"),
	}
}

// Push publishes a consolidated decision keyed by its originating event.
func (g *KafkaGateway) Push(ctx context.Context, d opinion.Decision) error {
	if g.isClosed() {
		metrics.GatewayPushes.WithLabelValues("kafka", "error").Inc()
		return errors.ErrGatewayClosed
	}

	if err := g.producer.Publish(ctx, g.decisionsTopic, d.EventID.String(), d); err != nil {
		metrics.GatewayPushes.WithLabelValues("kafka", "error").Inc()
		return errors.Wrap(err, "publish decision")
	}

	metrics.GatewayPushes.WithLabelValues("kafka", "success").Inc()
	return nil
}

// Pull reads the next external event from the events topic. A read that
// exceeds the pull timeout reports ErrNoEvent so callers can keep polling.
func (g *KafkaGateway) Pull(ctx context.Context) (*event.Event, error) {
	if g.isClosed() {
		return nil, errors.ErrGatewayClosed
	}

	readCtx, cancel := context.WithTimeout(ctx, g.pullTimeout)
	defer cancel()

	msg, err := g.consumer.ReadMessage(readCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.ErrNoEvent
		}
		return nil, errors.Wrap(err, "read event")
	}

	var ev event.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		g.log.Warnf("Skipping malformed event at offset %d: %v", msg.Offset, err)
		return nil, errors.ErrNoEvent
	}
	if err := ev.Validate(); err != nil {
		g.log.Warnf("Skipping invalid event %s: %v", ev.ID, err)
		return nil, errors.ErrNoEvent
	}

	metrics.GatewayPulls.WithLabelValues("kafka").Inc()
	return &ev, nil
}

// Close shuts down the producer and consumer.
func (g *KafkaGateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	var merr errors.MultiError
	if err := g.consumer.Close(); err != nil {
		merr.Add(errors.Wrap(err, "close consumer"))
	}
	if err := g.producer.Close(); err != nil {
		merr.Add(errors.Wrap(err, "close producer"))
	}
	return merr.ToError()
}

func (g *KafkaGateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"referendum/contexts/governance/proposal-voting/ports"
)

// ErrClosed reports a publish or subscribe against a closed bus.
var ErrClosed = errors.New("messaging: bus closed")

const subscriberQueueSize = 128

type subscription struct {
	group string
	queue chan ports.EventEnvelope
}

// Kafka carries governance events between the outbox relay and topic
// consumers. Delivery is in-process while external brokers are rolled out;
// the broker list is accepted so the wiring keeps its final shape.
// Every consumer group gets one ordered queue per topic, which preserves
// the per-proposal ordering the relay produces.
type Kafka struct {
	mu     sync.RWMutex
	topics map[string][]*subscription
	closed bool
	logger *slog.Logger
}

func NewKafka(_ []string, logger *slog.Logger) (*Kafka, error) {
	return &Kafka{
		topics: make(map[string][]*subscription),
		logger: logger,
	}, nil
}

// Publish fans the event out to every group subscribed on the topic. A full
// queue drops the event for that group instead of blocking the relay.
func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return ErrClosed
	}

	delivered := 0
	for _, sub := range k.topics[topic] {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub.queue <- event:
			delivered++
		default:
			if k.logger != nil {
				k.logger.Warn("subscriber queue full, dropping event",
					"event", "kafka_publish_drop",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"consumer_group", sub.group,
					"event_id", event.EventID,
				)
			}
		}
	}

	if k.logger != nil {
		k.logger.Info("event published",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"delivered", delivered,
		)
	}
	return nil
}

// Subscribe registers one handler per (topic, consumer group). A second
// subscription for the same pair is rejected rather than silently doubling
// delivery.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	sub := &subscription{
		group: consumerGroup,
		queue: make(chan ports.EventEnvelope, subscriberQueueSize),
	}

	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return ErrClosed
	}
	for _, existing := range k.topics[topic] {
		if existing.group == consumerGroup {
			k.mu.Unlock()
			return errors.New("messaging: consumer group already subscribed: " + consumerGroup)
		}
	}
	k.topics[topic] = append(k.topics[topic], sub)
	k.mu.Unlock()

	go k.consume(ctx, topic, sub, handler)
	return nil
}

func (k *Kafka) consume(
	ctx context.Context,
	topic string,
	sub *subscription,
	handler func(context.Context, ports.EventEnvelope) error,
) {
	for {
		select {
		case <-ctx.Done():
			k.removeSubscription(topic, sub)
			return
		case event, ok := <-sub.queue:
			if !ok {
				return
			}
			if err := handler(ctx, event); err != nil && k.logger != nil {
				k.logger.Error("consumer handler failed",
					"event", "kafka_consume_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"consumer_group", sub.group,
					"event_id", event.EventID,
					"event_type", event.EventType,
					"error", err.Error(),
				)
			}
		}
	}
}

func (k *Kafka) removeSubscription(topic string, target *subscription) {
	k.mu.Lock()
	defer k.mu.Unlock()

	items := k.topics[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]*subscription, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	k.topics[topic] = filtered
}

// Close rejects further publishes and closes every consumer queue.
// Consumers drain what was already delivered and then exit. Close is
// idempotent.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	for _, subs := range k.topics {
		for _, sub := range subs {
			close(sub.queue)
		}
	}
	k.topics = make(map[string][]*subscription)
	return nil
}

var _ ports.EventPublisher = (*Kafka)(nil)
var _ ports.EventSubscriber = (*Kafka)(nil)

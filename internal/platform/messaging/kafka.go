package messaging

import (
	"context"
	"log/slog"
	"sync"

	"cinetrack/internal/shared/events"
)

const subscriberBuffer = 128

type subscription struct {
	group string
	ch    chan events.Envelope
}

// Kafka is the event bus used by the outbox relays and consumers. Delivery is
// in-process: each consumer group on a topic receives every published event
// once, and groups never share a channel.
type Kafka struct {
	mu sync.RWMutex

	// brokers is configuration only. Nothing dials it; delivery stays in
	// process until a broker client is wired in.
	brokers     []string
	subscribers map[string][]subscription
	logger      *slog.Logger
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("event bus initialized",
		"event", "messaging_bus_initialized",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"brokers", brokers,
	)
	return &Kafka{
		brokers:     append([]string(nil), brokers...),
		subscribers: make(map[string][]subscription),
		logger:      logger,
	}, nil
}

// Publish hands the event to every group subscribed to topic. It blocks while
// a group's buffer is full so a slow consumer cannot silently lose events;
// the relay then retries the unpublished row on its next cycle.
func (k *Kafka) Publish(ctx context.Context, topic string, event events.Envelope) error {
	k.mu.RLock()
	subs := append([]subscription(nil), k.subscribers[topic]...)
	k.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			k.logger.Warn("event publish interrupted",
				"event", "kafka_publish_interrupted",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", sub.group,
				"event_id", event.EventID,
			)
			return ctx.Err()
		case sub.ch <- event:
		}
	}

	k.logger.Debug("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"subscriber_count", len(subs),
	)
	return nil
}

func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	sub := subscription{group: consumerGroup, ch: make(chan events.Envelope, subscriberBuffer)}

	k.mu.Lock()
	k.subscribers[topic] = append(k.subscribers[topic], sub)
	k.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				k.removeSubscriber(topic, sub.ch)
				return
			case event := <-sub.ch:
				if err := handler(ctx, event); err != nil {
					k.logger.Error("consumer handler failed",
						"event", "kafka_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (k *Kafka) removeSubscriber(topic string, target chan events.Envelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	items := k.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]subscription, 0, len(items))
	for _, item := range items {
		if item.ch != target {
			filtered = append(filtered, item)
		}
	}
	k.subscribers[topic] = filtered
}

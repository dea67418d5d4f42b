package bootstrap

import (
	"context"
	"strings"

	pollports "cinetrack/contexts/community-engagement/poll-voting/ports"
	rankingports "cinetrack/contexts/community-engagement/ranking-engine/ports"
	"cinetrack/internal/platform/messaging"
	"cinetrack/internal/shared/events"
)

// Module envelopes are field-identical to events.Envelope, so these adapters
// convert instead of copying field by field.

type pollEventPublisher struct {
	bus *messaging.Kafka
}

func (p pollEventPublisher) Publish(ctx context.Context, topic string, event pollports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, events.Envelope(event))
}

type rankingEventBus struct {
	bus *messaging.Kafka
}

func (b rankingEventBus) Publish(ctx context.Context, topic string, event rankingports.EventEnvelope) error {
	return b.bus.Publish(ctx, topic, events.Envelope(event))
}

func (b rankingEventBus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, rankingports.EventEnvelope) error,
) error {
	return b.bus.Subscribe(ctx, topic, consumerGroup, func(ctx context.Context, event events.Envelope) error {
		return handler(ctx, rankingports.EventEnvelope(event))
	})
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

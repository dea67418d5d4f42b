package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "cinetrack/contexts/community-engagement/ranking-engine/application"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"
)

// OutboxRelay publishes ranking outbox rows to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes one batch in creation order. A row is marked published
// only after the bus accepted it; the cycle stops at the first failure.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("ranking outbox list failed",
			"event", "ranking_outbox_list_failed",
			"module", "community-engagement/ranking-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		logger.Debug("ranking outbox relay found no pending rows",
			"event", "ranking_outbox_relay_noop",
			"module", "community-engagement/ranking-engine",
			"layer", "worker",
		)
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("ranking outbox decode failed",
				"event", "ranking_outbox_decode_failed",
				"module", "community-engagement/ranking-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("ranking outbox publish failed",
				"event", "ranking_outbox_publish_failed",
				"module", "community-engagement/ranking-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			return err
		}
	}

	logger.Info("ranking outbox relay cycle completed",
		"event", "ranking_outbox_relay_completed",
		"module", "community-engagement/ranking-engine",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}

package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "cinetrack/contexts/community-engagement/ranking-engine/application"
	"cinetrack/contexts/community-engagement/ranking-engine/application/commands"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"
)

const (
	scoreChangedTopic     = "ranking.item_score_changed"
	defaultScoreChangedCG = "ranking-engine-score-cg"
)

// ScoreChangedConsumer recalculates a ranking whenever a score owner reports
// a changed item score. Deliveries are at-least-once; the dedup store drops
// replays.
type ScoreChangedConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Recalculator  commands.RecalculateUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c ScoreChangedConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultScoreChangedCG
	}
	if err := c.Subscriber.Subscribe(ctx, scoreChangedTopic, group, c.Handle); err != nil {
		logger.Error("score consumer subscribe failed",
			"event", "ranking_score_consumer_subscribe_failed",
			"module", "community-engagement/ranking-engine",
			"layer", "worker",
			"topic", scoreChangedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("score consumer subscription active",
		"event", "ranking_score_consumer_started",
		"module", "community-engagement/ranking-engine",
		"layer", "worker",
		"topic", scoreChangedTopic,
		"consumer_group", group,
	)
	return nil
}

// Handle reserves the event ID, recalculates, and releases the reservation
// when recalculation fails so the redelivered event is not taken for a replay.
func (c ScoreChangedConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	var payload struct {
		RankingID string `json:"ranking_id"`
		ItemID    string `json:"item_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("score event payload decode failed",
			"event", "ranking_score_event_decode_failed",
			"module", "community-engagement/ranking-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	payloadHash := hashPayload(event.Data)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, payloadHash, c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("score event dedupe failed",
			"event", "ranking_score_event_dedupe_failed",
			"module", "community-engagement/ranking-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("score event replay skipped",
			"event", "ranking_score_event_replayed",
			"module", "community-engagement/ranking-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	result, err := c.Recalculator.RecalculatePositions(ctx, payload.RankingID)
	if err != nil {
		// ctx may already be cancelled; the release must still reach the store.
		if releaseErr := c.Dedup.ReleaseEvent(context.WithoutCancel(ctx), event.EventID, payloadHash); releaseErr != nil {
			logger.Error("score event release failed",
				"event", "ranking_score_event_release_failed",
				"module", "community-engagement/ranking-engine",
				"layer", "worker",
				"event_id", event.EventID,
				"error", releaseErr.Error(),
			)
		}
		logger.Warn("score event recalculation failed",
			"event", "ranking_score_event_recalculate_failed",
			"module", "community-engagement/ranking-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"ranking_id", strings.TrimSpace(payload.RankingID),
			"error", err.Error(),
		)
		return err
	}
	logger.Info("score event consumed",
		"event", "ranking_score_event_consumed",
		"module", "community-engagement/ranking-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"ranking_id", result.RankingID,
		"item_id", strings.TrimSpace(payload.ItemID),
		"changed_count", result.ChangedCount(),
	)
	return nil
}

func (c ScoreChangedConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (c ScoreChangedConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

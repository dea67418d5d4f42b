package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cinetrack/contexts/community-engagement/ranking-engine/adapters/memory"
	"cinetrack/contexts/community-engagement/ranking-engine/application/commands"
	"cinetrack/contexts/community-engagement/ranking-engine/application/workers"
	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/ranking-engine/domain/errors"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"
)

type captureSubscriber struct {
	topic   string
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *captureSubscriber) Subscribe(
	_ context.Context,
	topic string,
	group string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.topic = topic
	s.group = group
	s.handler = handler
	return nil
}

func newConsumerFixture() (*memory.Store, workers.ScoreChangedConsumer) {
	store := memory.NewStore(
		[]entities.Ranking{{RankingID: "ranking-1", Title: "Top films", Type: "movies"}},
		[]entities.RankingItem{
			{ItemID: "a", RankingID: "ranking-1", Score: 1},
			{ItemID: "b", RankingID: "ranking-1", Score: 2},
		},
	)
	consumer := workers.ScoreChangedConsumer{
		Dedup: store,
		Recalculator: commands.RecalculateUseCase{
			Ledger: store,
			Clock:  store,
			IDGen:  store,
		},
		Clock: store,
	}
	return store, consumer
}

func scoreChangedEvent(t *testing.T, eventID string, rankingID string) ports.EventEnvelope {
	t.Helper()
	data, err := json.Marshal(map[string]any{"ranking_id": rankingID, "item_id": "a"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return ports.EventEnvelope{
		EventID:    eventID,
		EventType:  "ranking.item_score_changed",
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func TestScoreChangedConsumerSubscribesWithDefaultGroup(t *testing.T) {
	_, consumer := newConsumerFixture()
	subscriber := &captureSubscriber{}
	consumer.Subscriber = subscriber

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if subscriber.topic != "ranking.item_score_changed" || subscriber.group != "ranking-engine-score-cg" {
		t.Fatalf("unexpected subscription %s/%s", subscriber.topic, subscriber.group)
	}
	if subscriber.handler == nil {
		t.Fatalf("expected handler to be registered")
	}
}

func TestScoreChangedConsumerRecalculatesOncePerEvent(t *testing.T) {
	store, consumer := newConsumerFixture()
	ctx := context.Background()
	event := scoreChangedEvent(t, "evt-1", "ranking-1")

	if err := consumer.Handle(ctx, event); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	items, _ := store.ListItems(ctx, "ranking-1")
	if items[0].ItemID != "a" || items[0].Position != 2 || items[1].Position != 1 {
		t.Fatalf("unexpected positions %+v", items)
	}
	pending, _ := store.ListPendingOutbox(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected one recalculation event, got %d", len(pending))
	}

	if err := consumer.Handle(ctx, event); err != nil {
		t.Fatalf("replayed delivery failed: %v", err)
	}
	pending, _ = store.ListPendingOutbox(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected replay to be skipped, got %d events", len(pending))
	}
}

func TestScoreChangedConsumerRetriesRedeliveryAfterFailedRecalculation(t *testing.T) {
	store, consumer := newConsumerFixture()
	event := scoreChangedEvent(t, "evt-1", "ranking-1")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := consumer.Handle(cancelled, event); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	items, _ := store.ListItems(context.Background(), "ranking-1")
	if items[0].Position != 0 || items[1].Position != 0 {
		t.Fatalf("expected nothing placed by the failed delivery, got %+v", items)
	}

	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	items, _ = store.ListItems(context.Background(), "ranking-1")
	if items[0].ItemID != "a" || items[0].Position != 2 || items[1].Position != 1 {
		t.Fatalf("expected redelivery to place items, got %+v", items)
	}

	replayed, err := store.ReserveEvent(context.Background(), "evt-1", "", time.Now().Add(time.Hour))
	if !errors.Is(err, domainerrors.ErrConflict) || replayed {
		t.Fatalf("expected the successful delivery to stay reserved, got %v %v", replayed, err)
	}
}

func TestScoreChangedConsumerRejectsReusedEventID(t *testing.T) {
	_, consumer := newConsumerFixture()
	ctx := context.Background()

	if err := consumer.Handle(ctx, scoreChangedEvent(t, "evt-1", "ranking-1")); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	err := consumer.Handle(ctx, scoreChangedEvent(t, "evt-1", "ranking-2"))
	if !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict for a different payload, got %v", err)
	}
}

func TestScoreChangedConsumerRejectsBadPayload(t *testing.T) {
	_, consumer := newConsumerFixture()
	event := ports.EventEnvelope{EventID: "evt-bad", Data: json.RawMessage(`{"ranking_id":`)}

	if err := consumer.Handle(context.Background(), event); err == nil {
		t.Fatalf("expected decode error")
	}
}

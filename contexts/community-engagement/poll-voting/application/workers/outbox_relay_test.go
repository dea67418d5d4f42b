package workers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cinetrack/contexts/community-engagement/poll-voting/adapters/memory"
	"cinetrack/contexts/community-engagement/poll-voting/application/workers"
	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	"cinetrack/contexts/community-engagement/poll-voting/ports"
)

type recordingPublisher struct {
	topics []string
	failAt int
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	if p.failAt > 0 && len(p.topics)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func seedOutbox(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	poll := entities.Poll{PollID: "poll-1", Options: [entities.MaxOptions]string{"A", "B"}, Active: true}
	if err := store.CreatePoll(ctx, poll, ports.EventEnvelope{EventID: "evt-1", EventType: "poll.created"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := store.SetPollActive(ctx, "poll-1", false, time.Now().UTC(),
		ports.EventEnvelope{EventID: "evt-2", EventType: "poll.activation_changed"},
	); err != nil {
		t.Fatalf("set active failed: %v", err)
	}
}

func TestOutboxRelayPublishesInOrder(t *testing.T) {
	store := memory.NewStore(nil)
	seedOutbox(t, store)
	publisher := &recordingPublisher{}

	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if len(publisher.topics) != 2 || publisher.topics[0] != "poll.created" || publisher.topics[1] != "poll.activation_changed" {
		t.Fatalf("unexpected publish order %v", publisher.topics)
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected empty outbox, got %d rows", len(pending))
	}
}

func TestOutboxRelayStopsAtFirstFailure(t *testing.T) {
	store := memory.NewStore(nil)
	seedOutbox(t, store)
	publisher := &recordingPublisher{failAt: 2}

	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure")
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 1 || pending[0].OutboxID != "evt-2" {
		t.Fatalf("expected evt-2 to stay pending, got %+v", pending)
	}
}

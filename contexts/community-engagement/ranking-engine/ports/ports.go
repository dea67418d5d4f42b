package ports

import (
	"context"
	"encoding/json"
	"time"

	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
)

// RecalcTx is the unit of work of one recalculation. Every item returned by
// LockItems stays locked until the scope ends.
type RecalcTx interface {
	LockItems(ctx context.Context, rankingID string) ([]entities.RankingItem, error)
	UpdatePositions(ctx context.Context, rankingID string, changes []entities.PositionChange, updatedAt time.Time) error
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type RankingLedger interface {
	WithinRankingScope(ctx context.Context, rankingID string, fn func(tx RecalcTx) error) error
}

// RankingRepository never writes positions; those are owned by the
// recalculation scope.
type RankingRepository interface {
	CreateRanking(ctx context.Context, ranking entities.Ranking, events ...EventEnvelope) error
	GetRanking(ctx context.Context, rankingID string) (entities.Ranking, error)
	ListItems(ctx context.Context, rankingID string) ([]entities.RankingItem, error)
	GetItem(ctx context.Context, itemID string) (entities.RankingItem, error)
	AddItem(ctx context.Context, item entities.RankingItem, events ...EventEnvelope) error
	UpdateItemScore(ctx context.Context, itemID string, score float64, updatedAt time.Time, events ...EventEnvelope) (entities.RankingItem, error)
	RemoveItem(ctx context.Context, itemID string, events ...EventEnvelope) error
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// EventDedupStore reports true when eventID was already reserved with the
// same payload hash. ReleaseEvent drops a reservation whose work failed so a
// redelivery is processed again.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string, payloadHash string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

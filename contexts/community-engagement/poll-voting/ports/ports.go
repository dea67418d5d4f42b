package ports

import (
	"context"
	"encoding/json"
	"time"

	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
)

// VoteTx is the unit of work the coordinator runs inside one vote scope.
// Implementations commit every call made through it together or not at all.
type VoteTx interface {
	GetPoll(ctx context.Context, pollID string) (entities.Poll, error)
	// LockVote loads the ledger row for (poll, user) and holds it exclusively
	// until the scope ends.
	LockVote(ctx context.Context, pollID string, userID string) (entities.Vote, bool, error)
	// InsertVote reports false when a concurrent scope already created the row.
	InsertVote(ctx context.Context, vote entities.Vote) (bool, error)
	UpdateVote(ctx context.Context, vote entities.Vote) error
	// ShiftCounters atomically decrements slot `from` (floored at zero, skipped
	// when 0) and increments slot `to`.
	ShiftCounters(ctx context.Context, pollID string, from int, to int) error
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type VoteLedger interface {
	WithinVoteScope(ctx context.Context, pollID string, userID string, fn func(tx VoteTx) error) error
}

type PollRepository interface {
	CreatePoll(ctx context.Context, poll entities.Poll, events ...EventEnvelope) error
	GetPoll(ctx context.Context, pollID string) (entities.Poll, error)
	ListPolls(ctx context.Context, activeOnly bool) ([]entities.Poll, error)
	SetPollActive(ctx context.Context, pollID string, active bool, updatedAt time.Time, events ...EventEnvelope) (entities.Poll, error)
	DeletePoll(ctx context.Context, pollID string, events ...EventEnvelope) error
	GetVote(ctx context.Context, pollID string, userID string) (entities.Vote, error)
	CountVotesByOption(ctx context.Context, pollID string) (map[int]int64, error)
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

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

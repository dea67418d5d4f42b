package commands

import (
	"encoding/json"
	"time"

	"cinetrack/contexts/community-engagement/poll-voting/ports"
)

const (
	eventPollCreated           = "poll.created"
	eventPollActivationChanged = "poll.activation_changed"
	eventPollDeleted           = "poll.deleted"
	eventVoteCast              = "poll.vote_cast"
	eventVoteChanged           = "poll.vote_changed"
)

// Poll events are partitioned by poll so consumers see a poll's votes in order.
func newPollEnvelope(
	eventID string,
	eventType string,
	pollID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "poll-voting",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "poll_id",
		PartitionKey:     pollID,
		Data:             payload,
	}, nil
}

package commands

import (
	"encoding/json"
	"time"

	"cinetrack/contexts/community-engagement/ranking-engine/ports"
)

const (
	eventRankingCreated        = "ranking.created"
	eventItemAdded             = "ranking.item_added"
	eventItemScoreChanged      = "ranking.item_score_changed"
	eventItemRemoved           = "ranking.item_removed"
	eventPositionsRecalculated = "ranking.positions_recalculated"
)

func newRankingEnvelope(
	eventID string,
	eventType string,
	rankingID string,
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
		SourceService:    "ranking-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "ranking_id",
		PartitionKey:     rankingID,
		Data:             payload,
	}, nil
}

package outbox

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusPublished = "published"
)

// Message is an outbox row written in the same transaction as the state
// change it describes. Each module keeps its rows in its own table.
type Message struct {
	OutboxID     string         `gorm:"column:outbox_id;primaryKey"`
	EventType    string         `gorm:"column:event_type"`
	PartitionKey string         `gorm:"column:partition_key"`
	Payload      datatypes.JSON `gorm:"column:payload;type:jsonb"`
	Status       string         `gorm:"column:status"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	PublishedAt  *time.Time     `gorm:"column:published_at"`
}

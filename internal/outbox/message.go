package outbox

import (
	"time"

	"gorm.io/datatypes"
)

// Message is a durable outbox row. Rows are created only by the unit of
// work, inside the same transaction as the aggregate write that produced
// them; only the relay mutates the claim and delivery columns afterward.
// IDs are snowflakes, so per-aggregate commit order is id order.
type Message struct {
	ID            int64          `gorm:"primaryKey"`
	EventID       string         `gorm:"type:uuid;uniqueIndex;not null"`
	AggregateID   string         `gorm:"type:varchar(64);not null;index"`
	AggregateType string         `gorm:"type:varchar(50);not null"`
	EventType     string         `gorm:"type:varchar(100);not null;index"`
	Payload       datatypes.JSON `gorm:"not null"`
	OccurredAt    time.Time      `gorm:"not null"`
	ProcessedAt   *time.Time
	RetryCount    int     `gorm:"not null;default:0"`
	LastError     *string `gorm:"type:text"`
	ClaimedBy     *string `gorm:"type:varchar(64)"`
	ClaimedUntil  *time.Time
	AvailableAt   time.Time `gorm:"not null;index"`
	DeadLettered  bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Message) TableName() string {
	return "outbox_messages"
}

// Pending reports whether the row still awaits successful delivery.
func (m Message) Pending() bool {
	return m.ProcessedAt == nil && !m.DeadLettered
}

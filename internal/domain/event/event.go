package event

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent records that something happened to an aggregate. Events are
// immutable once constructed; equality is by EventID.
type DomainEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	AggregateID   string    `json:"aggregate_id"`
	AggregateType string    `json:"aggregate_type"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	Payload       any       `json:"payload"`
}

// New builds a DomainEvent with a fresh EventID and a UTC timestamp.
func New(aggregateType, aggregateID, eventType string, payload any) DomainEvent {
	return DomainEvent{
		EventID:       uuid.New(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}
}

// Package handler contains the event subscribers fed by the dispatch
// relay. Delivery is at-least-once, so every subscriber runs its side
// effects through the idempotency Guard keyed by (event id, handler name).
package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HandledEvent marks one event as delivered to one handler.
type HandledEvent struct {
	EventID     string    `gorm:"primaryKey;type:uuid"`
	HandlerName string    `gorm:"primaryKey;type:varchar(100)"`
	HandledAt   time.Time `gorm:"not null"`
}

func (HandledEvent) TableName() string {
	return "handled_events"
}

// Guard makes handler side effects idempotent: the delivery marker and the
// side effect commit in one transaction, and a redelivered event finds the
// marker and becomes a no-op.
type Guard struct {
	db *gorm.DB
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// Run executes fn unless (eventID, handlerName) was already handled. If fn
// fails the marker rolls back with it, so the relay's retry runs fn again.
func (g *Guard) Run(ctx context.Context, handlerName string, eventID uuid.UUID, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&HandledEvent{
			EventID:     eventID.String(),
			HandlerName: handlerName,
			HandledAt:   time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Redelivery of an event this handler already processed.
			return nil
		}
		return fn(ctx, tx)
	})
}

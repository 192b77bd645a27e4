package handler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/order"
	"github.com/harborlabs/harbor-backoffice/internal/domain/returns"
)

// InventoryMovement records one stock adjustment driven by a domain event.
type InventoryMovement struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	OrderID   int64  `gorm:"not null;index"`
	Direction string `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
}

func (InventoryMovement) TableName() string {
	return "inventory_movements"
}

// InventoryUpdater adjusts stock bookkeeping when orders ship or returns
// complete.
type InventoryUpdater struct {
	guard  *Guard
	logger *zap.Logger
}

func NewInventoryUpdater(guard *Guard, logger *zap.Logger) *InventoryUpdater {
	return &InventoryUpdater{guard: guard, logger: logger.Named("handler.inventory")}
}

func (h *InventoryUpdater) Name() string {
	return "inventory_updater"
}

func (h *InventoryUpdater) Handle(ctx context.Context, evt event.DomainEvent) error {
	return h.guard.Run(ctx, h.Name(), evt.EventID, func(ctx context.Context, tx *gorm.DB) error {
		var movement InventoryMovement
		switch payload := evt.Payload.(type) {
		case *order.ShippedPayload:
			movement = InventoryMovement{OrderID: payload.OrderID, Direction: "out"}
		case *returns.Payload:
			movement = InventoryMovement{OrderID: payload.OrderID, Direction: "in"}
		default:
			return fmt.Errorf("no stock movement for event type %s", evt.EventType)
		}

		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("record movement: %w", err)
		}
		h.logger.Info("stock_adjusted",
			zap.Int64("order_id", movement.OrderID),
			zap.String("direction", movement.Direction),
		)
		return nil
	})
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/order"
	"github.com/harborlabs/harbor-backoffice/internal/uow"
	"gorm.io/gorm"
)

// OrderModel is the database DTO with Gorm tags.
type OrderModel struct {
	ID            int64  `gorm:"primaryKey"`
	CustomerID    int64  `gorm:"index"`
	Status        string `gorm:"type:varchar(50);index"`
	PaymentStatus string `gorm:"type:varchar(50)"`
	TotalCents    int64
	Currency      string `gorm:"type:varchar(3)"`
	TrackingCode  string `gorm:"type:varchar(100)"`
	CancelReason  string `gorm:"type:text"`
	Deleted       bool   `gorm:"not null;default:false"`
	Version       int64  `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByID excludes soft-deleted rows with an explicit predicate so a
// deleted order is indistinguishable from a missing one.
func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = false", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toOrder(model), nil
}

// Persist writes the order guarded by the version it was loaded with, so
// a writer holding a stale in-memory copy loses the commit instead of
// silently overwriting the newer row. A zero version means the aggregate
// was never persisted and inserts.
func (r *OrderRepository) Persist(o *order.Order) uow.PersistFunc {
	return func(ctx context.Context, tx *gorm.DB) error {
		model := toOrderModel(o)
		if o.Version == 0 {
			model.Version = 1
			return tx.WithContext(ctx).Create(&model).Error
		}

		model.Version = o.Version + 1
		res := tx.WithContext(ctx).
			Model(&OrderModel{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Select("*").
			Omit("id", "created_at").
			Updates(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %d at version %d: %w", o.ID, o.Version, uow.ErrStaleAggregate)
		}
		return nil
	}
}

// Mappers

func toOrder(m OrderModel) *order.Order {
	o := &order.Order{
		ID:            m.ID,
		CustomerID:    m.CustomerID,
		Status:        order.Status(m.Status),
		PaymentStatus: order.PaymentStatus(m.PaymentStatus),
		TotalCents:    m.TotalCents,
		Currency:      m.Currency,
		TrackingCode:  m.TrackingCode,
		CancelReason:  m.CancelReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Version:       m.Version,
	}
	o.SetDeleted(m.Deleted)
	return o
}

func toOrderModel(o *order.Order) OrderModel {
	return OrderModel{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		TotalCents:    o.TotalCents,
		Currency:      o.Currency,
		TrackingCode:  o.TrackingCode,
		CancelReason:  o.CancelReason,
		Deleted:       o.IsDeleted(),
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

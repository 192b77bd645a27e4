package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/returns"
	"github.com/harborlabs/harbor-backoffice/internal/uow"
	"gorm.io/gorm"
)

// ReturnRequestModel is the database DTO with Gorm tags.
type ReturnRequestModel struct {
	ID           int64  `gorm:"primaryKey"`
	OrderID      int64  `gorm:"index"`
	Reason       string `gorm:"type:text"`
	RejectReason string `gorm:"type:text"`
	Status       string `gorm:"type:varchar(50);index"`
	Deleted      bool   `gorm:"not null;default:false"`
	Version      int64  `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ReturnRequestModel) TableName() string {
	return "return_requests"
}

type ReturnRequestRepository struct {
	db *gorm.DB
}

func NewReturnRequestRepository(db *gorm.DB) *ReturnRequestRepository {
	return &ReturnRequestRepository{db: db}
}

func (r *ReturnRequestRepository) FindByID(ctx context.Context, id int64) (*returns.ReturnRequest, error) {
	var model ReturnRequestModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = false", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toReturnRequest(model), nil
}

// Persist writes the request guarded by the version it was loaded with;
// zero rows matched means another writer got there first. A zero version
// means the aggregate was never persisted and inserts.
func (r *ReturnRequestRepository) Persist(rr *returns.ReturnRequest) uow.PersistFunc {
	return func(ctx context.Context, tx *gorm.DB) error {
		model := toReturnRequestModel(rr)
		if rr.Version == 0 {
			model.Version = 1
			return tx.WithContext(ctx).Create(&model).Error
		}

		model.Version = rr.Version + 1
		res := tx.WithContext(ctx).
			Model(&ReturnRequestModel{}).
			Where("id = ? AND version = ?", rr.ID, rr.Version).
			Select("*").
			Omit("id", "created_at").
			Updates(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("return request %d at version %d: %w", rr.ID, rr.Version, uow.ErrStaleAggregate)
		}
		return nil
	}
}

// Mappers

func toReturnRequest(m ReturnRequestModel) *returns.ReturnRequest {
	rr := &returns.ReturnRequest{
		ID:           m.ID,
		OrderID:      m.OrderID,
		Reason:       m.Reason,
		RejectReason: m.RejectReason,
		Status:       returns.Status(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		Version:      m.Version,
	}
	rr.SetDeleted(m.Deleted)
	return rr
}

func toReturnRequestModel(rr *returns.ReturnRequest) ReturnRequestModel {
	return ReturnRequestModel{
		ID:           rr.ID,
		OrderID:      rr.OrderID,
		Reason:       rr.Reason,
		RejectReason: rr.RejectReason,
		Status:       string(rr.Status),
		Deleted:      rr.IsDeleted(),
		Version:      rr.Version,
		CreatedAt:    rr.CreatedAt,
		UpdatedAt:    rr.UpdatedAt,
	}
}

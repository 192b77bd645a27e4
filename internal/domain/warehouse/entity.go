// Package warehouse models a fulfillment location.
package warehouse

import (
	"strconv"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

const AggregateType = "warehouse"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

const (
	OpDeactivate lifecycle.Op = "deactivate"
	OpActivate   lifecycle.Op = "activate"
	OpDelete     lifecycle.Op = "delete"
)

var transitions = lifecycle.Table[Status]{
	{From: StatusActive, Op: OpDeactivate}: StatusInactive,
	{From: StatusInactive, Op: OpActivate}: StatusActive,
	{From: StatusInactive, Op: OpDelete}:   StatusDeleted,
}

const (
	EventTypeActivated   = "warehouse.activated"
	EventTypeDeactivated = "warehouse.deactivated"
	EventTypeDeleted     = "warehouse.deleted"
)

type Payload struct {
	WarehouseID int64  `json:"warehouse_id"`
	Code        string `json:"code"`
}

func RegisterEvents(r *event.Registry) {
	r.Register(EventTypeActivated, Payload{})
	r.Register(EventTypeDeactivated, Payload{})
	r.Register(EventTypeDeleted, Payload{})
}

type Warehouse struct {
	lifecycle.Root

	ID        int64
	Code      string
	Region    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id int64, code, region string) *Warehouse {
	return &Warehouse{
		ID:        id,
		Code:      code,
		Region:    region,
		Status:    StatusActive,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func (w *Warehouse) AggregateID() string {
	return strconv.FormatInt(w.ID, 10)
}

func (w *Warehouse) AggregateType() string {
	return AggregateType
}

func (w *Warehouse) apply(op lifecycle.Op, eventType string) error {
	if w.IsDeleted() {
		return &lifecycle.AlreadyDeletedError{AggregateType: AggregateType, AggregateID: w.AggregateID()}
	}
	next, err := transitions.Next(AggregateType, w.Status, op)
	if err != nil {
		return err
	}
	w.Status = next
	w.UpdatedAt = time.Now().UTC()
	w.Raise(event.New(AggregateType, w.AggregateID(), eventType, Payload{WarehouseID: w.ID, Code: w.Code}))
	return nil
}

func (w *Warehouse) Deactivate() error {
	return w.apply(OpDeactivate, EventTypeDeactivated)
}

func (w *Warehouse) Activate() error {
	return w.apply(OpActivate, EventTypeActivated)
}

// MarkAsDeleted requires the warehouse to be deactivated first.
func (w *Warehouse) MarkAsDeleted() error {
	if err := w.apply(OpDelete, EventTypeDeleted); err != nil {
		return err
	}
	w.SetDeleted(true)
	return nil
}

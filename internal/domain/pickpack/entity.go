// Package pickpack models a warehouse pick-and-pack operation for one
// order.
package pickpack

import (
	"strconv"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

const AggregateType = "pickpack"

type Status string

const (
	StatusPending Status = "pending"
	StatusPicking Status = "picking"
	StatusPicked  Status = "picked"
	StatusPacking Status = "packing"
	StatusPacked  Status = "packed"
	StatusShipped Status = "shipped"
	StatusDeleted Status = "deleted"
)

const (
	OpStartPicking  lifecycle.Op = "start_picking"
	OpFinishPicking lifecycle.Op = "finish_picking"
	OpStartPacking  lifecycle.Op = "start_packing"
	OpFinishPacking lifecycle.Op = "finish_packing"
	OpShip          lifecycle.Op = "ship"
	OpDelete        lifecycle.Op = "delete"
)

// No transition skips a stage: picking must finish before packing starts.
var transitions = lifecycle.Table[Status]{
	{From: StatusPending, Op: OpStartPicking}:  StatusPicking,
	{From: StatusPicking, Op: OpFinishPicking}: StatusPicked,
	{From: StatusPicked, Op: OpStartPacking}:   StatusPacking,
	{From: StatusPacking, Op: OpFinishPacking}: StatusPacked,
	{From: StatusPacked, Op: OpShip}:           StatusShipped,
	{From: StatusPending, Op: OpDelete}:        StatusDeleted,
}

const (
	EventTypePicked  = "pickpack.picked"
	EventTypePacked  = "pickpack.packed"
	EventTypeShipped = "pickpack.shipped"
	EventTypeDeleted = "pickpack.deleted"
)

type StagePayload struct {
	PickPackID  int64 `json:"pickpack_id"`
	OrderID     int64 `json:"order_id"`
	WarehouseID int64 `json:"warehouse_id"`
}

func RegisterEvents(r *event.Registry) {
	r.Register(EventTypePicked, StagePayload{})
	r.Register(EventTypePacked, StagePayload{})
	r.Register(EventTypeShipped, StagePayload{})
	r.Register(EventTypeDeleted, StagePayload{})
}

type PickPack struct {
	lifecycle.Root

	ID          int64
	OrderID     int64
	WarehouseID int64
	PickerID    int64
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(id, orderID, warehouseID int64) *PickPack {
	return &PickPack{
		ID:          id,
		OrderID:     orderID,
		WarehouseID: warehouseID,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func (p *PickPack) AggregateID() string {
	return strconv.FormatInt(p.ID, 10)
}

func (p *PickPack) AggregateType() string {
	return AggregateType
}

func (p *PickPack) payload() StagePayload {
	return StagePayload{PickPackID: p.ID, OrderID: p.OrderID, WarehouseID: p.WarehouseID}
}

func (p *PickPack) transition(op lifecycle.Op) error {
	if p.IsDeleted() {
		return &lifecycle.AlreadyDeletedError{AggregateType: AggregateType, AggregateID: p.AggregateID()}
	}
	next, err := transitions.Next(AggregateType, p.Status, op)
	if err != nil {
		return err
	}
	p.Status = next
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// StartPicking assigns a picker and begins the pick stage.
func (p *PickPack) StartPicking(pickerID int64) error {
	if err := p.transition(OpStartPicking); err != nil {
		return err
	}
	p.PickerID = pickerID
	return nil
}

func (p *PickPack) FinishPicking() error {
	if err := p.transition(OpFinishPicking); err != nil {
		return err
	}
	p.Raise(event.New(AggregateType, p.AggregateID(), EventTypePicked, p.payload()))
	return nil
}

func (p *PickPack) StartPacking() error {
	return p.transition(OpStartPacking)
}

func (p *PickPack) FinishPacking() error {
	if err := p.transition(OpFinishPacking); err != nil {
		return err
	}
	p.Raise(event.New(AggregateType, p.AggregateID(), EventTypePacked, p.payload()))
	return nil
}

func (p *PickPack) Ship() error {
	if err := p.transition(OpShip); err != nil {
		return err
	}
	p.Raise(event.New(AggregateType, p.AggregateID(), EventTypeShipped, p.payload()))
	return nil
}

// MarkAsDeleted is only allowed before picking starts; once stock is moving
// the operation has to run to completion.
func (p *PickPack) MarkAsDeleted() error {
	if err := p.transition(OpDelete); err != nil {
		return err
	}
	p.SetDeleted(true)
	p.Raise(event.New(AggregateType, p.AggregateID(), EventTypeDeleted, p.payload()))
	return nil
}

// Package returns models a customer return request for a delivered order.
package returns

import (
	"strconv"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

const AggregateType = "return_request"

type Status string

const (
	StatusRequested Status = "requested"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusDeleted   Status = "deleted"
)

const (
	OpApprove  lifecycle.Op = "approve"
	OpReject   lifecycle.Op = "reject"
	OpComplete lifecycle.Op = "complete"
	OpDelete   lifecycle.Op = "delete"
)

var transitions = lifecycle.Table[Status]{
	{From: StatusRequested, Op: OpApprove}: StatusApproved,
	{From: StatusRequested, Op: OpReject}:  StatusRejected,
	{From: StatusApproved, Op: OpComplete}: StatusCompleted,
	{From: StatusRequested, Op: OpDelete}:  StatusDeleted,
	{From: StatusRejected, Op: OpDelete}:   StatusDeleted,
	{From: StatusCompleted, Op: OpDelete}:  StatusDeleted,
}

const (
	EventTypeRequested = "return_request.requested"
	EventTypeApproved  = "return_request.approved"
	EventTypeRejected  = "return_request.rejected"
	EventTypeCompleted = "return_request.completed"
	EventTypeDeleted   = "return_request.deleted"
)

type Payload struct {
	ReturnRequestID int64  `json:"return_request_id"`
	OrderID         int64  `json:"order_id"`
	Reason          string `json:"reason,omitempty"`
}

func RegisterEvents(r *event.Registry) {
	r.Register(EventTypeRequested, Payload{})
	r.Register(EventTypeApproved, Payload{})
	r.Register(EventTypeRejected, Payload{})
	r.Register(EventTypeCompleted, Payload{})
	r.Register(EventTypeDeleted, Payload{})
}

type ReturnRequest struct {
	lifecycle.Root

	ID           int64
	OrderID      int64
	Reason       string
	RejectReason string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Version is the persistence concurrency token. The repository sets it
	// on load and guards writes with it; zero means never persisted.
	Version int64
}

// New creates a return request in the Requested state and raises
// return_request.requested.
func New(id, orderID int64, reason string) *ReturnRequest {
	r := &ReturnRequest{
		ID:        id,
		OrderID:   orderID,
		Reason:    reason,
		Status:    StatusRequested,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	r.Raise(event.New(AggregateType, r.AggregateID(), EventTypeRequested, r.payload()))
	return r
}

func (r *ReturnRequest) AggregateID() string {
	return strconv.FormatInt(r.ID, 10)
}

func (r *ReturnRequest) AggregateType() string {
	return AggregateType
}

func (r *ReturnRequest) payload() Payload {
	return Payload{ReturnRequestID: r.ID, OrderID: r.OrderID, Reason: r.Reason}
}

func (r *ReturnRequest) transition(op lifecycle.Op) error {
	if r.IsDeleted() {
		return &lifecycle.AlreadyDeletedError{AggregateType: AggregateType, AggregateID: r.AggregateID()}
	}
	next, err := transitions.Next(AggregateType, r.Status, op)
	if err != nil {
		return err
	}
	r.Status = next
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ReturnRequest) Approve() error {
	if err := r.transition(OpApprove); err != nil {
		return err
	}
	r.Raise(event.New(AggregateType, r.AggregateID(), EventTypeApproved, r.payload()))
	return nil
}

func (r *ReturnRequest) Reject(reason string) error {
	if err := r.transition(OpReject); err != nil {
		return err
	}
	r.RejectReason = reason
	p := r.payload()
	p.Reason = reason
	r.Raise(event.New(AggregateType, r.AggregateID(), EventTypeRejected, p))
	return nil
}

// Complete records receipt of the returned goods.
func (r *ReturnRequest) Complete() error {
	if err := r.transition(OpComplete); err != nil {
		return err
	}
	r.Raise(event.New(AggregateType, r.AggregateID(), EventTypeCompleted, r.payload()))
	return nil
}

func (r *ReturnRequest) MarkAsDeleted() error {
	if err := r.transition(OpDelete); err != nil {
		return err
	}
	r.SetDeleted(true)
	r.Raise(event.New(AggregateType, r.AggregateID(), EventTypeDeleted, r.payload()))
	return nil
}

package order

import (
	"strconv"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

const AggregateType = "order"

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusCreated   Status = "created"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusReturned  Status = "returned"
	StatusDeleted   Status = "deleted"
)

// PaymentStatus tracks the payment side of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentRefunded PaymentStatus = "refunded"
)

const (
	OpConfirm lifecycle.Op = "confirm"
	OpShip    lifecycle.Op = "ship"
	OpDeliver lifecycle.Op = "deliver"
	OpCancel  lifecycle.Op = "cancel"
	OpReturn  lifecycle.Op = "return"
	OpDelete  lifecycle.Op = "delete"
)

var transitions = lifecycle.Table[Status]{
	{From: StatusCreated, Op: OpConfirm}:  StatusConfirmed,
	{From: StatusConfirmed, Op: OpShip}:   StatusShipped,
	{From: StatusShipped, Op: OpDeliver}:  StatusDelivered,
	{From: StatusCreated, Op: OpCancel}:   StatusCancelled,
	{From: StatusConfirmed, Op: OpCancel}: StatusCancelled,
	{From: StatusDelivered, Op: OpReturn}: StatusReturned,
	{From: StatusCreated, Op: OpDelete}:   StatusDeleted,
	{From: StatusCancelled, Op: OpDelete}: StatusDeleted,
	{From: StatusReturned, Op: OpDelete}:  StatusDeleted,
}

// Order is the core sales aggregate.
type Order struct {
	lifecycle.Root

	ID            int64
	CustomerID    int64
	Status        Status
	PaymentStatus PaymentStatus
	TotalCents    int64
	Currency      string
	TrackingCode  string
	CancelReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Version is the persistence concurrency token. The repository sets it
	// on load and guards writes with it; zero means never persisted.
	Version int64
}

// New creates an order in the Created state and raises order.created.
func New(id, customerID, totalCents int64, currency string) *Order {
	o := &Order{
		ID:            id,
		CustomerID:    customerID,
		Status:        StatusCreated,
		PaymentStatus: PaymentPending,
		TotalCents:    totalCents,
		Currency:      currency,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	o.Raise(event.New(AggregateType, o.AggregateID(), EventTypeCreated, CreatedPayload{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
	}))
	return o
}

func (o *Order) AggregateID() string {
	return strconv.FormatInt(o.ID, 10)
}

func (o *Order) AggregateType() string {
	return AggregateType
}

// transition applies op via the table. It mutates nothing on failure.
func (o *Order) transition(op lifecycle.Op) error {
	if o.IsDeleted() {
		return &lifecycle.AlreadyDeletedError{AggregateType: AggregateType, AggregateID: o.AggregateID()}
	}
	next, err := transitions.Next(AggregateType, o.Status, op)
	if err != nil {
		return err
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Confirm moves the order to Confirmed and captures the payment. Both
// guards are checked before either field changes, so a refused confirm
// leaves the order fully untouched.
func (o *Order) Confirm() error {
	if o.IsDeleted() {
		return &lifecycle.AlreadyDeletedError{AggregateType: AggregateType, AggregateID: o.AggregateID()}
	}
	if !transitions.Allowed(o.Status, OpConfirm) {
		return &lifecycle.InvalidTransitionError{AggregateType: AggregateType, Current: string(o.Status), Operation: string(OpConfirm)}
	}
	if o.PaymentStatus != PaymentPending {
		return &lifecycle.InvalidTransitionError{AggregateType: AggregateType, Current: string(o.PaymentStatus), Operation: string(OpConfirm)}
	}

	o.Status = StatusConfirmed
	o.PaymentStatus = PaymentCaptured
	o.UpdatedAt = time.Now().UTC()
	o.Raise(event.New(AggregateType, o.AggregateID(), EventTypeConfirmed, ConfirmedPayload{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
	}))
	return nil
}

// Ship records the carrier tracking code and moves the order to Shipped.
func (o *Order) Ship(trackingCode string) error {
	if err := o.transition(OpShip); err != nil {
		return err
	}
	o.TrackingCode = trackingCode
	o.Raise(event.New(AggregateType, o.AggregateID(), EventTypeShipped, ShippedPayload{
		OrderID:      o.ID,
		CustomerID:   o.CustomerID,
		TrackingCode: trackingCode,
	}))
	return nil
}

// Deliver moves the order to Delivered.
func (o *Order) Deliver() error {
	if err := o.transition(OpDeliver); err != nil {
		return err
	}
	o.Raise(event.New(AggregateType, o.AggregateID(), EventTypeDelivered, DeliveredPayload{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
	}))
	return nil
}

// Cancel aborts an order before shipment. A captured payment is refunded in
// the same transition.
func (o *Order) Cancel(reason string) error {
	if err := o.transition(OpCancel); err != nil {
		return err
	}
	refunded := o.PaymentStatus == PaymentCaptured
	if refunded {
		o.PaymentStatus = PaymentRefunded
	}
	o.CancelReason = reason
	o.Raise(event.New(AggregateType, o.AggregateID(), EventTypeCancelled, CancelledPayload{
		OrderID:  o.ID,
		Reason:   reason,
		Refunded: refunded,
	}))
	return nil
}

// MarkReturned records a completed customer return of a delivered order.
func (o *Order) MarkReturned() error {
	if err := o.transition(OpReturn); err != nil {
		return err
	}
	o.PaymentStatus = PaymentRefunded
	o.Raise(event.New(AggregateType, o.AggregateID(), EventTypeReturned, ReturnedPayload{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
	}))
	return nil
}

// MarkAsDeleted soft-deletes the order. Deleted is terminal; every further
// operation fails with AlreadyDeletedError.
func (o *Order) MarkAsDeleted() error {
	if err := o.transition(OpDelete); err != nil {
		return err
	}
	o.SetDeleted(true)
	o.Raise(event.New(AggregateType, o.AggregateID(), EventTypeDeleted, DeletedPayload{OrderID: o.ID}))
	return nil
}

// Package subscription models a recurring product subscription.
package subscription

import (
	"strconv"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

const AggregateType = "subscription"

type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
	StatusDeleted   Status = "deleted"
)

const (
	OpActivate lifecycle.Op = "activate"
	OpSuspend  lifecycle.Op = "suspend"
	OpResume   lifecycle.Op = "resume"
	OpCancel   lifecycle.Op = "cancel"
	OpDelete   lifecycle.Op = "delete"
)

var transitions = lifecycle.Table[Status]{
	{From: StatusTrial, Op: OpActivate}:   StatusActive,
	{From: StatusActive, Op: OpSuspend}:   StatusSuspended,
	{From: StatusSuspended, Op: OpResume}: StatusActive,
	{From: StatusTrial, Op: OpCancel}:     StatusCancelled,
	{From: StatusActive, Op: OpCancel}:    StatusCancelled,
	{From: StatusSuspended, Op: OpCancel}: StatusCancelled,
	{From: StatusCancelled, Op: OpDelete}: StatusDeleted,
}

const (
	EventTypeActivated = "subscription.activated"
	EventTypeSuspended = "subscription.suspended"
	EventTypeResumed   = "subscription.resumed"
	EventTypeCancelled = "subscription.cancelled"
	EventTypeDeleted   = "subscription.deleted"
)

type Payload struct {
	SubscriptionID int64  `json:"subscription_id"`
	CustomerID     int64  `json:"customer_id"`
	PlanCode       string `json:"plan_code"`
}

func RegisterEvents(r *event.Registry) {
	r.Register(EventTypeActivated, Payload{})
	r.Register(EventTypeSuspended, Payload{})
	r.Register(EventTypeResumed, Payload{})
	r.Register(EventTypeCancelled, Payload{})
	r.Register(EventTypeDeleted, Payload{})
}

type Subscription struct {
	lifecycle.Root

	ID         int64
	CustomerID int64
	PlanCode   string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(id, customerID int64, planCode string) *Subscription {
	return &Subscription{
		ID:         id,
		CustomerID: customerID,
		PlanCode:   planCode,
		Status:     StatusTrial,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
}

func (s *Subscription) AggregateID() string {
	return strconv.FormatInt(s.ID, 10)
}

func (s *Subscription) AggregateType() string {
	return AggregateType
}

func (s *Subscription) payload() Payload {
	return Payload{SubscriptionID: s.ID, CustomerID: s.CustomerID, PlanCode: s.PlanCode}
}

func (s *Subscription) apply(op lifecycle.Op, eventType string) error {
	if s.IsDeleted() {
		return &lifecycle.AlreadyDeletedError{AggregateType: AggregateType, AggregateID: s.AggregateID()}
	}
	next, err := transitions.Next(AggregateType, s.Status, op)
	if err != nil {
		return err
	}
	s.Status = next
	s.UpdatedAt = time.Now().UTC()
	s.Raise(event.New(AggregateType, s.AggregateID(), eventType, s.payload()))
	return nil
}

func (s *Subscription) Activate() error {
	return s.apply(OpActivate, EventTypeActivated)
}

func (s *Subscription) Suspend() error {
	return s.apply(OpSuspend, EventTypeSuspended)
}

func (s *Subscription) Resume() error {
	return s.apply(OpResume, EventTypeResumed)
}

func (s *Subscription) Cancel() error {
	return s.apply(OpCancel, EventTypeCancelled)
}

func (s *Subscription) MarkAsDeleted() error {
	if err := s.apply(OpDelete, EventTypeDeleted); err != nil {
		return err
	}
	s.SetDeleted(true)
	return nil
}

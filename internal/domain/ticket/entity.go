// Package ticket models a customer support ticket.
package ticket

import (
	"strconv"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

const AggregateType = "support_ticket"

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
	StatusDeleted    Status = "deleted"
)

const (
	OpStart   lifecycle.Op = "start"
	OpResolve lifecycle.Op = "resolve"
	OpClose   lifecycle.Op = "close"
	OpReopen  lifecycle.Op = "reopen"
	OpDelete  lifecycle.Op = "delete"
)

var transitions = lifecycle.Table[Status]{
	{From: StatusOpen, Op: OpStart}:         StatusInProgress,
	{From: StatusInProgress, Op: OpResolve}: StatusResolved,
	{From: StatusResolved, Op: OpClose}:     StatusClosed,
	{From: StatusResolved, Op: OpReopen}:    StatusOpen,
	{From: StatusOpen, Op: OpDelete}:        StatusDeleted,
	{From: StatusClosed, Op: OpDelete}:      StatusDeleted,
}

const (
	EventTypeOpened   = "support_ticket.opened"
	EventTypeResolved = "support_ticket.resolved"
	EventTypeClosed   = "support_ticket.closed"
	EventTypeReopened = "support_ticket.reopened"
	EventTypeDeleted  = "support_ticket.deleted"
)

type Payload struct {
	TicketID   int64 `json:"ticket_id"`
	CustomerID int64 `json:"customer_id"`
	AgentID    int64 `json:"agent_id,omitempty"`
}

func RegisterEvents(r *event.Registry) {
	r.Register(EventTypeOpened, Payload{})
	r.Register(EventTypeResolved, Payload{})
	r.Register(EventTypeClosed, Payload{})
	r.Register(EventTypeReopened, Payload{})
	r.Register(EventTypeDeleted, Payload{})
}

type Ticket struct {
	lifecycle.Root

	ID         int64
	CustomerID int64
	AgentID    int64
	Subject    string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(id, customerID int64, subject string) *Ticket {
	t := &Ticket{
		ID:         id,
		CustomerID: customerID,
		Subject:    subject,
		Status:     StatusOpen,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	t.Raise(event.New(AggregateType, t.AggregateID(), EventTypeOpened, t.payload()))
	return t
}

func (t *Ticket) AggregateID() string {
	return strconv.FormatInt(t.ID, 10)
}

func (t *Ticket) AggregateType() string {
	return AggregateType
}

func (t *Ticket) payload() Payload {
	return Payload{TicketID: t.ID, CustomerID: t.CustomerID, AgentID: t.AgentID}
}

func (t *Ticket) transition(op lifecycle.Op) error {
	if t.IsDeleted() {
		return &lifecycle.AlreadyDeletedError{AggregateType: AggregateType, AggregateID: t.AggregateID()}
	}
	next, err := transitions.Next(AggregateType, t.Status, op)
	if err != nil {
		return err
	}
	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Start assigns an agent and begins work on the ticket.
func (t *Ticket) Start(agentID int64) error {
	if err := t.transition(OpStart); err != nil {
		return err
	}
	t.AgentID = agentID
	return nil
}

func (t *Ticket) Resolve() error {
	if err := t.transition(OpResolve); err != nil {
		return err
	}
	t.Raise(event.New(AggregateType, t.AggregateID(), EventTypeResolved, t.payload()))
	return nil
}

func (t *Ticket) Close() error {
	if err := t.transition(OpClose); err != nil {
		return err
	}
	t.Raise(event.New(AggregateType, t.AggregateID(), EventTypeClosed, t.payload()))
	return nil
}

// Reopen moves a resolved ticket back to Open when the customer replies.
func (t *Ticket) Reopen() error {
	if err := t.transition(OpReopen); err != nil {
		return err
	}
	t.Raise(event.New(AggregateType, t.AggregateID(), EventTypeReopened, t.payload()))
	return nil
}

func (t *Ticket) MarkAsDeleted() error {
	if err := t.transition(OpDelete); err != nil {
		return err
	}
	t.SetDeleted(true)
	t.Raise(event.New(AggregateType, t.AggregateID(), EventTypeDeleted, t.payload()))
	return nil
}

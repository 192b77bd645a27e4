// Package livestream models a scheduled shopping live stream.
package livestream

import (
	"strconv"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

const AggregateType = "live_stream"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
	StatusDeleted   Status = "deleted"
)

const (
	OpStart  lifecycle.Op = "start"
	OpEnd    lifecycle.Op = "end"
	OpCancel lifecycle.Op = "cancel"
	OpDelete lifecycle.Op = "delete"
)

var transitions = lifecycle.Table[Status]{
	{From: StatusScheduled, Op: OpStart}:  StatusLive,
	{From: StatusLive, Op: OpEnd}:         StatusEnded,
	{From: StatusScheduled, Op: OpCancel}: StatusCancelled,
	{From: StatusEnded, Op: OpDelete}:     StatusDeleted,
	{From: StatusCancelled, Op: OpDelete}: StatusDeleted,
}

const (
	EventTypeStarted   = "live_stream.started"
	EventTypeEnded     = "live_stream.ended"
	EventTypeCancelled = "live_stream.cancelled"
	EventTypeDeleted   = "live_stream.deleted"
)

type Payload struct {
	LiveStreamID int64  `json:"live_stream_id"`
	HostID       int64  `json:"host_id"`
	Title        string `json:"title"`
}

func RegisterEvents(r *event.Registry) {
	r.Register(EventTypeStarted, Payload{})
	r.Register(EventTypeEnded, Payload{})
	r.Register(EventTypeCancelled, Payload{})
	r.Register(EventTypeDeleted, Payload{})
}

type LiveStream struct {
	lifecycle.Root

	ID          int64
	HostID      int64
	Title       string
	ScheduledAt time.Time
	StartedAt   *time.Time
	EndedAt     *time.Time
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(id, hostID int64, title string, scheduledAt time.Time) *LiveStream {
	return &LiveStream{
		ID:          id,
		HostID:      hostID,
		Title:       title,
		ScheduledAt: scheduledAt,
		Status:      StatusScheduled,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func (l *LiveStream) AggregateID() string {
	return strconv.FormatInt(l.ID, 10)
}

func (l *LiveStream) AggregateType() string {
	return AggregateType
}

func (l *LiveStream) payload() Payload {
	return Payload{LiveStreamID: l.ID, HostID: l.HostID, Title: l.Title}
}

func (l *LiveStream) transition(op lifecycle.Op) error {
	if l.IsDeleted() {
		return &lifecycle.AlreadyDeletedError{AggregateType: AggregateType, AggregateID: l.AggregateID()}
	}
	next, err := transitions.Next(AggregateType, l.Status, op)
	if err != nil {
		return err
	}
	l.Status = next
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *LiveStream) Start() error {
	if err := l.transition(OpStart); err != nil {
		return err
	}
	now := time.Now().UTC()
	l.StartedAt = &now
	l.Raise(event.New(AggregateType, l.AggregateID(), EventTypeStarted, l.payload()))
	return nil
}

func (l *LiveStream) End() error {
	if err := l.transition(OpEnd); err != nil {
		return err
	}
	now := time.Now().UTC()
	l.EndedAt = &now
	l.Raise(event.New(AggregateType, l.AggregateID(), EventTypeEnded, l.payload()))
	return nil
}

func (l *LiveStream) Cancel() error {
	if err := l.transition(OpCancel); err != nil {
		return err
	}
	l.Raise(event.New(AggregateType, l.AggregateID(), EventTypeCancelled, l.payload()))
	return nil
}

func (l *LiveStream) MarkAsDeleted() error {
	if err := l.transition(OpDelete); err != nil {
		return err
	}
	l.SetDeleted(true)
	l.Raise(event.New(AggregateType, l.AggregateID(), EventTypeDeleted, l.payload()))
	return nil
}

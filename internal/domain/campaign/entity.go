// Package campaign models an email marketing campaign.
package campaign

import (
	"strconv"
	"time"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

const AggregateType = "email_campaign"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

const (
	OpSchedule   lifecycle.Op = "schedule"
	OpStartSend  lifecycle.Op = "start_send"
	OpFinishSend lifecycle.Op = "finish_send"
	OpArchive    lifecycle.Op = "archive"
	OpDelete     lifecycle.Op = "delete"
)

var transitions = lifecycle.Table[Status]{
	{From: StatusDraft, Op: OpSchedule}:      StatusScheduled,
	{From: StatusScheduled, Op: OpStartSend}: StatusSending,
	{From: StatusSending, Op: OpFinishSend}:  StatusSent,
	{From: StatusDraft, Op: OpArchive}:       StatusArchived,
	{From: StatusScheduled, Op: OpArchive}:   StatusArchived,
	{From: StatusDraft, Op: OpDelete}:        StatusDeleted,
	{From: StatusArchived, Op: OpDelete}:     StatusDeleted,
}

const (
	EventTypeScheduled = "email_campaign.scheduled"
	EventTypeSending   = "email_campaign.sending"
	EventTypeSent      = "email_campaign.sent"
	EventTypeArchived  = "email_campaign.archived"
	EventTypeDeleted   = "email_campaign.deleted"
)

type Payload struct {
	CampaignID int64  `json:"campaign_id"`
	Subject    string `json:"subject"`
	SegmentID  int64  `json:"segment_id"`
}

func RegisterEvents(r *event.Registry) {
	r.Register(EventTypeScheduled, Payload{})
	r.Register(EventTypeSending, Payload{})
	r.Register(EventTypeSent, Payload{})
	r.Register(EventTypeArchived, Payload{})
	r.Register(EventTypeDeleted, Payload{})
}

type Campaign struct {
	lifecycle.Root

	ID        int64
	Subject   string
	SegmentID int64
	SendAt    *time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, segmentID int64, subject string) *Campaign {
	return &Campaign{
		ID:        id,
		SegmentID: segmentID,
		Subject:   subject,
		Status:    StatusDraft,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func (c *Campaign) AggregateID() string {
	return strconv.FormatInt(c.ID, 10)
}

func (c *Campaign) AggregateType() string {
	return AggregateType
}

func (c *Campaign) payload() Payload {
	return Payload{CampaignID: c.ID, Subject: c.Subject, SegmentID: c.SegmentID}
}

func (c *Campaign) apply(op lifecycle.Op, eventType string) error {
	if c.IsDeleted() {
		return &lifecycle.AlreadyDeletedError{AggregateType: AggregateType, AggregateID: c.AggregateID()}
	}
	next, err := transitions.Next(AggregateType, c.Status, op)
	if err != nil {
		return err
	}
	c.Status = next
	c.UpdatedAt = time.Now().UTC()
	c.Raise(event.New(AggregateType, c.AggregateID(), eventType, c.payload()))
	return nil
}

// Schedule sets the send time and moves the campaign to Scheduled.
func (c *Campaign) Schedule(sendAt time.Time) error {
	if err := c.apply(OpSchedule, EventTypeScheduled); err != nil {
		return err
	}
	c.SendAt = &sendAt
	return nil
}

func (c *Campaign) StartSending() error {
	return c.apply(OpStartSend, EventTypeSending)
}

func (c *Campaign) FinishSending() error {
	return c.apply(OpFinishSend, EventTypeSent)
}

func (c *Campaign) Archive() error {
	return c.apply(OpArchive, EventTypeArchived)
}

func (c *Campaign) MarkAsDeleted() error {
	if err := c.apply(OpDelete, EventTypeDeleted); err != nil {
		return err
	}
	c.SetDeleted(true)
	return nil
}

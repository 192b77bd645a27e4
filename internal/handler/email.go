package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/order"
	"github.com/harborlabs/harbor-backoffice/pkg/mailclient"
)

// EmailSender sends transactional mail for order milestones.
type EmailSender struct {
	guard  *Guard
	mail   *mailclient.Client
	logger *zap.Logger
}

func NewEmailSender(guard *Guard, mail *mailclient.Client, logger *zap.Logger) *EmailSender {
	return &EmailSender{guard: guard, mail: mail, logger: logger.Named("handler.email")}
}

func (h *EmailSender) Name() string {
	return "email_sender"
}

func (h *EmailSender) Handle(ctx context.Context, evt event.DomainEvent) error {
	return h.guard.Run(ctx, h.Name(), evt.EventID, func(ctx context.Context, _ *gorm.DB) error {
		req, err := h.request(evt)
		if err != nil {
			return err
		}
		if err := h.mail.SendEmail(ctx, req); err != nil {
			return fmt.Errorf("send %s mail: %w", evt.EventType, err)
		}
		h.logger.Info("order_mail_sent",
			zap.String("event_type", evt.EventType),
			zap.String("aggregate_id", evt.AggregateID),
		)
		return nil
	})
}

func (h *EmailSender) request(evt event.DomainEvent) (mailclient.SendEmailRequest, error) {
	switch payload := evt.Payload.(type) {
	case *order.ConfirmedPayload:
		return mailclient.SendEmailRequest{
			To:             fmt.Sprintf("customer-%d", payload.CustomerID),
			Template:       "order-confirmed",
			IdempotencyKey: evt.EventID.String(),
			Data: map[string]any{
				"order_id":    payload.OrderID,
				"total_cents": payload.TotalCents,
				"currency":    payload.Currency,
			},
		}, nil
	case *order.ShippedPayload:
		return mailclient.SendEmailRequest{
			To:             fmt.Sprintf("customer-%d", payload.CustomerID),
			Template:       "order-shipped",
			IdempotencyKey: evt.EventID.String(),
			Data: map[string]any{
				"order_id":      payload.OrderID,
				"tracking_code": payload.TrackingCode,
			},
		}, nil
	default:
		return mailclient.SendEmailRequest{}, fmt.Errorf("no mail template for event type %s", evt.EventType)
	}
}

package order

import "github.com/harborlabs/harbor-backoffice/internal/domain/event"

const (
	EventTypeCreated   = "order.created"
	EventTypeConfirmed = "order.confirmed"
	EventTypeShipped   = "order.shipped"
	EventTypeDelivered = "order.delivered"
	EventTypeCancelled = "order.cancelled"
	EventTypeReturned  = "order.returned"
	EventTypeDeleted   = "order.deleted"
)

type CreatedPayload struct {
	OrderID    int64  `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}

type ConfirmedPayload struct {
	OrderID    int64  `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}

type ShippedPayload struct {
	OrderID      int64  `json:"order_id"`
	CustomerID   int64  `json:"customer_id"`
	TrackingCode string `json:"tracking_code"`
}

type DeliveredPayload struct {
	OrderID    int64 `json:"order_id"`
	CustomerID int64 `json:"customer_id"`
}

type CancelledPayload struct {
	OrderID  int64  `json:"order_id"`
	Reason   string `json:"reason"`
	Refunded bool   `json:"refunded"`
}

type ReturnedPayload struct {
	OrderID    int64 `json:"order_id"`
	CustomerID int64 `json:"customer_id"`
}

type DeletedPayload struct {
	OrderID int64 `json:"order_id"`
}

// RegisterEvents wires this package's payload types into the registry used
// by the relay to decode stored messages.
func RegisterEvents(r *event.Registry) {
	r.Register(EventTypeCreated, CreatedPayload{})
	r.Register(EventTypeConfirmed, ConfirmedPayload{})
	r.Register(EventTypeShipped, ShippedPayload{})
	r.Register(EventTypeDelivered, DeliveredPayload{})
	r.Register(EventTypeCancelled, CancelledPayload{})
	r.Register(EventTypeReturned, ReturnedPayload{})
	r.Register(EventTypeDeleted, DeletedPayload{})
}

package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

func newTestOrder() *Order {
	o := New(1001, 42, 2599, "EUR")
	o.ClearPendingEvents()
	return o
}

func TestNew(t *testing.T) {
	o := New(1001, 42, 2599, "EUR")

	assert.Equal(t, StatusCreated, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, "1001", o.AggregateID())
	assert.Equal(t, AggregateType, o.AggregateType())

	pending := o.PendingEvents()
	require.Len(t, pending, 1)
	assert.Equal(t, EventTypeCreated, pending[0].EventType)
	payload, ok := pending[0].Payload.(CreatedPayload)
	require.True(t, ok)
	assert.Equal(t, int64(1001), payload.OrderID)
	assert.Equal(t, int64(42), payload.CustomerID)
}

func TestConfirm(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Confirm())

	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, PaymentCaptured, o.PaymentStatus)

	pending := o.PendingEvents()
	require.Len(t, pending, 1)
	assert.Equal(t, EventTypeConfirmed, pending[0].EventType)
}

func TestConfirm_PaymentAlreadyCaptured(t *testing.T) {
	o := newTestOrder()
	o.PaymentStatus = PaymentCaptured

	err := o.Confirm()
	require.Error(t, err)

	// Atomic guard: neither field changed.
	assert.Equal(t, StatusCreated, o.Status)
	assert.Equal(t, PaymentCaptured, o.PaymentStatus)
	assert.Empty(t, o.PendingEvents())
}

func TestShip(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Confirm())
	require.NoError(t, o.Ship("TRK-777"))

	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, "TRK-777", o.TrackingCode)

	pending := o.PendingEvents()
	require.Len(t, pending, 2)
	assert.Equal(t, EventTypeConfirmed, pending[0].EventType)
	assert.Equal(t, EventTypeShipped, pending[1].EventType)
	payload, ok := pending[1].Payload.(ShippedPayload)
	require.True(t, ok)
	assert.Equal(t, "TRK-777", payload.TrackingCode)
}

func TestShip_FromCreated(t *testing.T) {
	o := newTestOrder()

	err := o.Ship("TRK-777")
	require.Error(t, err)

	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusCreated, o.Status)
	assert.Empty(t, o.TrackingCode)
	assert.Empty(t, o.PendingEvents())
}

func TestCancel_BeforeCapture(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Cancel("changed my mind"))

	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)

	pending := o.PendingEvents()
	require.Len(t, pending, 1)
	payload, ok := pending[0].Payload.(CancelledPayload)
	require.True(t, ok)
	assert.False(t, payload.Refunded)
}

func TestCancel_AfterCapture_Refunds(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Confirm())
	require.NoError(t, o.Cancel("out of stock"))

	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)

	pending := o.PendingEvents()
	require.Len(t, pending, 2)
	payload, ok := pending[1].Payload.(CancelledPayload)
	require.True(t, ok)
	assert.True(t, payload.Refunded)
	assert.Equal(t, "out of stock", payload.Reason)
}

func TestCancel_AfterShipment(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Confirm())
	require.NoError(t, o.Ship("TRK-777"))

	require.Error(t, o.Cancel("too late"))
	assert.Equal(t, StatusShipped, o.Status)
}

func TestMarkReturned(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Confirm())
	require.NoError(t, o.Ship("TRK-777"))
	require.NoError(t, o.Deliver())
	require.NoError(t, o.MarkReturned())

	assert.Equal(t, StatusReturned, o.Status)
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)
}

func TestMarkAsDeleted(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Cancel("test"))
	require.NoError(t, o.MarkAsDeleted())

	assert.Equal(t, StatusDeleted, o.Status)
	assert.True(t, o.IsDeleted())
}

func TestMarkAsDeleted_Terminal(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.MarkAsDeleted())

	err := o.Confirm()
	require.Error(t, err)

	var deleted *lifecycle.AlreadyDeletedError
	require.ErrorAs(t, err, &deleted)
	assert.Equal(t, "1001", deleted.AggregateID)

	// Every operation on a deleted order fails the same way.
	require.ErrorAs(t, o.Ship("x"), &deleted)
	require.ErrorAs(t, o.Cancel("x"), &deleted)
	require.ErrorAs(t, o.MarkAsDeleted(), &deleted)
}

func TestMarkAsDeleted_NotFromConfirmed(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Confirm())

	require.Error(t, o.MarkAsDeleted())
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.False(t, o.IsDeleted())
}

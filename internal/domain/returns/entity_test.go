package returns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

func TestNew(t *testing.T) {
	r := New(9001, 1001, "damaged item")

	assert.Equal(t, StatusRequested, r.Status)
	assert.Equal(t, "9001", r.AggregateID())

	pending := r.PendingEvents()
	require.Len(t, pending, 1)
	assert.Equal(t, EventTypeRequested, pending[0].EventType)
	payload, ok := pending[0].Payload.(Payload)
	require.True(t, ok)
	assert.Equal(t, int64(1001), payload.OrderID)
	assert.Equal(t, "damaged item", payload.Reason)
}

func TestApproveComplete(t *testing.T) {
	r := New(9001, 1001, "damaged item")
	r.ClearPendingEvents()

	require.NoError(t, r.Approve())
	require.NoError(t, r.Complete())
	assert.Equal(t, StatusCompleted, r.Status)

	pending := r.PendingEvents()
	require.Len(t, pending, 2)
	assert.Equal(t, EventTypeApproved, pending[0].EventType)
	assert.Equal(t, EventTypeCompleted, pending[1].EventType)
}

func TestReject(t *testing.T) {
	r := New(9001, 1001, "damaged item")
	r.ClearPendingEvents()

	require.NoError(t, r.Reject("outside return window"))
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, "outside return window", r.RejectReason)

	pending := r.PendingEvents()
	require.Len(t, pending, 1)
	payload, ok := pending[0].Payload.(Payload)
	require.True(t, ok)
	assert.Equal(t, "outside return window", payload.Reason)
}

func TestCompleteRequiresApproval(t *testing.T) {
	r := New(9001, 1001, "damaged item")

	err := r.Complete()
	require.Error(t, err)

	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusRequested, r.Status)
}

func TestRejectedIsTerminalForApproval(t *testing.T) {
	r := New(9001, 1001, "damaged item")
	require.NoError(t, r.Reject("no"))

	require.Error(t, r.Approve())
	require.Error(t, r.Complete())
	assert.Equal(t, StatusRejected, r.Status)
}

func TestDelete(t *testing.T) {
	r := New(9001, 1001, "damaged item")
	require.NoError(t, r.Reject("no"))
	require.NoError(t, r.MarkAsDeleted())
	assert.True(t, r.IsDeleted())

	var deleted *lifecycle.AlreadyDeletedError
	require.ErrorAs(t, r.Approve(), &deleted)
}

func TestDeleteNotFromApproved(t *testing.T) {
	// An approved return is in flight; it must complete before deletion.
	r := New(9001, 1001, "damaged item")
	require.NoError(t, r.Approve())
	require.Error(t, r.MarkAsDeleted())
	assert.False(t, r.IsDeleted())
}

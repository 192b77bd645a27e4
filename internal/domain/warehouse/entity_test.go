package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

func TestDeactivateActivateCycle(t *testing.T) {
	w := New(1, "AMS-1", "eu-west")
	assert.Equal(t, StatusActive, w.Status)
	assert.Empty(t, w.PendingEvents())

	require.NoError(t, w.Deactivate())
	assert.Equal(t, StatusInactive, w.Status)
	require.NoError(t, w.Activate())
	assert.Equal(t, StatusActive, w.Status)

	pending := w.PendingEvents()
	require.Len(t, pending, 2)
	assert.Equal(t, EventTypeDeactivated, pending[0].EventType)
	assert.Equal(t, EventTypeActivated, pending[1].EventType)
}

func TestActivateRequiresInactive(t *testing.T) {
	w := New(1, "AMS-1", "eu-west")
	err := w.Activate()

	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusActive, w.Status)
	assert.Empty(t, w.PendingEvents())
}

func TestDeleteRequiresDeactivation(t *testing.T) {
	w := New(1, "AMS-1", "eu-west")
	err := w.MarkAsDeleted()

	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.False(t, w.IsDeleted())

	require.NoError(t, w.Deactivate())
	require.NoError(t, w.MarkAsDeleted())
	assert.True(t, w.IsDeleted())

	pending := w.PendingEvents()
	require.Len(t, pending, 2)
	assert.Equal(t, EventTypeDeleted, pending[1].EventType)

	// Terminal: a deleted warehouse cannot come back.
	var deleted *lifecycle.AlreadyDeletedError
	require.ErrorAs(t, w.Activate(), &deleted)
}

package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
)

func TestResolveFlow(t *testing.T) {
	tk := New(1, 2001, "Parcel arrived damaged")
	assert.Equal(t, StatusOpen, tk.Status)

	require.NoError(t, tk.Start(88))
	assert.Equal(t, int64(88), tk.AgentID)
	require.NoError(t, tk.Resolve())
	require.NoError(t, tk.Close())
	assert.Equal(t, StatusClosed, tk.Status)

	// Opening and the two outcomes emit events; assignment does not.
	pending := tk.PendingEvents()
	require.Len(t, pending, 3)
	assert.Equal(t, EventTypeOpened, pending[0].EventType)
	assert.Equal(t, EventTypeResolved, pending[1].EventType)
	assert.Equal(t, EventTypeClosed, pending[2].EventType)
}

func TestReopenOnCustomerReply(t *testing.T) {
	tk := New(1, 2001, "Parcel arrived damaged")
	require.NoError(t, tk.Start(88))
	require.NoError(t, tk.Resolve())

	require.NoError(t, tk.Reopen())
	assert.Equal(t, StatusOpen, tk.Status)

	// A reopened ticket runs the flow again.
	require.NoError(t, tk.Start(89))
	require.NoError(t, tk.Resolve())
	require.NoError(t, tk.Close())
}

func TestNoSkippingStages(t *testing.T) {
	tests := []struct {
		name string
		fn   func(tk *Ticket) error
	}{
		{"resolve before start", func(tk *Ticket) error { return tk.Resolve() }},
		{"close before resolve", func(tk *Ticket) error { return tk.Close() }},
		{"reopen while open", func(tk *Ticket) error { return tk.Reopen() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := New(1, 2001, "Parcel arrived damaged")
			err := tt.fn(tk)
			require.Error(t, err)

			var invalid *lifecycle.InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, StatusOpen, tk.Status)
		})
	}
}

func TestDeleteOnlyWhileOpenOrClosed(t *testing.T) {
	tk := New(1, 2001, "Parcel arrived damaged")
	require.NoError(t, tk.MarkAsDeleted())
	assert.True(t, tk.IsDeleted())

	tk = New(2, 2002, "Wrong size")
	require.NoError(t, tk.Start(88))
	err := tk.MarkAsDeleted()

	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.False(t, tk.IsDeleted())

	require.NoError(t, tk.Resolve())
	require.NoError(t, tk.Close())
	require.NoError(t, tk.MarkAsDeleted())
	assert.True(t, tk.IsDeleted())
}

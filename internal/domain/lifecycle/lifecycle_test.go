package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
)

type testStatus string

const (
	statusDraft     testStatus = "draft"
	statusPublished testStatus = "published"
	statusArchived  testStatus = "archived"
)

var testTable = Table[testStatus]{
	{From: statusDraft, Op: "publish"}:     statusPublished,
	{From: statusPublished, Op: "archive"}: statusArchived,
}

func TestTableNext(t *testing.T) {
	next, err := testTable.Next("doc", statusDraft, "publish")
	require.NoError(t, err)
	assert.Equal(t, statusPublished, next)
}

func TestTableNext_Refused(t *testing.T) {
	tests := []struct {
		name    string
		current testStatus
		op      Op
	}{
		{"unknown op", statusDraft, "archive"},
		{"wrong state", statusArchived, "publish"},
		{"terminal state", statusArchived, "archive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := testTable.Next("doc", tt.current, tt.op)
			require.Error(t, err)

			// Refused transitions leave the state where it was.
			assert.Equal(t, tt.current, next)

			var invalid *InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "doc", invalid.AggregateType)
			assert.Equal(t, string(tt.current), invalid.Current)
			assert.Equal(t, string(tt.op), invalid.Operation)
		})
	}
}

func TestTableAllowed(t *testing.T) {
	assert.True(t, testTable.Allowed(statusDraft, "publish"))
	assert.False(t, testTable.Allowed(statusDraft, "archive"))
}

func TestInvalidTransitionError_Message(t *testing.T) {
	err := &InvalidTransitionError{AggregateType: "order", Current: "created", Operation: "ship"}
	assert.Equal(t, `order: operation "ship" not allowed in state "created"`, err.Error())
}

func TestRootPendingEvents(t *testing.T) {
	var r Root
	assert.Empty(t, r.PendingEvents())

	first := event.New("doc", "1", "doc.published", nil)
	second := event.New("doc", "1", "doc.archived", nil)
	r.Raise(first)
	r.Raise(second)

	pending := r.PendingEvents()
	require.Len(t, pending, 2)
	assert.Equal(t, first.EventID, pending[0].EventID)
	assert.Equal(t, second.EventID, pending[1].EventID)

	// The returned slice is a copy; mutating it must not touch the buffer.
	pending[0] = event.DomainEvent{}
	assert.Equal(t, first.EventID, r.PendingEvents()[0].EventID)

	r.ClearPendingEvents()
	assert.Empty(t, r.PendingEvents())
}

func TestRootDeletedFlag(t *testing.T) {
	var r Root
	assert.False(t, r.IsDeleted())
	r.SetDeleted(true)
	assert.True(t, r.IsDeleted())
}

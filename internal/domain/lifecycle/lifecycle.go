// Package lifecycle provides the guarded state machine shared by all
// aggregates: a transition table keyed by (current state, operation) and a
// Root type carrying the pending-event buffer and the soft-delete flag.
package lifecycle

import (
	"fmt"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
)

// Op names a guarded operation on an aggregate.
type Op string

// Key identifies one allowed transition.
type Key[S ~string] struct {
	From S
	Op   Op
}

// Table maps (current state, operation) to the resulting state. An operation
// absent from the table is not allowed from that state.
type Table[S ~string] map[Key[S]]S

// Next resolves the target state for op from current. It returns an
// InvalidTransitionError when the pair is not in the table.
func (t Table[S]) Next(aggregateType string, current S, op Op) (S, error) {
	next, ok := t[Key[S]{From: current, Op: op}]
	if !ok {
		return current, &InvalidTransitionError{
			AggregateType: aggregateType,
			Current:       string(current),
			Operation:     string(op),
		}
	}
	return next, nil
}

// Allowed reports whether op may be applied from current.
func (t Table[S]) Allowed(current S, op Op) bool {
	_, ok := t[Key[S]{From: current, Op: op}]
	return ok
}

// InvalidTransitionError is returned when an operation is attempted from a
// state that does not allow it. The aggregate is left unchanged.
type InvalidTransitionError struct {
	AggregateType string
	Current       string
	Operation     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: operation %q not allowed in state %q", e.AggregateType, e.Operation, e.Current)
}

// AlreadyDeletedError is returned for any operation on a soft-deleted
// aggregate.
type AlreadyDeletedError struct {
	AggregateType string
	AggregateID   string
}

func (e *AlreadyDeletedError) Error() string {
	return fmt.Sprintf("%s %s is deleted", e.AggregateType, e.AggregateID)
}

// Root is embedded by every aggregate. It buffers domain events raised by
// transitions until the unit of work drains them at commit, and tracks the
// soft-delete flag. The buffer is append-only; only ClearPendingEvents
// empties it.
type Root struct {
	deleted bool
	pending []event.DomainEvent
}

// Raise appends a domain event to the pending buffer. Aggregates never
// publish directly; the buffer is drained exactly once by the unit of work.
func (r *Root) Raise(e event.DomainEvent) {
	r.pending = append(r.pending, e)
}

// PendingEvents returns the buffered events in the order they were raised.
func (r *Root) PendingEvents() []event.DomainEvent {
	out := make([]event.DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

// ClearPendingEvents empties the buffer. Called by the unit of work after a
// successful commit so a retried caller cannot double-enqueue.
func (r *Root) ClearPendingEvents() {
	r.pending = nil
}

// IsDeleted reports whether the aggregate has been soft-deleted.
func (r *Root) IsDeleted() bool {
	return r.deleted
}

// SetDeleted sets the soft-delete flag. Used by transitions into the
// terminal Deleted state and by repositories when rehydrating.
func (r *Root) SetDeleted(deleted bool) {
	r.deleted = deleted
}

// Package uow implements the unit of work: one business operation, one
// database transaction, with every pending domain event serialized into the
// outbox table atomically with the aggregate writes.
package uow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/outbox"
	"github.com/harborlabs/harbor-backoffice/pkg/snowflake"
)

// Aggregate is the minimal surface the unit of work needs from a tracked
// entity. lifecycle.Root supplies the event buffer methods; each aggregate
// supplies its identity.
type Aggregate interface {
	AggregateID() string
	AggregateType() string
	PendingEvents() []event.DomainEvent
	ClearPendingEvents()
}

// PersistFunc writes one aggregate's state inside the commit transaction.
type PersistFunc func(ctx context.Context, tx *gorm.DB) error

// ErrStaleAggregate marks a guarded write that matched no row: the
// aggregate was changed or removed by another writer after this operation
// read it. Persist funcs return it (wrapped) when their version predicate
// affects zero rows.
var ErrStaleAggregate = errors.New("stale aggregate")

// PersistenceConflictError signals that the commit failed on a constraint
// violation, a lost version guard or a transaction conflict. The whole
// business operation must be retried from the read step; in-memory
// aggregate state may be stale.
type PersistenceConflictError struct {
	Err error
}

func (e *PersistenceConflictError) Error() string {
	return fmt.Sprintf("persistence conflict: %v", e.Err)
}

func (e *PersistenceConflictError) Unwrap() error {
	return e.Err
}

// Factory hands out per-operation units of work.
type Factory struct {
	db     *gorm.DB
	node   *snowflake.Node
	logger *zap.Logger
}

func NewFactory(db *gorm.DB, node *snowflake.Node, logger *zap.Logger) *Factory {
	return &Factory{db: db, node: node, logger: logger.Named("uow")}
}

// New returns an empty unit of work. Units of work are single-use and not
// safe for concurrent use.
func (f *Factory) New() *UnitOfWork {
	return &UnitOfWork{db: f.db, node: f.node, logger: f.logger}
}

type tracked struct {
	agg     Aggregate
	persist PersistFunc
}

// UnitOfWork collects the aggregates touched by one business operation and
// commits their state changes together with their pending events.
type UnitOfWork struct {
	db      *gorm.DB
	node    *snowflake.Node
	logger  *zap.Logger
	tracked []tracked
}

// Track registers an aggregate and its write step. Tracking order is the
// cross-aggregate insertion order of outbox rows; per-aggregate event order
// follows the order events were raised.
func (u *UnitOfWork) Track(agg Aggregate, persist PersistFunc) {
	u.tracked = append(u.tracked, tracked{agg: agg, persist: persist})
}

// SaveChanges commits all tracked aggregates and their pending events in a
// single transaction. It returns (true, nil) after a durable commit,
// (false, nil) when nothing was tracked, and (false, err) otherwise. On
// success every tracked aggregate's pending-event buffer is cleared; on any
// failure nothing is written and the buffers are left intact for the caller
// to retry or discard.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (bool, error) {
	if len(u.tracked) == 0 {
		return false, nil
	}

	now := time.Now().UTC()
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range u.tracked {
			if err := t.persist(ctx, tx); err != nil {
				return fmt.Errorf("persist %s %s: %w", t.agg.AggregateType(), t.agg.AggregateID(), err)
			}
		}

		var msgs []outbox.Message
		for _, t := range u.tracked {
			for _, ev := range t.agg.PendingEvents() {
				payload, err := json.Marshal(ev.Payload)
				if err != nil {
					return fmt.Errorf("marshal %s payload: %w", ev.EventType, err)
				}
				msgs = append(msgs, outbox.Message{
					ID:            u.node.GenerateID(),
					EventID:       ev.EventID.String(),
					AggregateID:   ev.AggregateID,
					AggregateType: ev.AggregateType,
					EventType:     ev.EventType,
					Payload:       payload,
					OccurredAt:    ev.OccurredAt,
					RetryCount:    0,
					AvailableAt:   now,
				})
			}
		}
		return outbox.Append(tx, msgs)
	})
	if err != nil {
		if isConflict(err) {
			return false, &PersistenceConflictError{Err: err}
		}
		return false, err
	}

	events := 0
	for _, t := range u.tracked {
		events += len(t.agg.PendingEvents())
		t.agg.ClearPendingEvents()
	}
	u.logger.Debug("changes_committed",
		zap.Int("aggregates", len(u.tracked)),
		zap.Int("events", events),
	)
	u.tracked = u.tracked[:0]
	return true, nil
}

// isConflict classifies commit failures that warrant a full operation
// retry: lost version guards, unique/constraint violations and
// serialization aborts.
func isConflict(err error) bool {
	if errors.Is(err, ErrStaleAggregate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"duplicate key",
		"unique constraint",
		"could not serialize access",
		"deadlock detected",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

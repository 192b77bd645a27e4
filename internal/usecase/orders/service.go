// Package orders exposes the order command operations. Each command loads
// the aggregate, applies one guarded transition and commits state plus
// events through a unit of work.
package orders

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/domain/order"
	"github.com/harborlabs/harbor-backoffice/internal/uow"
	"github.com/harborlabs/harbor-backoffice/pkg/snowflake"
)

// ErrNotFound is returned when the order does not exist or is deleted.
var ErrNotFound = errors.New("order not found")

// conflictRetries bounds the re-read loop on commit conflicts.
const conflictRetries = 3

type Service struct {
	repo   order.Repository
	uow    *uow.Factory
	node   *snowflake.Node
	logger *zap.Logger
}

func NewService(repo order.Repository, factory *uow.Factory, node *snowflake.Node, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		uow:    factory,
		node:   node,
		logger: logger.Named("usecase.orders"),
	}
}

// Create registers a new order and returns its generated ID.
func (s *Service) Create(ctx context.Context, customerID, totalCents int64, currency string) (int64, error) {
	id := s.node.GenerateID()
	o := order.New(id, customerID, totalCents, currency)

	u := s.uow.New()
	u.Track(o, s.repo.Persist(o))
	if _, err := u.SaveChanges(ctx); err != nil {
		return 0, err
	}

	s.logger.Info("order_created",
		zap.Int64("order_id", id),
		zap.Int64("customer_id", customerID),
	)
	return id, nil
}

func (s *Service) Confirm(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, func(o *order.Order) error { return o.Confirm() })
}

func (s *Service) Ship(ctx context.Context, id int64, trackingCode string) error {
	return s.mutate(ctx, id, func(o *order.Order) error { return o.Ship(trackingCode) })
}

func (s *Service) Deliver(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, func(o *order.Order) error { return o.Deliver() })
}

func (s *Service) Cancel(ctx context.Context, id int64, reason string) error {
	return s.mutate(ctx, id, func(o *order.Order) error { return o.Cancel(reason) })
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, func(o *order.Order) error { return o.MarkAsDeleted() })
}

// mutate runs one command against a freshly loaded order. A commit
// conflict restarts the whole sequence from the read, because the
// in-memory aggregate and its event buffer are stale after a failed
// commit.
func (s *Service) mutate(ctx context.Context, id int64, fn func(*order.Order) error) error {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		o, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrNotFound
		}

		if err := fn(o); err != nil {
			return err
		}

		u := s.uow.New()
		u.Track(o, s.repo.Persist(o))
		_, err = u.SaveChanges(ctx)
		if err == nil {
			return nil
		}

		var conflict *uow.PersistenceConflictError
		if !errors.As(err, &conflict) {
			return err
		}
		lastErr = err
		s.logger.Warn("commit_conflict_retrying",
			zap.Int64("order_id", id),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return fmt.Errorf("order %d: retries exhausted: %w", id, lastErr)
}

// Package returnrequests drives the customer return flow. Completing a
// return touches two aggregates: the request itself and the order it
// refunds, committed in a single unit of work.
package returnrequests

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/domain/order"
	"github.com/harborlabs/harbor-backoffice/internal/domain/returns"
	"github.com/harborlabs/harbor-backoffice/internal/uow"
	"github.com/harborlabs/harbor-backoffice/pkg/snowflake"
)

var (
	ErrNotFound      = errors.New("return request not found")
	ErrOrderNotFound = errors.New("order not found")
)

const conflictRetries = 3

type Service struct {
	repo      returns.Repository
	orderRepo order.Repository
	uow       *uow.Factory
	node      *snowflake.Node
	logger    *zap.Logger
}

func NewService(
	repo returns.Repository,
	orderRepo order.Repository,
	factory *uow.Factory,
	node *snowflake.Node,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		orderRepo: orderRepo,
		uow:       factory,
		node:      node,
		logger:    logger.Named("usecase.returns"),
	}
}

// Request opens a return for a delivered order and returns the request ID.
func (s *Service) Request(ctx context.Context, orderID int64, reason string) (int64, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if o == nil {
		return 0, ErrOrderNotFound
	}
	if o.Status != order.StatusDelivered {
		return 0, fmt.Errorf("order %d: returns require a delivered order, got %q", orderID, o.Status)
	}

	id := s.node.GenerateID()
	rr := returns.New(id, orderID, reason)

	u := s.uow.New()
	u.Track(rr, s.repo.Persist(rr))
	if _, err := u.SaveChanges(ctx); err != nil {
		return 0, err
	}

	s.logger.Info("return_requested",
		zap.Int64("return_request_id", id),
		zap.Int64("order_id", orderID),
	)
	return id, nil
}

func (s *Service) Approve(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, func(rr *returns.ReturnRequest) error { return rr.Approve() })
}

func (s *Service) Reject(ctx context.Context, id int64, reason string) error {
	return s.mutate(ctx, id, func(rr *returns.ReturnRequest) error { return rr.Reject(reason) })
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, func(rr *returns.ReturnRequest) error { return rr.MarkAsDeleted() })
}

// Complete records receipt of the goods and refunds the order. Both
// aggregates commit in one transaction, so either the request completes
// and the order is marked returned, or neither changes.
func (s *Service) Complete(ctx context.Context, id int64) error {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		rr, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if rr == nil {
			return ErrNotFound
		}

		o, err := s.orderRepo.FindByID(ctx, rr.OrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrOrderNotFound
		}

		if err := rr.Complete(); err != nil {
			return err
		}
		if err := o.MarkReturned(); err != nil {
			return err
		}

		u := s.uow.New()
		u.Track(rr, s.repo.Persist(rr))
		u.Track(o, s.orderRepo.Persist(o))
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
			zap.Int64("return_request_id", id),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return fmt.Errorf("return request %d: retries exhausted: %w", id, lastErr)
}

func (s *Service) mutate(ctx context.Context, id int64, fn func(*returns.ReturnRequest) error) error {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		rr, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if rr == nil {
			return ErrNotFound
		}

		if err := fn(rr); err != nil {
			return err
		}

		u := s.uow.New()
		u.Track(rr, s.repo.Persist(rr))
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
			zap.Int64("return_request_id", id),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return fmt.Errorf("return request %d: retries exhausted: %w", id, lastErr)
}

package order

import (
	"context"

	"github.com/harborlabs/harbor-backoffice/internal/uow"
)

// Repository defines the interface for persisting Order aggregates.
type Repository interface {
	// FindByID retrieves an order by ID. Soft-deleted orders are excluded
	// by an explicit predicate at query construction; callers never see
	// them. Returns (nil, nil) when not found.
	FindByID(ctx context.Context, id int64) (*Order, error)

	// Persist returns the write step for o, to be run inside a unit of
	// work transaction.
	Persist(o *Order) uow.PersistFunc
}

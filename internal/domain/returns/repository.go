package returns

import (
	"context"

	"github.com/harborlabs/harbor-backoffice/internal/uow"
)

// Repository defines the interface for persisting ReturnRequest aggregates.
type Repository interface {
	// FindByID retrieves a return request by ID, excluding soft-deleted
	// rows. Returns (nil, nil) when not found.
	FindByID(ctx context.Context, id int64) (*ReturnRequest, error)

	// Persist returns the write step for r, to be run inside a unit of
	// work transaction.
	Persist(r *ReturnRequest) uow.PersistFunc
}

package counting

import (
	"context"

	"chefdeck/internal/core/id"
)

// Repository defines cycle persistence. The cycle is stored and replaced as a
// whole document: the clients edit optimistically and push full snapshots,
// so the store must not merge at any finer granularity. Implementations scope
// every query by the tenant from context.
type Repository interface {
	// List returns all cycles for the tenant, the working cycle first,
	// then finalized cycles by date descending.
	List(ctx context.Context) ([]*Cycle, error)

	// GetByID returns one cycle or apperror.NewNotFound.
	GetByID(ctx context.Context, cycleID id.ID) (*Cycle, error)

	// GetByIDForUpdate is GetByID with a row lock. Read-modify-write
	// sequences (lock arbitration, guarded saves) must use it inside a
	// transaction so concurrent writers queue on the row instead of both
	// reading the same stale document.
	GetByIDForUpdate(ctx context.Context, cycleID id.ID) (*Cycle, error)

	// Upsert inserts or fully replaces the cycle document by id.
	Upsert(ctx context.Context, c *Cycle) error

	// DeleteFinalized removes all finalized cycles for the tenant and
	// returns how many were deleted. The working cycle is never touched.
	DeleteFinalized(ctx context.Context) (int64, error)
}

// Package engine implements the client side of collaborative counting: the
// in-memory working cycle, draft persistence, debounced background sync, the
// poll loop and the finalize transform, talking to the server through the
// Store interface.
package engine

import (
	"context"

	"chefdeck/internal/core/id"
	"chefdeck/internal/domain/catalog"
	"chefdeck/internal/domain/counting"
)

// LockResult reports a lock attempt. When not granted, Holder names who has
// the sheet.
type LockResult struct {
	Granted bool
	Holder  *counting.LockHolder
}

// Store is the persistence collaborator seen from the client. The server
// performs whole-document upserts; the engine never assumes finer-grained
// merge semantics.
type Store interface {
	// FetchCycles returns all cycles for the tenant, working cycle first.
	FetchCycles(ctx context.Context) ([]*counting.Cycle, error)

	// SaveCycle upserts a whole cycle document by id.
	SaveCycle(ctx context.Context, c *counting.Cycle) error

	// Lock requests the write lock on a sheet. A refusal is a normal
	// outcome carried in LockResult, not an error.
	Lock(ctx context.Context, cycleID, sheetID id.ID, user counting.LockHolder) (LockResult, error)

	// Unlock releases a sheet lock unconditionally.
	Unlock(ctx context.Context, cycleID, sheetID id.ID) error

	// FetchCatalog returns the tenant's product reference list.
	FetchCatalog(ctx context.Context) ([]catalog.Item, error)
}

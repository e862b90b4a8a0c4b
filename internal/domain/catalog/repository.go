package catalog

import "context"

// Repository defines catalog persistence. Implementations scope every query
// by the tenant from context.
type Repository interface {
	// List returns all catalog items for the tenant, ordered by name.
	List(ctx context.Context) ([]Item, error)

	// UpsertMany inserts or replaces items keyed by (code, name).
	UpsertMany(ctx context.Context, items []Item) error
}

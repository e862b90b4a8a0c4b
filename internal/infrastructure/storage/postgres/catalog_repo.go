package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"chefdeck/internal/core/tenant"
	"chefdeck/internal/domain/catalog"
)

const catalogTable = "global_items"

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	txm *TxManager
}

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txm *TxManager) *CatalogRepo {
	return &CatalogRepo{txm: txm}
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// List returns all catalog items for the tenant, ordered by name.
func (r *CatalogRepo) List(ctx context.Context) ([]catalog.Item, error) {
	q := psql.Select("code", "name", "unit").
		From(catalogTable).
		Where(squirrel.Eq{"bot_id": tenant.GetBotID(ctx)}).
		OrderBy("name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := make([]catalog.Item, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return items, nil
}

// UpsertMany inserts or replaces items keyed by (code, name).
func (r *CatalogRepo) UpsertMany(ctx context.Context, items []catalog.Item) error {
	if len(items) == 0 {
		return nil
	}

	botID := tenant.GetBotID(ctx)
	q := psql.Insert(catalogTable).Columns("bot_id", "code", "name", "unit")
	for _, it := range items {
		q = q.Values(botID, it.Code, it.Name, it.Unit)
	}
	q = q.Suffix("ON CONFLICT (bot_id, code, name) DO UPDATE SET unit = EXCLUDED.unit")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert catalog items: %w", err)
	}
	return nil
}

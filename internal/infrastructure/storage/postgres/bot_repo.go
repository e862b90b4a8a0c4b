package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"chefdeck/internal/core/tenant"
)

const botTable = "bot_configs"

// BotRepo resolves bot ids to tenant configurations.
type BotRepo struct {
	txm *TxManager
}

// NewBotRepo creates a new bot config repository.
func NewBotRepo(txm *TxManager) *BotRepo {
	return &BotRepo{txm: txm}
}

// GetByBotID returns the tenant record for a bot id.
func (r *BotRepo) GetByBotID(ctx context.Context, botID string) (*tenant.Tenant, error) {
	q := psql.Select("bot_id", "name", "token", "owner_id", "created_at").
		From(botTable).
		Where(squirrel.Eq{"bot_id": botID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t tenant.Tenant
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("get bot config: %w", err)
	}
	return &t, nil
}

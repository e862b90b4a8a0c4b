package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"chefdeck/internal/core/apperror"
	"chefdeck/internal/core/id"
	"chefdeck/internal/core/tenant"
	"chefdeck/internal/domain/counting"
)

const cycleTable = "inventory_cycles"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// CycleRepo implements counting.Repository over a JSONB document table.
// The doc column holds the full cycle (sheets included); the extracted
// columns exist only for filtering and ordering, never as a second source
// of truth.
type CycleRepo struct {
	txm *TxManager
}

// NewCycleRepo creates a new cycle repository.
func NewCycleRepo(txm *TxManager) *CycleRepo {
	return &CycleRepo{txm: txm}
}

var _ counting.Repository = (*CycleRepo)(nil)

// List returns all cycles for the tenant, working cycle first, then
// finalized by date descending.
func (r *CycleRepo) List(ctx context.Context) ([]*counting.Cycle, error) {
	q := psql.Select("doc").
		From(cycleTable).
		Where(squirrel.Eq{"bot_id": tenant.GetBotID(ctx)}).
		OrderBy("is_finalized ASC", "date DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.txm.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*counting.Cycle
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		var c counting.Cycle
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("decode cycle document: %w", err)
		}
		cycles = append(cycles, &c)
	}
	return cycles, rows.Err()
}

// GetByID returns one cycle document.
func (r *CycleRepo) GetByID(ctx context.Context, cycleID id.ID) (*counting.Cycle, error) {
	return r.getByID(ctx, cycleID, false)
}

// GetByIDForUpdate returns one cycle document with the row locked until the
// surrounding transaction ends. Lock arbitration and guarded saves read
// through this so two racing writers serialize on the row.
func (r *CycleRepo) GetByIDForUpdate(ctx context.Context, cycleID id.ID) (*counting.Cycle, error) {
	return r.getByID(ctx, cycleID, true)
}

func (r *CycleRepo) getByID(ctx context.Context, cycleID id.ID, forUpdate bool) (*counting.Cycle, error) {
	q := psql.Select("doc").
		From(cycleTable).
		Where(squirrel.Eq{"bot_id": tenant.GetBotID(ctx), "id": cycleID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var doc []byte
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("cycle", cycleID)
	}
	if err != nil {
		return nil, fmt.Errorf("get cycle: %w", err)
	}

	var c counting.Cycle
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, fmt.Errorf("decode cycle document: %w", err)
	}
	return &c, nil
}

// Upsert inserts or fully replaces the cycle document by id.
func (r *CycleRepo) Upsert(ctx context.Context, c *counting.Cycle) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cycle document: %w", err)
	}

	q := psql.Insert(cycleTable).
		Columns("bot_id", "id", "date", "is_finalized", "created_by", "doc", "updated_at").
		Values(tenant.GetBotID(ctx), c.ID, c.Date, c.IsFinalized, c.CreatedBy, doc, squirrel.Expr("now()")).
		Suffix(`ON CONFLICT (bot_id, id) DO UPDATE SET
			date = EXCLUDED.date,
			is_finalized = EXCLUDED.is_finalized,
			created_by = EXCLUDED.created_by,
			doc = EXCLUDED.doc,
			updated_at = now()`)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert cycle: %w", err)
	}
	return nil
}

// DeleteFinalized removes all finalized cycles for the tenant.
func (r *CycleRepo) DeleteFinalized(ctx context.Context) (int64, error) {
	q := psql.Delete(cycleTable).
		Where(squirrel.Eq{"bot_id": tenant.GetBotID(ctx), "is_finalized": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete finalized cycles: %w", err)
	}
	return tag.RowsAffected(), nil
}

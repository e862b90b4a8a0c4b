package counting

import (
	"context"
	"fmt"

	"chefdeck/internal/core/apperror"
	"chefdeck/internal/core/id"
	"chefdeck/internal/core/tx"
	"chefdeck/pkg/logger"
)

// Service provides server-side cycle operations. Every read-modify-write
// sequence reads the document with a row lock (GetByIDForUpdate) inside a
// transaction, so two clients racing for the same sheet queue on the row
// and the loser sees the winner's lock instead of a stale unlocked document.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new counting service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// List returns all cycles for the tenant.
func (s *Service) List(ctx context.Context) ([]*Cycle, error) {
	return s.repo.List(ctx)
}

// Save validates and upserts a whole cycle document.
// An already-archived cycle can never be overwritten; the only way a
// finalized document enters the store is as a fresh archive record.
func (s *Service) Save(ctx context.Context, c *Cycle) error {
	if err := c.Validate(); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByIDForUpdate(ctx, c.ID)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if existing != nil && existing.IsFinalized {
			return apperror.NewBusinessRule(apperror.CodeArchiveImmutable, "Archived cycle cannot be modified")
		}
		return s.repo.Upsert(ctx, c)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "cycle saved", "id", c.ID, "sheets", len(c.Sheets), "finalized", c.IsFinalized)
	return nil
}

// Lock grants user the write lock on a sheet. On conflict the returned error
// carries the current holder for the 409 response body.
func (s *Service) Lock(ctx context.Context, cycleID, sheetID id.ID, user LockHolder) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByIDForUpdate(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := c.Acquire(sheetID, user); err != nil {
			return err
		}
		return s.repo.Upsert(ctx, c)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sheet locked", "cycle", cycleID, "sheet", sheetID, "user", user.ID)
	return nil
}

// Unlock releases a sheet lock unconditionally.
func (s *Service) Unlock(ctx context.Context, cycleID, sheetID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByIDForUpdate(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := c.Release(sheetID); err != nil {
			return err
		}
		return s.repo.Upsert(ctx, c)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sheet unlocked", "cycle", cycleID, "sheet", sheetID)
	return nil
}

// ClearArchive deletes all finalized cycles for the tenant.
func (s *Service) ClearArchive(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		n, err := s.repo.DeleteFinalized(ctx)
		if err != nil {
			return fmt.Errorf("delete finalized: %w", err)
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "archive cleared", "deleted", deleted)
	return deleted, nil
}

package catalog

import (
	"context"
	"fmt"

	"chefdeck/pkg/logger"
)

// Service provides catalog operations.
type Service struct {
	repo Repository
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the tenant's catalog.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx)
}

// Upsert validates and bulk-upserts catalog items.
// Items failing validation reject the whole batch: a half-imported catalog
// is worse than a failed import.
func (s *Service) Upsert(ctx context.Context, items []Item) error {
	for i := range items {
		items[i].Normalize()
		if err := items[i].Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	if err := s.repo.UpsertMany(ctx, items); err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}
	logger.Info(ctx, "catalog upserted", "count", len(items))
	return nil
}

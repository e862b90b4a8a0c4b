package dto

import "chefdeck/internal/domain/catalog"

// UpsertItemsRequest bulk-imports catalog items.
type UpsertItemsRequest struct {
	Items []catalog.Item `json:"items" binding:"required"`
}

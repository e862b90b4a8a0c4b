package handlers

import (
	"github.com/gin-gonic/gin"

	"chefdeck/internal/domain/catalog"
	"chefdeck/internal/infrastructure/http/v1/dto"
)

// CatalogHandler serves the tenant product catalog.
type CatalogHandler struct {
	*BaseHandler
	service *catalog.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, service *catalog.Service) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, service: service}
}

// List returns the tenant's catalog.
// GET /api/inventory/global-items
func (h *CatalogHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// Upsert bulk-imports catalog items.
// POST /api/inventory/global-items/upsert
func (h *CatalogHandler) Upsert(c *gin.Context) {
	var req dto.UpsertItemsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Upsert(c.Request.Context(), req.Items); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chefdeck/internal/core/apperror"
	"chefdeck/internal/domain/counting"
	"chefdeck/internal/infrastructure/http/v1/dto"
	"chefdeck/internal/infrastructure/metrics"
)

// InventoryHandler serves the counting cycle endpoints.
type InventoryHandler struct {
	*BaseHandler
	service *counting.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service *counting.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// List returns all cycles for the tenant, working cycle first.
// GET /api/inventory
func (h *InventoryHandler) List(c *gin.Context) {
	cycles, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if cycles == nil {
		cycles = []*counting.Cycle{}
	}
	h.OK(c, cycles)
}

// SaveCycle upserts a whole cycle document by id.
// POST /api/inventory/cycle
func (h *InventoryHandler) SaveCycle(c *gin.Context) {
	var cycle counting.Cycle
	if !h.BindJSON(c, &cycle) {
		return
	}

	if err := h.service.Save(c.Request.Context(), &cycle); err != nil {
		h.Error(c, err)
		return
	}

	metrics.CycleWrites.Inc()
	h.Success(c)
}

// Lock grants the caller the write lock on a sheet.
// POST /api/inventory/lock
//
// The conflict response keeps the original wire contract: 409 with
// {success:false, lockedBy} rather than the generic error envelope, because
// the client treats it as a normal outcome, not a failure.
func (h *InventoryHandler) Lock(c *gin.Context) {
	var req dto.LockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user := counting.LockHolder{ID: req.User.ID, Name: req.User.Name}
	err := h.service.Lock(c.Request.Context(), req.CycleID, req.SheetID, user)
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeSheetLocked {
			metrics.LockConflicts.Inc()
			holder := counting.LockHolder{Name: "unknown"}
			if id, ok := appErr.Details["holder_id"].(int64); ok {
				holder.ID = id
			}
			if name, ok := appErr.Details["holder_name"].(string); ok {
				holder.Name = name
			}
			c.JSON(http.StatusConflict, dto.LockResponse{Success: false, LockedBy: dto.Holder(holder)})
			return
		}
		h.Error(c, err)
		return
	}

	h.OK(c, dto.LockResponse{Success: true})
}

// Unlock releases a sheet lock unconditionally.
// POST /api/inventory/unlock
func (h *InventoryHandler) Unlock(c *gin.Context) {
	var req dto.UnlockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Unlock(c.Request.Context(), req.CycleID, req.SheetID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c)
}

// ClearArchive deletes all finalized cycles for the tenant.
// DELETE /api/inventory/archive/all
func (h *InventoryHandler) ClearArchive(c *gin.Context) {
	deleted, err := h.service.ClearArchive(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	metrics.ArchiveClears.Inc()
	h.OK(c, dto.ClearArchiveResponse{Success: true, Deleted: deleted})
}

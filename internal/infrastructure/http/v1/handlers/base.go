package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chefdeck/internal/core/apperror"
	"chefdeck/internal/core/tenant"
	"chefdeck/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// BotID extracts the tenant bot id from request context.
func (h *BaseHandler) BotID(c *gin.Context) string {
	return tenant.GetBotID(c.Request.Context())
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Success sends a plain success acknowledgement.
func (h *BaseHandler) Success(c *gin.Context) {
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

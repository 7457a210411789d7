package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/sitetrack/internal/errors"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/services"
)

// AuditHandler serves the system log.
type AuditHandler struct {
	service services.AuditService
}

// NewAuditHandler creates a new AuditHandler instance.
func NewAuditHandler(service services.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// AuditLogRequest holds the query parameters of GET /audit-log.
type AuditLogRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// AuditLogResponse lists audit entries newest first.
type AuditLogResponse struct {
	Entries []models.AuditEntry `json:"entries"`
	Count   int                 `json:"count"`
}

// List handles GET /api/v1/audit-log.
func (h *AuditHandler) List(c *gin.Context) {
	var req AuditLogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	entries, err := h.service.Recent(c.Request.Context(), req.Limit)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	c.JSON(http.StatusOK, AuditLogResponse{Entries: entries, Count: len(entries)})
}

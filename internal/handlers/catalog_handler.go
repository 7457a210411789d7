package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/sitetrack/internal/errors"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/services"
)

// CatalogHandler serves read-only target and visit listings. Mutations go
// through a workspace session.
type CatalogHandler struct {
	targets services.TargetService
	visits  services.VisitService
}

// NewCatalogHandler creates a new CatalogHandler instance.
func NewCatalogHandler(targets services.TargetService, visits services.VisitService) *CatalogHandler {
	return &CatalogHandler{targets: targets, visits: visits}
}

// TargetListResponse lists the targets pinned on a plan.
type TargetListResponse struct {
	Targets []models.Target `json:"targets"`
	Count   int             `json:"count"`
}

// VisitListResponse lists the visits of a target, most recent first.
type VisitListResponse struct {
	Visits []models.Visit `json:"visits"`
	Count  int            `json:"count"`
}

// Targets handles GET /api/v1/floor-plans/:id/targets.
func (h *CatalogHandler) Targets(c *gin.Context) {
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	targets, err := h.targets.ListByFloorPlan(c.Request.Context(), planID)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	if targets == nil {
		targets = []models.Target{}
	}
	c.JSON(http.StatusOK, TargetListResponse{Targets: targets, Count: len(targets)})
}

// Visits handles GET /api/v1/targets/:id/visits.
func (h *CatalogHandler) Visits(c *gin.Context) {
	targetID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	visits, err := h.visits.ListByTarget(c.Request.Context(), targetID)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	if visits == nil {
		visits = []models.Visit{}
	}
	c.JSON(http.StatusOK, VisitListResponse{Visits: visits, Count: len(visits)})
}

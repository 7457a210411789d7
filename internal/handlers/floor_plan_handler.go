package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/stwalsh4118/sitetrack/internal/errors"
	"github.com/stwalsh4118/sitetrack/internal/middleware"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/services"
	"github.com/stwalsh4118/sitetrack/internal/storage"
)

// FloorPlanHandler handles floor plan management requests.
type FloorPlanHandler struct {
	service services.FloorPlanService
}

// NewFloorPlanHandler creates a new FloorPlanHandler instance.
func NewFloorPlanHandler(service services.FloorPlanService) *FloorPlanHandler {
	return &FloorPlanHandler{service: service}
}

// UploadFloorPlanForm is the multipart form of a plan upload. The image is
// sent in the "file" part.
type UploadFloorPlanForm struct {
	Title string `form:"title" binding:"required,max=200"`
}

// RenameFloorPlanRequest is the body of PATCH /floor-plans/:id.
type RenameFloorPlanRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// FloorPlanResponse wraps one floor plan.
type FloorPlanResponse struct {
	FloorPlan *models.FloorPlan `json:"floor_plan"`
}

// FloorPlanListResponse lists the plans of a project.
type FloorPlanListResponse struct {
	FloorPlans []models.FloorPlan `json:"floor_plans"`
	Count      int                `json:"count"`
}

// List handles GET /api/v1/projects/:projectID/floor-plans.
func (h *FloorPlanHandler) List(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectID")
	if !ok {
		return
	}

	plans, err := h.service.List(c.Request.Context(), projectID)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	if plans == nil {
		plans = []models.FloorPlan{}
	}
	c.JSON(http.StatusOK, FloorPlanListResponse{FloorPlans: plans, Count: len(plans)})
}

// Upload handles POST /api/v1/projects/:projectID/floor-plans.
func (h *FloorPlanHandler) Upload(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectID")
	if !ok {
		return
	}

	var form UploadFloorPlanForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.BindError(c, err)
		return
	}

	var files openFiles
	defer files.Close()
	file, err := files.file(c, "file")
	if err != nil {
		apierrors.BindError(c, err)
		return
	}
	if file == nil {
		missingFile(c, "file")
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Uploading floor plan", map[string]interface{}{
			"project_id": projectID,
			"file_name":  file.Name,
			"size":       file.Size,
		})
	}

	plan, err := h.service.Upload(c.Request.Context(), services.UploadFloorPlanInput{
		ProjectID: projectID,
		Title:     form.Title,
		File:      *file,
	})
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, FloorPlanResponse{FloorPlan: plan})
}

// Rename handles PATCH /api/v1/floor-plans/:id.
func (h *FloorPlanHandler) Rename(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req RenameFloorPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	plan, err := h.service.Rename(c.Request.Context(), id, req.Title)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, FloorPlanResponse{FloorPlan: plan})
}

// ReplaceImage handles PUT /api/v1/floor-plans/:id/image.
func (h *FloorPlanHandler) ReplaceImage(c *gin.Context) {
	h.putFile(c, h.service.ReplaceImage)
}

// AttachModel handles PUT /api/v1/floor-plans/:id/model.
func (h *FloorPlanHandler) AttachModel(c *gin.Context) {
	h.putFile(c, h.service.AttachModel)
}

func (h *FloorPlanHandler) putFile(c *gin.Context, apply func(ctx context.Context, id uuid.UUID, file storage.Object) (*models.FloorPlan, error)) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var files openFiles
	defer files.Close()
	file, err := files.file(c, "file")
	if err != nil {
		apierrors.BindError(c, err)
		return
	}
	if file == nil {
		missingFile(c, "file")
		return
	}

	plan, err := apply(c.Request.Context(), id, *file)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, FloorPlanResponse{FloorPlan: plan})
}

// Delete handles DELETE /api/v1/floor-plans/:id.
func (h *FloorPlanHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

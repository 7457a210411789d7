package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/stwalsh4118/sitetrack/internal/errors"
	"github.com/stwalsh4118/sitetrack/internal/middleware"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/pins"
	"github.com/stwalsh4118/sitetrack/internal/services"
	"github.com/stwalsh4118/sitetrack/internal/session"
	"github.com/stwalsh4118/sitetrack/internal/viewer"
)

// Sessions is the workspace registry used by the session endpoints.
type Sessions interface {
	Create(ctx context.Context, projectID uuid.UUID) (*session.Workspace, error)
	Get(id uuid.UUID) (*session.Workspace, error)
	Close(id uuid.UUID) error
}

// SessionHandler exposes a workspace: the pin board, the visit timeline of
// the selected pin and the viewer.
type SessionHandler struct {
	sessions Sessions
}

// NewSessionHandler creates a new SessionHandler instance.
func NewSessionHandler(sessions Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	ProjectID string `json:"project_id" binding:"required,uuid"`
}

// SelectPlanRequest is the body of PUT /sessions/:sid/plan.
type SelectPlanRequest struct {
	FloorPlanID string `json:"floor_plan_id" binding:"required,uuid"`
}

// RenamePinRequest is the body of PATCH /sessions/:sid/pins/:targetID.
type RenamePinRequest struct {
	Name string `json:"name" binding:"required,max=120"`
}

// VisitForm is the multipart form of visit creation and edit. Photos are
// sent as repeated "photos" parts, the first one being the cover, and a
// point cloud file as the "point_cloud" part.
type VisitForm struct {
	Title         string    `form:"title" binding:"required,max=200"`
	VisitDate     time.Time `form:"visit_date" binding:"required" time_format:"2006-01-02"`
	PointCloudURL string    `form:"point_cloud_url" binding:"omitempty,url"`
}

// OpenViewerRequest is the optional body of POST /sessions/:sid/viewer.
type OpenViewerRequest struct {
	VisitID string `json:"visit_id" binding:"omitempty,uuid"`
}

// SelectPhotoRequest is the body of PUT /sessions/:sid/viewer/:side/photo.
type SelectPhotoRequest struct {
	PhotoURL string `json:"photo_url" binding:"required"`
}

// SelectVisitRequest is the body of PUT /sessions/:sid/viewer/:side/visit.
type SelectVisitRequest struct {
	VisitID string `json:"visit_id" binding:"required,uuid"`
}

// ModelStatusRequest is the body of POST /sessions/:sid/viewer/bim/status.
type ModelStatusRequest struct {
	Status  string `json:"status" binding:"required,oneof=loading ready failed"`
	Message string `json:"message"`
}

// ClickResponse is the outcome of a plan click with the resulting board.
type ClickResponse struct {
	Outcome pins.Outcome  `json:"outcome"`
	Board   pins.Snapshot `json:"board"`
}

// PinDetailResponse is an open detail panel.
type PinDetailResponse struct {
	Target        models.Target  `json:"target"`
	Visits        []models.Visit `json:"visits"`
	ActiveVisitID *uuid.UUID     `json:"active_visit_id,omitempty"`
}

// VisitResponse is a visit mutation with the resulting timeline.
type VisitResponse struct {
	Visit         *models.Visit   `json:"visit,omitempty"`
	Visits        []models.Visit  `json:"visits"`
	ActiveVisitID *uuid.UUID      `json:"active_visit_id,omitempty"`
	Viewer        viewer.Snapshot `json:"viewer"`
}

// SyncResponse reports whether orientation sync is on.
type SyncResponse struct {
	SyncEnabled bool `json:"sync_enabled"`
}

// OrientationResponse is the camera pose of one side.
type OrientationResponse struct {
	Side        viewer.Side        `json:"side"`
	Orientation viewer.Orientation `json:"orientation"`
}

func (h *SessionHandler) workspace(c *gin.Context) (*session.Workspace, bool) {
	sid, ok := uuidParam(c, "sid")
	if !ok {
		return nil, false
	}
	w, err := h.sessions.Get(sid)
	if err != nil {
		apierrors.FromError(c, err)
		return nil, false
	}
	return w, true
}

func side(c *gin.Context) (viewer.Side, bool) {
	s, err := viewer.ParseSide(c.Param("side"))
	if err != nil {
		apierrors.FromError(c, err)
		return "", false
	}
	return s, true
}

func visitResponse(w *session.Workspace, visit *models.Visit) VisitResponse {
	snap := w.Snapshot()
	return VisitResponse{
		Visit:         visit,
		Visits:        snap.Visits,
		ActiveVisitID: snap.ActiveVisitID,
		Viewer:        snap.Viewer,
	}
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	w, err := h.sessions.Create(c.Request.Context(), uuid.MustParse(req.ProjectID))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Session created", map[string]interface{}{
			"session_id": w.ID,
			"project_id": w.ProjectID,
		})
	}
	c.JSON(http.StatusCreated, w.Snapshot())
}

// Get handles GET /api/v1/sessions/:sid.
func (h *SessionHandler) Get(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.Snapshot())
}

// Close handles DELETE /api/v1/sessions/:sid.
func (h *SessionHandler) Close(c *gin.Context) {
	sid, ok := uuidParam(c, "sid")
	if !ok {
		return
	}
	if err := h.sessions.Close(sid); err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectPlan handles PUT /api/v1/sessions/:sid/plan.
func (h *SessionHandler) SelectPlan(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var req SelectPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	snap, err := w.SelectPlan(c.Request.Context(), uuid.MustParse(req.FloorPlanID))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ClickPlan handles POST /api/v1/sessions/:sid/plan/clicks.
func (h *SessionHandler) ClickPlan(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var click pins.Click
	if err := c.ShouldBindJSON(&click); err != nil {
		apierrors.BindError(c, err)
		return
	}

	out, err := w.ClickPlan(c.Request.Context(), click)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	status := http.StatusOK
	if out.Result == pins.ClickCreated {
		status = http.StatusCreated
	}
	c.JSON(status, ClickResponse{Outcome: out, Board: w.Board().Snapshot()})
}

// SelectPin handles POST /api/v1/sessions/:sid/pins/:targetID/select.
func (h *SessionHandler) SelectPin(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "targetID")
	if !ok {
		return
	}

	target, visits, err := w.SelectPin(c.Request.Context(), targetID)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	resp := PinDetailResponse{Target: target, Visits: visits}
	if resp.Visits == nil {
		resp.Visits = []models.Visit{}
	}
	resp.ActiveVisitID = w.Snapshot().ActiveVisitID
	c.JSON(http.StatusOK, resp)
}

// CloseDetail handles DELETE /api/v1/sessions/:sid/selection.
func (h *SessionHandler) CloseDetail(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	w.CloseDetail()
	c.JSON(http.StatusOK, w.Snapshot())
}

// BeginMove handles POST /api/v1/sessions/:sid/pins/:targetID/move.
func (h *SessionHandler) BeginMove(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "targetID")
	if !ok {
		return
	}
	if err := w.BeginMove(targetID); err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, w.Board().Snapshot())
}

// CancelMove handles POST /api/v1/sessions/:sid/placement/cancel.
func (h *SessionHandler) CancelMove(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := w.CancelMove(c.Request.Context()); err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, w.Snapshot())
}

// RenamePin handles PATCH /api/v1/sessions/:sid/pins/:targetID.
func (h *SessionHandler) RenamePin(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "targetID")
	if !ok {
		return
	}
	var req RenamePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	target, err := w.RenamePin(c.Request.Context(), targetID, req.Name)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

// DeletePin handles DELETE /api/v1/sessions/:sid/pins/:targetID.
func (h *SessionHandler) DeletePin(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "targetID")
	if !ok {
		return
	}
	if err := w.DeletePin(c.Request.Context(), targetID); err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddVisit handles POST /api/v1/sessions/:sid/visits.
func (h *SessionHandler) AddVisit(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var form VisitForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.BindError(c, err)
		return
	}

	var files openFiles
	defer files.Close()
	photos, err := files.files(c, "photos")
	if err != nil {
		apierrors.BindError(c, err)
		return
	}
	pointCloud, err := files.file(c, "point_cloud")
	if err != nil {
		apierrors.BindError(c, err)
		return
	}

	visit, err := w.AddVisit(c.Request.Context(), services.NewVisitInput{
		Title:          form.Title,
		VisitDate:      form.VisitDate,
		Photos:         photos,
		PointCloudFile: pointCloud,
		PointCloudURL:  form.PointCloudURL,
	})
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, visitResponse(w, visit))
}

// EditVisit handles PUT /api/v1/sessions/:sid/visits/:visitID. Sending
// photos replaces the whole bundle; sending none keeps it.
func (h *SessionHandler) EditVisit(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	visitID, ok := uuidParam(c, "visitID")
	if !ok {
		return
	}
	var form VisitForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.BindError(c, err)
		return
	}

	var files openFiles
	defer files.Close()
	photos, err := files.files(c, "photos")
	if err != nil {
		apierrors.BindError(c, err)
		return
	}

	visit, err := w.EditVisit(c.Request.Context(), visitID, services.EditVisitInput{
		Title:         form.Title,
		VisitDate:     form.VisitDate,
		Photos:        photos,
		PointCloudURL: form.PointCloudURL,
	})
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, visitResponse(w, visit))
}

// DeleteVisit handles DELETE /api/v1/sessions/:sid/visits/:visitID.
func (h *SessionHandler) DeleteVisit(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	visitID, ok := uuidParam(c, "visitID")
	if !ok {
		return
	}
	if _, err := w.DeleteVisit(c.Request.Context(), visitID); err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, visitResponse(w, nil))
}

// ActivateVisit handles POST /api/v1/sessions/:sid/visits/:visitID/activate.
func (h *SessionHandler) ActivateVisit(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	visitID, ok := uuidParam(c, "visitID")
	if !ok {
		return
	}
	visit, err := w.ActivateVisit(visitID)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, visitResponse(w, visit))
}

// OpenViewer handles POST /api/v1/sessions/:sid/viewer. Without a visit_id
// the active visit is shown.
func (h *SessionHandler) OpenViewer(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var req OpenViewerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BindError(c, err)
			return
		}
	}

	var visitID *uuid.UUID
	if req.VisitID != "" {
		id := uuid.MustParse(req.VisitID)
		visitID = &id
	}
	snap, err := w.OpenViewer(visitID)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CloseViewer handles DELETE /api/v1/sessions/:sid/viewer.
func (h *SessionHandler) CloseViewer(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.CloseViewer())
}

// EnterCompare handles POST /api/v1/sessions/:sid/viewer/compare.
func (h *SessionHandler) EnterCompare(c *gin.Context) {
	h.viewerAction(c, func(w *session.Workspace) (viewer.Snapshot, error) {
		return w.Viewer().EnterCompare()
	})
}

// EnterBIM handles POST /api/v1/sessions/:sid/viewer/bim.
func (h *SessionHandler) EnterBIM(c *gin.Context) {
	h.viewerAction(c, func(w *session.Workspace) (viewer.Snapshot, error) {
		return w.EnterBIM(c.Request.Context())
	})
}

// ExitSplit handles POST /api/v1/sessions/:sid/viewer/exit-split.
func (h *SessionHandler) ExitSplit(c *gin.Context) {
	h.viewerAction(c, func(w *session.Workspace) (viewer.Snapshot, error) {
		return w.Viewer().ExitSplit()
	})
}

func (h *SessionHandler) viewerAction(c *gin.Context, action func(w *session.Workspace) (viewer.Snapshot, error)) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	snap, err := action(w)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ToggleSync handles POST /api/v1/sessions/:sid/viewer/sync.
func (h *SessionHandler) ToggleSync(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	enabled, err := w.Viewer().ToggleSync()
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, SyncResponse{SyncEnabled: enabled})
}

// ReportModelStatus handles POST /api/v1/sessions/:sid/viewer/bim/status.
func (h *SessionHandler) ReportModelStatus(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var req ModelStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}
	if err := w.Viewer().ReportModelStatus(viewer.ModelStatus(req.Status), req.Message); err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, w.Viewer().Snapshot())
}

// SelectPhoto handles PUT /api/v1/sessions/:sid/viewer/:side/photo.
func (h *SessionHandler) SelectPhoto(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	s, ok := side(c)
	if !ok {
		return
	}
	var req SelectPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}
	snap, err := w.Viewer().SelectPhoto(s, req.PhotoURL)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SelectVisit handles PUT /api/v1/sessions/:sid/viewer/:side/visit.
func (h *SessionHandler) SelectVisit(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	s, ok := side(c)
	if !ok {
		return
	}
	var req SelectVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}
	snap, err := w.Viewer().SelectVisit(s, uuid.MustParse(req.VisitID))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Interact handles PUT /api/v1/sessions/:sid/viewer/:side/orientation. The
// browser reports the pose the user dragged to; the side becomes the sync
// source.
func (h *SessionHandler) Interact(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	s, ok := side(c)
	if !ok {
		return
	}
	var o viewer.Orientation
	if err := c.ShouldBindJSON(&o); err != nil {
		apierrors.BindError(c, err)
		return
	}
	if err := w.Viewer().Interact(s, o); err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, OrientationResponse{Side: s, Orientation: o})
}

// Orientation handles GET /api/v1/sessions/:sid/viewer/:side/orientation.
// Browsers poll it to follow the synced pose.
func (h *SessionHandler) Orientation(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	s, ok := side(c)
	if !ok {
		return
	}
	o, err := w.Viewer().Orientation(s)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, OrientationResponse{Side: s, Orientation: o})
}

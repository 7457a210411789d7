// Package session hosts one workspace per browser tab. A workspace ties the
// pin board, the visit timeline and the viewer of a project together.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/pins"
	"github.com/stwalsh4118/sitetrack/internal/services"
	"github.com/stwalsh4118/sitetrack/internal/timeline"
	"github.com/stwalsh4118/sitetrack/internal/viewer"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrNoSelection = errors.New("no pin is selected")
	ErrWrongPlan   = errors.New("floor plan belongs to another project")
)

// PlanSource is the floor plan data a workspace reads.
type PlanSource interface {
	List(ctx context.Context, projectID uuid.UUID) ([]models.FloorPlan, error)
	Get(ctx context.Context, id uuid.UUID) (*models.FloorPlan, error)
}

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Plans   PlanSource
	Targets pins.TargetSource
	Visits  timeline.VisitSource
	Viewer  viewer.Options
}

// Snapshot is the renderable state of a workspace.
type Snapshot struct {
	ID            uuid.UUID         `json:"id"`
	ProjectID     uuid.UUID         `json:"project_id"`
	Plan          *models.FloorPlan `json:"floor_plan"`
	Board         pins.Snapshot     `json:"board"`
	Visits        []models.Visit    `json:"visits"`
	ActiveVisitID *uuid.UUID        `json:"active_visit_id,omitempty"`
	Viewer        viewer.Snapshot   `json:"viewer"`
}

// Workspace is the state of one browser tab working on one project.
type Workspace struct {
	ID        uuid.UUID
	ProjectID uuid.UUID

	plans    PlanSource
	board    *pins.Board
	timeline *timeline.Timeline
	viewer   *viewer.Controller
	log      *logger.Logger

	mu   sync.RWMutex
	plan *models.FloorPlan

	lastSeen atomic.Int64
	closed   atomic.Bool
}

// NewWorkspace creates a workspace for projectID and activates the first
// floor plan of the project, if any.
func NewWorkspace(ctx context.Context, projectID uuid.UUID, deps Deps, log *logger.Logger) (*Workspace, error) {
	id := uuid.New()
	wlog := log.WithSession(id.String())

	tl := timeline.New(deps.Visits, wlog)
	w := &Workspace{
		ID:        id,
		ProjectID: projectID,
		plans:     deps.Plans,
		board:     pins.NewBoard(pins.NewStore(deps.Targets, wlog), wlog),
		timeline:  tl,
		viewer:    viewer.NewController(tl, deps.Viewer, wlog),
		log:       wlog.WithComponent("workspace"),
	}
	w.Touch(time.Now())

	plans, err := deps.Plans.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		if _, err := w.activatePlan(ctx, plans[0]); err != nil {
			return nil, err
		}
	}

	w.log.Info("Workspace created", map[string]interface{}{
		"project_id": projectID,
		"plans":      len(plans),
	})
	return w, nil
}

// Touch records activity at now.
func (w *Workspace) Touch(now time.Time) {
	w.lastSeen.Store(now.UnixNano())
}

// LastSeen returns the time of the last recorded activity.
func (w *Workspace) LastSeen() time.Time {
	return time.Unix(0, w.lastSeen.Load())
}

// Close closes the viewer, which stops its sync task. Later calls that
// change the workspace fail with ErrNotFound.
func (w *Workspace) Close() {
	w.closed.Store(true)
	w.viewer.Close()
	w.timeline.Reset()
}

func (w *Workspace) live() error {
	if w.closed.Load() {
		return fmt.Errorf("%w: %s", ErrNotFound, w.ID)
	}
	return nil
}

// loadTimeline loads targetID's visits. A load that lands after Close is
// dropped.
func (w *Workspace) loadTimeline(ctx context.Context, targetID uuid.UUID) ([]models.Visit, error) {
	visits, err := w.timeline.Load(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := w.live(); err != nil {
		w.timeline.Reset()
		return nil, err
	}
	return visits, nil
}

// Plan returns the active floor plan, or nil.
func (w *Workspace) Plan() *models.FloorPlan {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.plan
}

// SelectPlan activates another floor plan of the project. Selection, any
// repositioning, the timeline and the viewer are all reset.
func (w *Workspace) SelectPlan(ctx context.Context, planID uuid.UUID) (Snapshot, error) {
	if err := w.live(); err != nil {
		return Snapshot{}, err
	}
	plan, err := w.plans.Get(ctx, planID)
	if err != nil {
		return Snapshot{}, err
	}
	if plan.ProjectID != w.ProjectID {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrWrongPlan, planID)
	}
	if _, err := w.activatePlan(ctx, *plan); err != nil {
		return Snapshot{}, err
	}
	return w.Snapshot(), nil
}

func (w *Workspace) activatePlan(ctx context.Context, plan models.FloorPlan) ([]models.Target, error) {
	w.viewer.Close()
	w.timeline.Reset()

	w.mu.Lock()
	w.plan = &plan
	w.mu.Unlock()

	return w.board.LoadPlan(ctx, plan.ProjectID, plan.ID)
}

// ClickPlan forwards a plan click to the board. When a moved pin's detail
// panel reopens, its timeline is loaded if needed.
func (w *Workspace) ClickPlan(ctx context.Context, click pins.Click) (pins.Outcome, error) {
	if err := w.live(); err != nil {
		return pins.Outcome{}, err
	}
	out, err := w.board.ClickPlan(ctx, click)
	if err != nil {
		return out, err
	}
	if out.Result == pins.ClickMoved && out.Target != nil {
		if err := w.ensureTimeline(ctx, out.Target.ID); err != nil {
			return out, err
		}
	}
	return out, nil
}

// SelectPin opens a pin's detail panel and loads its visits. When the
// visits of another pin fail to load, the previous pin's timeline is dropped;
// a failed refresh of the same pin keeps what is shown.
func (w *Workspace) SelectPin(ctx context.Context, targetID uuid.UUID) (models.Target, []models.Visit, error) {
	if err := w.live(); err != nil {
		return models.Target{}, nil, err
	}
	target, err := w.board.SelectPin(targetID)
	if err != nil {
		return models.Target{}, nil, err
	}

	switching := w.timeline.TargetID() != targetID
	if switching {
		w.viewer.Close()
	}
	visits, err := w.loadTimeline(ctx, targetID)
	if err != nil {
		if switching && !errors.Is(err, timeline.ErrStale) && !errors.Is(err, ErrNotFound) {
			w.timeline.Reset()
		}
		return models.Target{}, nil, err
	}
	return target, visits, nil
}

// CloseDetail closes the detail panel together with the viewer.
func (w *Workspace) CloseDetail() {
	w.viewer.Close()
	w.board.CloseDetail()
	w.timeline.Reset()
}

// BeginMove starts repositioning a pin. The detail panel and the viewer close.
func (w *Workspace) BeginMove(targetID uuid.UUID) error {
	if err := w.live(); err != nil {
		return err
	}
	if err := w.board.BeginMove(targetID); err != nil {
		return err
	}
	w.viewer.Close()
	return nil
}

// CancelMove stops repositioning and reopens the pin's detail panel.
func (w *Workspace) CancelMove(ctx context.Context) error {
	if err := w.live(); err != nil {
		return err
	}
	if err := w.board.CancelMove(); err != nil {
		return err
	}
	if id, ok := w.board.Selected(); ok {
		return w.ensureTimeline(ctx, id)
	}
	return nil
}

// RenamePin renames a pin.
func (w *Workspace) RenamePin(ctx context.Context, targetID uuid.UUID, name string) (*models.Target, error) {
	if err := w.live(); err != nil {
		return nil, err
	}
	return w.board.RenamePin(ctx, targetID, name)
}

// DeletePin deletes a pin. If its detail panel was open, the timeline and
// viewer close too.
func (w *Workspace) DeletePin(ctx context.Context, targetID uuid.UUID) error {
	if err := w.live(); err != nil {
		return err
	}
	if err := w.board.DeletePin(ctx, targetID); err != nil {
		return err
	}
	if w.timeline.TargetID() == targetID {
		w.viewer.Close()
		w.timeline.Reset()
	}
	return nil
}

// AddVisit creates a visit for the selected pin.
func (w *Workspace) AddVisit(ctx context.Context, in services.NewVisitInput) (*models.Visit, error) {
	if err := w.live(); err != nil {
		return nil, err
	}
	if _, err := w.selectedTarget(); err != nil {
		return nil, err
	}
	return w.timeline.Add(ctx, in)
}

// EditVisit updates a visit and refreshes any viewer pane showing it.
func (w *Workspace) EditVisit(ctx context.Context, visitID uuid.UUID, in services.EditVisitInput) (*models.Visit, error) {
	if err := w.live(); err != nil {
		return nil, err
	}
	visit, err := w.timeline.Edit(ctx, visitID, in)
	if err != nil {
		return nil, err
	}

	snap := w.viewer.Snapshot()
	if snap.Primary != nil && snap.Primary.Visit.ID == visitID {
		w.refreshPane(viewer.Left, visitID)
	}
	if snap.Secondary != nil && snap.Secondary.Visit.ID == visitID {
		w.refreshPane(viewer.Right, visitID)
	}
	return visit, nil
}

func (w *Workspace) refreshPane(side viewer.Side, visitID uuid.UUID) {
	if _, err := w.viewer.SelectVisit(side, visitID); err != nil {
		w.log.Warn("Failed to refresh viewer after edit", map[string]interface{}{
			"visit_id": visitID,
			"side":     side,
			"error":    err.Error(),
		})
	}
}

// DeleteVisit deletes a visit. The viewer closes when no visit is left;
// otherwise a primary pane showing the deleted visit moves to the new
// active visit and a secondary one leaves the split.
func (w *Workspace) DeleteVisit(ctx context.Context, visitID uuid.UUID) (*models.Visit, error) {
	if err := w.live(); err != nil {
		return nil, err
	}
	active, err := w.timeline.Delete(ctx, visitID)
	if err != nil {
		return nil, err
	}

	snap := w.viewer.Snapshot()
	if !snap.Open {
		return active, nil
	}
	if active == nil {
		w.viewer.Close()
		return nil, nil
	}
	if snap.Secondary != nil && snap.Secondary.Visit.ID == visitID {
		if _, err := w.viewer.ExitSplit(); err != nil {
			return active, err
		}
	}
	if snap.Primary != nil && snap.Primary.Visit.ID == visitID {
		if _, err := w.viewer.SelectVisit(viewer.Left, active.ID); err != nil {
			return active, err
		}
	}
	return active, nil
}

// ActivateVisit makes a visit of the selected pin active.
func (w *Workspace) ActivateVisit(visitID uuid.UUID) (*models.Visit, error) {
	if err := w.live(); err != nil {
		return nil, err
	}
	return w.timeline.SetActive(visitID)
}

// OpenViewer opens the viewer on a visit of the selected pin, or on the
// active visit when visitID is nil.
func (w *Workspace) OpenViewer(visitID *uuid.UUID) (viewer.Snapshot, error) {
	if err := w.live(); err != nil {
		return viewer.Snapshot{}, err
	}
	target, err := w.selectedTarget()
	if err != nil {
		return viewer.Snapshot{}, err
	}

	var visit *models.Visit
	if visitID != nil {
		if v, ok := w.timeline.Find(*visitID); ok {
			visit = &v
		} else {
			return viewer.Snapshot{}, fmt.Errorf("%w: %s", viewer.ErrVisitNotFound, *visitID)
		}
	} else {
		visit = w.timeline.Active()
	}
	if visit == nil {
		return viewer.Snapshot{}, viewer.ErrNoVisits
	}
	return w.viewer.Open(target, *visit)
}

// CloseViewer closes the viewer.
func (w *Workspace) CloseViewer() viewer.Snapshot {
	w.viewer.Close()
	return w.viewer.Snapshot()
}

// EnterBIM shows the active plan's model. The plan is re-read so a model
// attached after the workspace was created is found.
func (w *Workspace) EnterBIM(ctx context.Context) (viewer.Snapshot, error) {
	if err := w.live(); err != nil {
		return viewer.Snapshot{}, err
	}
	current := w.Plan()
	if current == nil {
		return viewer.Snapshot{}, pins.ErrNoActivePlan
	}
	plan, err := w.plans.Get(ctx, current.ID)
	if err != nil {
		return viewer.Snapshot{}, err
	}

	w.mu.Lock()
	w.plan = plan
	w.mu.Unlock()

	if !plan.HasModel() {
		return viewer.Snapshot{}, viewer.ErrNoModel
	}
	return w.viewer.EnterBIM(*plan.ModelURL)
}

// Viewer exposes the viewer controller for the operations that need no
// workspace coordination.
func (w *Workspace) Viewer() *viewer.Controller {
	return w.viewer
}

// Board exposes the pin board.
func (w *Workspace) Board() *pins.Board {
	return w.board
}

// Snapshot returns the renderable state of the workspace.
func (w *Workspace) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        w.ID,
		ProjectID: w.ProjectID,
		Plan:      w.Plan(),
		Board:     w.board.Snapshot(),
		Visits:    w.timeline.Visits(),
		Viewer:    w.viewer.Snapshot(),
	}
	if active := w.timeline.Active(); active != nil {
		id := active.ID
		snap.ActiveVisitID = &id
	}
	return snap
}

func (w *Workspace) selectedTarget() (models.Target, error) {
	id, ok := w.board.Selected()
	if !ok {
		return models.Target{}, ErrNoSelection
	}
	target, found := w.board.Pin(id)
	if !found {
		return models.Target{}, ErrNoSelection
	}
	return target, nil
}

func (w *Workspace) ensureTimeline(ctx context.Context, targetID uuid.UUID) error {
	if w.timeline.TargetID() == targetID {
		return nil
	}
	w.viewer.Close()
	_, err := w.loadTimeline(ctx, targetID)
	return err
}

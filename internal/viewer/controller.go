// Package viewer drives the modal 360° viewer: the visit and photo shown on
// each side, the exclusive split mode, and orientation sync between two
// panoramas in compare mode.
package viewer

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
)

// Mode is the exclusive layout of the viewer.
type Mode string

const (
	ModeSingle  Mode = "single"
	ModeCompare Mode = "compare"
	ModeBIM     Mode = "bim"
)

// Side identifies a panorama in split view. Left is the primary side.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// ParseSide parses "left" or "right".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Left, Right:
		return Side(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

var (
	ErrClosed          = errors.New("viewer is not open")
	ErrNoVisits        = errors.New("no visit available to compare")
	ErrNoModel         = errors.New("floor plan has no BIM model")
	ErrNotComparing    = errors.New("viewer is not in compare mode")
	ErrNotBIM          = errors.New("viewer is not in bim mode")
	ErrInvalidSide     = errors.New("invalid viewer side")
	ErrVisitNotFound   = errors.New("visit not found for this target")
	ErrPhotoNotInVisit = errors.New("photo is not part of the visit")
)

// VisitCatalog lists the visits of the target being viewed.
type VisitCatalog interface {
	Visits() []models.Visit
	Find(id uuid.UUID) (models.Visit, bool)
}

// Pane is the visit and photo shown on one side.
type Pane struct {
	Visit    models.Visit `json:"visit"`
	PhotoURL string       `json:"photo_url"`
	Bundle   []string     `json:"bundle"`
}

func paneFor(v models.Visit) Pane {
	return Pane{Visit: v, PhotoURL: v.MediaURL, Bundle: v.Bundle()}
}

// Snapshot is the renderable state of the viewer.
type Snapshot struct {
	Open        bool        `json:"open"`
	Mode        Mode        `json:"mode"`
	TargetID    uuid.UUID   `json:"target_id"`
	Primary     *Pane       `json:"primary,omitempty"`
	Secondary   *Pane       `json:"secondary,omitempty"`
	SyncEnabled bool        `json:"sync_enabled"`
	ActiveSide  Side        `json:"active_side"`
	ModelURL    string      `json:"model_url,omitempty"`
	ModelStatus ModelStatus `json:"model_status"`
}

// Options configures a Controller.
type Options struct {
	// SyncInterval is the period of the orientation sync task.
	SyncInterval time.Duration
	NewPanorama  func() Panorama
	NewModel     func() ModelViewer
}

// Controller is the state of one viewer modal. It is safe for concurrent use.
type Controller struct {
	catalog  VisitCatalog
	log      *logger.Logger
	interval time.Duration

	mu          sync.Mutex
	open        bool
	mode        Mode
	target      models.Target
	primary     Pane
	secondary   *Pane
	modelURL    string
	syncEnabled bool
	panoramas   map[Side]Panorama
	model       ModelViewer
	syncer      *syncTask

	// activeSide is read by the sync task without taking mu.
	activeSide atomic.Value
}

// NewController creates a closed viewer.
func NewController(catalog VisitCatalog, opts Options, log *logger.Logger) *Controller {
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = 16 * time.Millisecond
	}
	if opts.NewPanorama == nil {
		opts.NewPanorama = func() Panorama { return NewMemoryPanorama() }
	}
	if opts.NewModel == nil {
		opts.NewModel = func() ModelViewer { return NewModelSlot() }
	}

	left := opts.NewPanorama()
	right := opts.NewPanorama()
	c := &Controller{
		catalog:   catalog,
		log:       log.WithComponent("viewer"),
		interval:  opts.SyncInterval,
		mode:      ModeSingle,
		panoramas: map[Side]Panorama{Left: left, Right: right},
		model:     opts.NewModel(),
	}
	c.activeSide.Store(Left)
	return c
}

// Open shows visit of target in single mode, starting at its cover photo.
// Opening an open viewer replaces what it shows.
func (c *Controller) Open(target models.Target, visit models.Visit) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	pane := paneFor(visit)
	if err := c.panoramas[Left].Show(PanoramaConfig{ImageURL: pane.PhotoURL, Initial: DefaultOrientation}); err != nil {
		return Snapshot{}, fmt.Errorf("failed to show panorama: %w", err)
	}

	c.open = true
	c.target = target
	c.primary = pane

	c.log.Debug("Viewer opened", map[string]interface{}{
		"target_id": target.ID,
		"visit_id":  visit.ID,
	})
	return c.snapshotLocked(), nil
}

// Close tears the viewer down and stops the sync task. Closing a closed
// viewer does nothing.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}
	c.resetLocked()
	c.log.Debug("Viewer closed", nil)
}

// IsOpen reports whether the viewer is open.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// EnterCompare shows a second visit next to the primary one, leaving BIM
// mode first. The first visit other than the primary one is chosen; when the
// primary visit is the only one it is compared with itself. Sync starts off.
func (c *Controller) EnterCompare() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return Snapshot{}, ErrClosed
	}
	if c.mode == ModeCompare {
		return c.snapshotLocked(), nil
	}

	visits := c.catalog.Visits()
	if len(visits) == 0 {
		return Snapshot{}, ErrNoVisits
	}
	other := visits[0]
	for _, v := range visits {
		if v.ID != c.primary.Visit.ID {
			other = v
			break
		}
	}

	pane := paneFor(other)
	if err := c.panoramas[Right].Show(PanoramaConfig{ImageURL: pane.PhotoURL, Initial: DefaultOrientation}); err != nil {
		return Snapshot{}, fmt.Errorf("failed to show panorama: %w", err)
	}

	c.exitSplitLocked()
	c.mode = ModeCompare
	c.secondary = &pane

	c.log.Debug("Compare mode entered", map[string]interface{}{
		"primary_visit_id":   c.primary.Visit.ID,
		"secondary_visit_id": other.ID,
		"self_compare":       other.ID == c.primary.Visit.ID,
	})
	return c.snapshotLocked(), nil
}

// EnterBIM shows the model at modelURL next to the primary panorama,
// leaving compare mode once the model has been handed to the loader. If
// the loader refuses the model the current mode is kept.
func (c *Controller) EnterBIM(modelURL string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return Snapshot{}, ErrClosed
	}
	if modelURL == "" {
		return Snapshot{}, ErrNoModel
	}
	if c.mode == ModeBIM && c.modelURL == modelURL {
		return c.snapshotLocked(), nil
	}

	if err := c.model.Load(modelURL); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load model: %w", err)
	}
	// The slot now holds the new model and must not be disposed.
	c.stopSyncLocked()
	c.secondary = nil
	c.activeSide.Store(Left)
	c.mode = ModeBIM
	c.modelURL = modelURL

	c.log.Debug("BIM mode entered", map[string]interface{}{"model_url": modelURL})
	return c.snapshotLocked(), nil
}

// ExitSplit returns to single mode. It is a no-op in single mode.
func (c *Controller) ExitSplit() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return Snapshot{}, ErrClosed
	}
	c.exitSplitLocked()
	return c.snapshotLocked(), nil
}

// SelectPhoto shows another photo of the visit on side.
func (c *Controller) SelectPhoto(side Side, photoURL string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pane, err := c.paneLocked(side)
	if err != nil {
		return Snapshot{}, err
	}
	if !pane.Visit.HasPhoto(photoURL) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrPhotoNotInVisit, photoURL)
	}

	pano := c.panoramas[side]
	if err := pano.Show(PanoramaConfig{ImageURL: photoURL, Initial: pano.Orientation()}); err != nil {
		return Snapshot{}, fmt.Errorf("failed to show panorama: %w", err)
	}
	pane.PhotoURL = photoURL
	return c.snapshotLocked(), nil
}

// SelectVisit replaces the visit on side and shows its cover photo.
func (c *Controller) SelectVisit(side Side, visitID uuid.UUID) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pane, err := c.paneLocked(side)
	if err != nil {
		return Snapshot{}, err
	}
	visit, ok := c.catalog.Find(visitID)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrVisitNotFound, visitID)
	}

	next := paneFor(visit)
	pano := c.panoramas[side]
	if err := pano.Show(PanoramaConfig{ImageURL: next.PhotoURL, Initial: pano.Orientation()}); err != nil {
		return Snapshot{}, fmt.Errorf("failed to show panorama: %w", err)
	}
	*pane = next
	return c.snapshotLocked(), nil
}

// ToggleSync flips orientation sync in compare mode and returns the new state.
func (c *Controller) ToggleSync() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return false, ErrClosed
	}
	if c.mode != ModeCompare {
		return false, ErrNotComparing
	}

	if c.syncEnabled {
		c.stopSyncLocked()
	} else {
		c.startSyncLocked()
	}
	return c.syncEnabled, nil
}

// Interact records a pointer interaction on side: the browser reports the
// camera pose the user dragged to, and side becomes the sync source.
func (c *Controller) Interact(side Side, o Orientation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.paneLocked(side); err != nil {
		return err
	}
	c.activeSide.Store(side)
	c.panoramas[side].SetOrientation(o, false)
	return nil
}

// Orientation returns the camera pose of side.
func (c *Controller) Orientation(side Side) (Orientation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.paneLocked(side); err != nil {
		return Orientation{}, err
	}
	return c.panoramas[side].Orientation(), nil
}

// ReportModelStatus records the browser-side outcome of loading the BIM model.
func (c *Controller) ReportModelStatus(status ModelStatus, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	if c.mode != ModeBIM {
		return ErrNotBIM
	}
	if reporter, ok := c.model.(interface{ Report(ModelStatus, string) }); ok {
		reporter.Report(status, message)
	}
	if status == ModelFailed {
		c.log.Warn("BIM model failed to load", map[string]interface{}{
			"model_url": c.modelURL,
			"error":     message,
		})
	}
	return nil
}

// Snapshot returns the renderable state of the viewer.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Syncing reports whether the sync task is running.
func (c *Controller) Syncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncer != nil
}

func (c *Controller) paneLocked(side Side) (*Pane, error) {
	if !c.open {
		return nil, ErrClosed
	}
	switch side {
	case Left:
		return &c.primary, nil
	case Right:
		if c.mode != ModeCompare || c.secondary == nil {
			return nil, ErrNotComparing
		}
		return c.secondary, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
}

// exitSplitLocked leaves compare or BIM mode, stopping sync and disposing
// the model viewer.
func (c *Controller) exitSplitLocked() {
	c.stopSyncLocked()
	if c.mode == ModeBIM {
		c.model.Dispose()
		c.modelURL = ""
	}
	c.mode = ModeSingle
	c.secondary = nil
	c.activeSide.Store(Left)
}

func (c *Controller) resetLocked() {
	c.exitSplitLocked()
	c.open = false
	c.target = models.Target{}
	c.primary = Pane{}
}

func (c *Controller) startSyncLocked() {
	if c.syncer != nil {
		return
	}
	c.syncer = startSync(c.panoramas[Left], c.panoramas[Right], &c.activeSide, c.interval)
	c.syncEnabled = true
	c.log.Debug("Orientation sync started", map[string]interface{}{"interval": c.interval.String()})
}

func (c *Controller) stopSyncLocked() {
	c.syncEnabled = false
	if c.syncer == nil {
		return
	}
	c.syncer.stop()
	c.syncer = nil
	c.log.Debug("Orientation sync stopped", nil)
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Open:        c.open,
		Mode:        c.mode,
		TargetID:    c.target.ID,
		SyncEnabled: c.syncEnabled,
		ActiveSide:  c.activeSide.Load().(Side),
		ModelURL:    c.modelURL,
		ModelStatus: c.model.Status(),
	}
	if c.open {
		primary := c.primary
		snap.Primary = &primary
	}
	if c.secondary != nil {
		secondary := *c.secondary
		snap.Secondary = &secondary
	}
	return snap
}

// syncTask copies the orientation of the active side onto the other side
// every tick until stopped.
type syncTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startSync(left, right Panorama, active *atomic.Value, interval time.Duration) *syncTask {
	ctx, cancel := context.WithCancel(context.Background())
	task := &syncTask{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(task.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				src, dst := left, right
				if active.Load().(Side) == Right {
					src, dst = right, left
				}
				if o := src.Orientation(); o != dst.Orientation() {
					dst.SetOrientation(o, false)
				}
			}
		}
	}()
	return task
}

// stop cancels the task and waits for it to exit.
func (t *syncTask) stop() {
	t.cancel()
	<-t.done
}

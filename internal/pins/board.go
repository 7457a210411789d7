package pins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
)

// State is the placement mode of a Board.
type State string

const (
	// Idle: a plan click creates a new pin.
	Idle State = "idle"
	// Repositioning: the next plan click moves the pin being repositioned.
	Repositioning State = "repositioning"
)

// ClickResult says what a plan click did.
type ClickResult string

const (
	ClickCreated ClickResult = "created"
	ClickMoved   ClickResult = "moved"
	// ClickIgnored: the name prompt was dismissed, nothing was written.
	ClickIgnored ClickResult = "ignored"
)

// Click is a pointer click on the plan image together with the answer to
// the name prompt. Name is only read while Idle.
type Click struct {
	Pointer Pointer `json:"pointer"`
	Rect    Rect    `json:"rect"`
	Name    string  `json:"name"`
}

// Outcome is the result of a plan click.
type Outcome struct {
	Result ClickResult      `json:"result"`
	Point  models.PlanPoint `json:"point"`
	Target *models.Target   `json:"target,omitempty"`
}

// PinView is a pin as it should be rendered.
type PinView struct {
	models.Target
	Selected   bool `json:"selected"`
	Dimmed     bool `json:"dimmed"`
	Selectable bool `json:"selectable"`
}

// Snapshot is the renderable state of a Board.
type Snapshot struct {
	FloorPlanID uuid.UUID  `json:"floor_plan_id"`
	State       State      `json:"state"`
	MovingID    *uuid.UUID `json:"moving_id,omitempty"`
	SelectedID  *uuid.UUID `json:"selected_id,omitempty"`
	Pins        []PinView  `json:"pins"`
}

// Board drives pin placement on the active floor plan. Detail panel
// selection is tracked alongside the placement state but is independent of it.
type Board struct {
	store *Store
	log   *logger.Logger

	mu       sync.Mutex
	state    State
	moving   uuid.UUID
	selected uuid.UUID
	// inFlight is set while a repositioning click waits on the source.
	inFlight bool
}

// NewBoard creates a Board in the Idle state.
func NewBoard(store *Store, log *logger.Logger) *Board {
	return &Board{
		store: store,
		log:   log.WithComponent("placement"),
		state: Idle,
	}
}

// LoadPlan activates planID. Selection is cleared and any repositioning is
// abandoned before the targets are fetched.
func (b *Board) LoadPlan(ctx context.Context, projectID, planID uuid.UUID) ([]models.Target, error) {
	b.mu.Lock()
	b.state = Idle
	b.moving = uuid.Nil
	b.selected = uuid.Nil
	b.mu.Unlock()

	return b.store.Load(ctx, projectID, planID)
}

// ClickPlan handles a click on the plan image. While Idle it creates a pin
// named c.Name, or does nothing when the name is blank. While Repositioning
// it moves the pin being repositioned and reopens its detail panel. If the
// move fails the board stays in Repositioning so the click can be retried.
func (b *Board) ClickPlan(ctx context.Context, c Click) (Outcome, error) {
	if b.store.PlanID() == uuid.Nil {
		return Outcome{}, ErrNoActivePlan
	}
	if !c.Rect.Valid() || !c.Rect.Contains(c.Pointer) {
		return Outcome{}, ErrOutsidePlan
	}
	point := MapPointer(c.Pointer, c.Rect)

	b.mu.Lock()
	state, moving := b.state, b.moving
	if state == Repositioning {
		if b.inFlight {
			b.mu.Unlock()
			return Outcome{}, ErrMovePending
		}
		b.inFlight = true
	}
	b.mu.Unlock()

	if state == Repositioning {
		return b.move(ctx, moving, point)
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		return Outcome{Result: ClickIgnored, Point: point}, nil
	}

	target, err := b.store.Create(ctx, name, point)
	if err != nil {
		b.log.Warn("Pin creation failed", map[string]interface{}{
			"point": point.String(),
			"error": err.Error(),
		})
		return Outcome{}, err
	}
	return Outcome{Result: ClickCreated, Point: point, Target: target}, nil
}

func (b *Board) move(ctx context.Context, id uuid.UUID, point models.PlanPoint) (Outcome, error) {
	target, err := b.store.UpdateCoordinates(ctx, id, point)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight = false

	if err != nil {
		b.log.Warn("Pin move failed, still repositioning", map[string]interface{}{
			"target_id": id,
			"point":     point.String(),
			"error":     err.Error(),
		})
		return Outcome{}, err
	}

	if b.state == Repositioning && b.moving == id {
		b.state = Idle
		b.moving = uuid.Nil
		b.selected = id
	}
	return Outcome{Result: ClickMoved, Point: point, Target: target}, nil
}

// SelectPin opens the detail panel of a pin. Pins cannot be selected while
// one is being repositioned.
func (b *Board) SelectPin(id uuid.UUID) (models.Target, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Repositioning {
		return models.Target{}, ErrRepositioning
	}
	target, ok := b.store.Find(id)
	if !ok {
		return models.Target{}, fmt.Errorf("%w: %s", ErrPinNotFound, id)
	}
	b.selected = id
	return target, nil
}

// Pin returns a pin of the active plan.
func (b *Board) Pin(id uuid.UUID) (models.Target, bool) {
	return b.store.Find(id)
}

// CloseDetail closes the detail panel.
func (b *Board) CloseDetail() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = uuid.Nil
}

// Selected returns the pin whose detail panel is open.
func (b *Board) Selected() (uuid.UUID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected, b.selected != uuid.Nil
}

// BeginMove enters Repositioning for id from any state and closes the
// detail panel. It fails with ErrMovePending while a move is being saved.
func (b *Board) BeginMove(id uuid.UUID) error {
	if _, ok := b.store.Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrPinNotFound, id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return ErrMovePending
	}
	b.state = Repositioning
	b.moving = id
	b.selected = uuid.Nil

	b.log.Debug("Repositioning started", map[string]interface{}{"target_id": id})
	return nil
}

// CancelMove leaves Repositioning without moving the pin and reopens its
// detail panel. It does nothing while Idle. A move already sent to the
// source cannot be cancelled: CancelMove returns ErrMovePending instead.
func (b *Board) CancelMove() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Repositioning {
		return nil
	}
	if b.inFlight {
		return ErrMovePending
	}
	b.selected = b.moving
	b.state = Idle
	b.moving = uuid.Nil
	return nil
}

// RenamePin renames a pin on the active plan.
func (b *Board) RenamePin(ctx context.Context, id uuid.UUID, name string) (*models.Target, error) {
	return b.store.Rename(ctx, id, name)
}

// DeletePin deletes a pin and drops any selection or repositioning of it.
func (b *Board) DeletePin(ctx context.Context, id uuid.UUID) error {
	if err := b.store.Delete(ctx, id); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selected == id {
		b.selected = uuid.Nil
	}
	if b.moving == id {
		b.state = Idle
		b.moving = uuid.Nil
	}
	return nil
}

// State returns the placement state and, while Repositioning, the pin being moved.
func (b *Board) State() (State, uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.moving
}

// Pins returns the pins of the active plan with their render flags. While
// Repositioning every pin except the moving one is dimmed, and no pin is
// selectable.
func (b *Board) Pins() []PinView {
	b.mu.Lock()
	state, moving, selected := b.state, b.moving, b.selected
	b.mu.Unlock()

	targets := b.store.Pins()
	views := make([]PinView, len(targets))
	for i, t := range targets {
		views[i] = PinView{
			Target:     t,
			Selected:   t.ID == selected,
			Dimmed:     state == Repositioning && t.ID != moving,
			Selectable: state == Idle,
		}
	}
	return views
}

// Snapshot returns the renderable state of the board.
func (b *Board) Snapshot() Snapshot {
	pins := b.Pins()

	b.mu.Lock()
	defer b.mu.Unlock()
	snap := Snapshot{
		FloorPlanID: b.store.PlanID(),
		State:       b.state,
		Pins:        pins,
	}
	if b.moving != uuid.Nil {
		id := b.moving
		snap.MovingID = &id
	}
	if b.selected != uuid.Nil {
		id := b.selected
		snap.SelectedID = &id
	}
	return snap
}

// IsStale reports whether err means a result was dropped for a superseded plan.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}

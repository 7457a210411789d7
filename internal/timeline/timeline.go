// Package timeline keeps the ordered visit history of the selected target.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/services"
)

var (
	ErrNoTarget      = errors.New("no target is selected")
	ErrStale         = errors.New("result discarded: selected target changed")
	ErrVisitNotFound = errors.New("visit not found in the timeline")
)

// VisitSource is the remote data source behind the timeline.
type VisitSource interface {
	ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.Visit, error)
	Create(ctx context.Context, in services.NewVisitInput) (*models.Visit, error)
	Update(ctx context.Context, id uuid.UUID, in services.EditVisitInput) (*models.Visit, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Timeline holds the visits of one target, most recent visit date first,
// and tracks the active visit. Visits sharing a date keep the order the
// source returned them in; a newly added visit goes first among its date.
type Timeline struct {
	source VisitSource
	log    *logger.Logger

	mu         sync.RWMutex
	targetID   uuid.UUID
	generation uint64
	visits     []models.Visit
	active     uuid.UUID
}

// New creates an empty timeline with no target.
func New(source VisitSource, log *logger.Logger) *Timeline {
	return &Timeline{source: source, log: log.WithComponent("timeline")}
}

// Load selects targetID and fetches its visits. The most recent visit
// becomes active. A Load superseded by a newer Load or Reset returns ErrStale.
// If the fetch fails the timeline keeps its previous target and visits.
func (t *Timeline) Load(ctx context.Context, targetID uuid.UUID) ([]models.Visit, error) {
	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	visits, err := t.source.ListByTarget(ctx, targetID)
	if err != nil {
		t.log.Warn("Visit list failed, keeping previous timeline", map[string]interface{}{
			"target_id": targetID,
			"error":     err.Error(),
		})
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		t.log.Debug("Discarding stale visit list", map[string]interface{}{
			"target_id": targetID,
		})
		return nil, ErrStale
	}

	t.targetID = targetID
	t.visits = append([]models.Visit(nil), visits...)
	sortVisits(t.visits)
	t.active = uuid.Nil
	if len(t.visits) > 0 {
		t.active = t.visits[0].ID
	}
	return t.copyVisits(), nil
}

// Reset drops the target and its visits. Pending loads become stale.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.targetID = uuid.Nil
	t.visits = nil
	t.active = uuid.Nil
}

// Add creates a visit for the current target, inserts it at its sorted
// position and makes it active.
func (t *Timeline) Add(ctx context.Context, in services.NewVisitInput) (*models.Visit, error) {
	gen, targetID, err := t.current()
	if err != nil {
		return nil, err
	}
	in.TargetID = targetID

	visit, err := t.source.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return nil, ErrStale
	}

	at := sort.Search(len(t.visits), func(i int) bool {
		return !t.visits[i].VisitDate.After(visit.VisitDate)
	})
	t.visits = append(t.visits, models.Visit{})
	copy(t.visits[at+1:], t.visits[at:])
	t.visits[at] = *visit
	t.active = visit.ID
	return visit, nil
}

// Edit updates a visit and moves it if its date changed.
func (t *Timeline) Edit(ctx context.Context, id uuid.UUID, in services.EditVisitInput) (*models.Visit, error) {
	gen, err := t.requireVisit(id)
	if err != nil {
		return nil, err
	}

	visit, err := t.source.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return nil, ErrStale
	}
	for i := range t.visits {
		if t.visits[i].ID == id {
			t.visits[i] = *visit
			break
		}
	}
	sortVisits(t.visits)
	return visit, nil
}

// Delete removes a visit. When it was active, the most recent remaining
// visit becomes active, or none. The new active visit is returned.
func (t *Timeline) Delete(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	gen, err := t.requireVisit(id)
	if err != nil {
		return nil, err
	}

	if err := t.source.Delete(ctx, id); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return nil, ErrStale
	}
	for i := range t.visits {
		if t.visits[i].ID == id {
			t.visits = append(t.visits[:i], t.visits[i+1:]...)
			break
		}
	}
	if t.active == id {
		t.active = uuid.Nil
		if len(t.visits) > 0 {
			t.active = t.visits[0].ID
		}
	}
	return t.activeLocked(), nil
}

// Active returns the active visit, or nil.
func (t *Timeline) Active() *models.Visit {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activeLocked()
}

// SetActive makes a loaded visit active.
func (t *Timeline) SetActive(id uuid.UUID) (*models.Visit, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexOf(id) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrVisitNotFound, id)
	}
	t.active = id
	return t.activeLocked(), nil
}

// Visits returns a copy of the ordered visits.
func (t *Timeline) Visits() []models.Visit {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.copyVisits()
}

// Find returns a loaded visit.
func (t *Timeline) Find(id uuid.UUID) (models.Visit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexOf(id); i >= 0 {
		return t.visits[i], true
	}
	return models.Visit{}, false
}

// TargetID returns the selected target, or uuid.Nil.
func (t *Timeline) TargetID() uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.targetID
}

// BundleOf returns the photos of v, cover first.
func BundleOf(v models.Visit) []string {
	return v.Bundle()
}

func sortVisits(visits []models.Visit) {
	sort.SliceStable(visits, func(i, j int) bool {
		return visits[i].VisitDate.After(visits[j].VisitDate)
	})
}

func (t *Timeline) current() (uint64, uuid.UUID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.targetID == uuid.Nil {
		return 0, uuid.Nil, ErrNoTarget
	}
	return t.generation, t.targetID, nil
}

func (t *Timeline) requireVisit(id uuid.UUID) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.targetID == uuid.Nil {
		return 0, ErrNoTarget
	}
	if t.indexOf(id) < 0 {
		return 0, fmt.Errorf("%w: %s", ErrVisitNotFound, id)
	}
	return t.generation, nil
}

func (t *Timeline) indexOf(id uuid.UUID) int {
	for i := range t.visits {
		if t.visits[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) activeLocked() *models.Visit {
	if i := t.indexOf(t.active); i >= 0 && t.active != uuid.Nil {
		v := t.visits[i]
		return &v
	}
	return nil
}

func (t *Timeline) copyVisits() []models.Visit {
	return append([]models.Visit{}, t.visits...)
}

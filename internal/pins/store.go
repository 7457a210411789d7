package pins

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/services"
)

// TargetSource is the remote data source behind the pin store.
type TargetSource interface {
	ListByFloorPlan(ctx context.Context, floorPlanID uuid.UUID) ([]models.Target, error)
	Create(ctx context.Context, in services.NewTargetInput) (*models.Target, error)
	Move(ctx context.Context, id uuid.UUID, point models.PlanPoint) (*models.Target, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*models.Target, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store caches the targets of the active floor plan. The cache changes only
// after the source confirms a write, and results that arrive after the
// active plan changed are dropped.
type Store struct {
	source TargetSource
	log    *logger.Logger

	mu         sync.RWMutex
	projectID  uuid.UUID
	planID     uuid.UUID
	generation uint64
	pins       []models.Target
}

// NewStore creates an empty store with no active plan.
func NewStore(source TargetSource, log *logger.Logger) *Store {
	return &Store{source: source, log: log.WithComponent("pin_store")}
}

// Load makes planID the active plan and replaces the cached set with its
// targets. A Load superseded by a newer Load returns ErrStale.
func (s *Store) Load(ctx context.Context, projectID, planID uuid.UUID) ([]models.Target, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.projectID = projectID
	s.planID = planID
	s.pins = nil
	s.mu.Unlock()

	targets, err := s.source.ListByFloorPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.log.Debug("Discarding stale target list", map[string]interface{}{
			"floor_plan_id": planID,
		})
		return nil, ErrStale
	}
	s.pins = append([]models.Target(nil), targets...)
	return s.copyPins(), nil
}

// Create adds a new target at point on the active plan.
func (s *Store) Create(ctx context.Context, name string, point models.PlanPoint) (*models.Target, error) {
	gen, projectID, planID, err := s.active()
	if err != nil {
		return nil, err
	}

	target, err := s.source.Create(ctx, services.NewTargetInput{
		ProjectID:   projectID,
		FloorPlanID: planID,
		Name:        name,
		X:           point.X,
		Y:           point.Y,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, ErrStale
	}
	s.pins = append(s.pins, *target)
	return target, nil
}

// UpdateCoordinates moves a cached target.
func (s *Store) UpdateCoordinates(ctx context.Context, id uuid.UUID, point models.PlanPoint) (*models.Target, error) {
	gen, err := s.requirePin(id)
	if err != nil {
		return nil, err
	}

	target, err := s.source.Move(ctx, id, point)
	if err != nil {
		return nil, err
	}
	return target, s.replace(gen, *target)
}

// Rename renames a cached target.
func (s *Store) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Target, error) {
	gen, err := s.requirePin(id)
	if err != nil {
		return nil, err
	}

	target, err := s.source.Rename(ctx, id, name)
	if err != nil {
		return nil, err
	}
	return target, s.replace(gen, *target)
}

// Delete removes a cached target.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	gen, err := s.requirePin(id)
	if err != nil {
		return err
	}

	if err := s.source.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return ErrStale
	}
	for i := range s.pins {
		if s.pins[i].ID == id {
			s.pins = append(s.pins[:i], s.pins[i+1:]...)
			break
		}
	}
	return nil
}

// Pins returns a copy of the cached targets.
func (s *Store) Pins() []models.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyPins()
}

// Find returns the cached target with id.
func (s *Store) Find(id uuid.UUID) (models.Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pins {
		if p.ID == id {
			return p, true
		}
	}
	return models.Target{}, false
}

// PlanID returns the active plan, or uuid.Nil.
func (s *Store) PlanID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.planID
}

func (s *Store) active() (uint64, uuid.UUID, uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.planID == uuid.Nil {
		return 0, uuid.Nil, uuid.Nil, ErrNoActivePlan
	}
	return s.generation, s.projectID, s.planID, nil
}

func (s *Store) requirePin(id uuid.UUID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.planID == uuid.Nil {
		return 0, ErrNoActivePlan
	}
	for _, p := range s.pins {
		if p.ID == id {
			return s.generation, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrPinNotFound, id)
}

func (s *Store) replace(gen uint64, target models.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return ErrStale
	}
	for i := range s.pins {
		if s.pins[i].ID == target.ID {
			s.pins[i] = target
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPinNotFound, target.ID)
}

func (s *Store) copyPins() []models.Target {
	return append([]models.Target{}, s.pins...)
}

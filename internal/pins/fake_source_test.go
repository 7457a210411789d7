package pins

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/services"
)

// fakeSource is an in-memory TargetSource.
type fakeSource struct {
	mu      sync.Mutex
	targets map[uuid.UUID]models.Target
	order   []uuid.UUID
	failErr error
	// gate blocks ListByFloorPlan for the given plan until release is closed.
	gate map[uuid.UUID]*gate
	// moveGate blocks Move until release is closed.
	moveGate *gate
	// moves counts successful Move calls.
	moves int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		targets: make(map[uuid.UUID]models.Target),
		gate:    make(map[uuid.UUID]*gate),
	}
}

func (f *fakeSource) seed(planID uuid.UUID, name string, x, y float64) models.Target {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := models.Target{ID: uuid.New(), FloorPlanID: planID, Name: name, CoordX: x, CoordY: y, CreatedAt: time.Now()}
	f.targets[t.ID] = t
	f.order = append(f.order, t.ID)
	return t
}

func (f *fakeSource) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

type gate struct {
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) block(planID uuid.UUID) *gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	f.gate[planID] = g
	return g
}

func (f *fakeSource) blockMoves() *gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	f.moveGate = g
	return g
}

func (f *fakeSource) ListByFloorPlan(ctx context.Context, planID uuid.UUID) ([]models.Target, error) {
	f.mu.Lock()
	g := f.gate[planID]
	f.mu.Unlock()
	if g != nil {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	var out []models.Target
	for _, id := range f.order {
		if t, ok := f.targets[id]; ok && t.FloorPlanID == planID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSource) Create(_ context.Context, in services.NewTargetInput) (*models.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	t := models.Target{
		ID: uuid.New(), ProjectID: in.ProjectID, FloorPlanID: in.FloorPlanID,
		Name: in.Name, CoordX: in.X, CoordY: in.Y, CreatedAt: time.Now(),
	}
	f.targets[t.ID] = t
	f.order = append(f.order, t.ID)
	return &t, nil
}

func (f *fakeSource) Move(ctx context.Context, id uuid.UUID, p models.PlanPoint) (*models.Target, error) {
	f.mu.Lock()
	g := f.moveGate
	f.moveGate = nil
	f.mu.Unlock()
	if g != nil {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	t, ok := f.targets[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	t.CoordX, t.CoordY = p.X, p.Y
	f.targets[id] = t
	f.moves++
	return &t, nil
}

func (f *fakeSource) Rename(_ context.Context, id uuid.UUID, name string) (*models.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	t, ok := f.targets[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	t.Name = name
	f.targets[id] = t
	return &t, nil
}

func (f *fakeSource) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	if _, ok := f.targets[id]; !ok {
		return services.ErrNotFound
	}
	delete(f.targets, id)
	return nil
}

func (f *fakeSource) get(id uuid.UUID) models.Target {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targets[id]
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.targets)
}

var errBackend = errors.New("backend unavailable")

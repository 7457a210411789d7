package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/services"
)

// backend is an in-memory stand-in for the floor plan, target and visit services.
type backend struct {
	mu      sync.Mutex
	plans   []models.FloorPlan
	targets map[uuid.UUID]models.Target
	visits  map[uuid.UUID]models.Visit
	// listErr fails every visit list while set.
	listErr error
}

func newBackend() *backend {
	return &backend{
		targets: make(map[uuid.UUID]models.Target),
		visits:  make(map[uuid.UUID]models.Visit),
	}
}

func (b *backend) addPlan(projectID uuid.UUID, title string, modelURL *string) models.FloorPlan {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := models.FloorPlan{ID: uuid.New(), ProjectID: projectID, Title: title, ModelURL: modelURL}
	b.plans = append(b.plans, p)
	return p
}

func (b *backend) addTarget(planID uuid.UUID, name string) models.Target {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := models.Target{ID: uuid.New(), FloorPlanID: planID, Name: name, CoordX: 10, CoordY: 10}
	b.targets[t.ID] = t
	return t
}

func (b *backend) addVisit(targetID uuid.UUID, title, date string) models.Visit {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, _ := time.Parse(time.DateOnly, date)
	v := models.Visit{ID: uuid.New(), TargetID: targetID, Title: title, VisitDate: d, MediaURL: title + ".jpg", CreatedAt: time.Now()}
	b.visits[v.ID] = v
	return v
}

func (b *backend) List(_ context.Context, projectID uuid.UUID) ([]models.FloorPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.FloorPlan
	for _, p := range b.plans {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *backend) Get(_ context.Context, id uuid.UUID) (*models.FloorPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.plans {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, services.ErrNotFound
}

func (b *backend) failVisitLists(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listErr = err
}

func (b *backend) setModel(planID uuid.UUID, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.plans {
		if b.plans[i].ID == planID {
			b.plans[i].ModelURL = &url
		}
	}
}

var errBackend = errors.New("backend unavailable")

type targetBackend struct{ *backend }

func (t targetBackend) ListByFloorPlan(_ context.Context, planID uuid.UUID) ([]models.Target, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.Target
	for _, tg := range t.targets {
		if tg.FloorPlanID == planID {
			out = append(out, tg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t targetBackend) Create(_ context.Context, in services.NewTargetInput) (*models.Target, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tg := models.Target{ID: uuid.New(), ProjectID: in.ProjectID, FloorPlanID: in.FloorPlanID, Name: in.Name, CoordX: in.X, CoordY: in.Y}
	t.targets[tg.ID] = tg
	return &tg, nil
}

func (t targetBackend) Move(_ context.Context, id uuid.UUID, p models.PlanPoint) (*models.Target, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tg, ok := t.targets[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	tg.CoordX, tg.CoordY = p.X, p.Y
	t.targets[id] = tg
	return &tg, nil
}

func (t targetBackend) Rename(_ context.Context, id uuid.UUID, name string) (*models.Target, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tg, ok := t.targets[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	tg.Name = name
	t.targets[id] = tg
	return &tg, nil
}

func (t targetBackend) Delete(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.targets, id)
	return nil
}

type visitBackend struct{ *backend }

func (v visitBackend) ListByTarget(_ context.Context, targetID uuid.UUID) ([]models.Visit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.listErr != nil {
		return nil, v.listErr
	}
	var out []models.Visit
	for _, vs := range v.visits {
		if vs.TargetID == targetID {
			out = append(out, vs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDate.After(out[j].VisitDate) })
	return out, nil
}

func (v visitBackend) Create(_ context.Context, in services.NewVisitInput) (*models.Visit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	vs := models.Visit{ID: uuid.New(), TargetID: in.TargetID, Title: in.Title, VisitDate: in.VisitDate, MediaURL: in.Title + ".jpg"}
	v.visits[vs.ID] = vs
	return &vs, nil
}

func (v visitBackend) Update(_ context.Context, id uuid.UUID, in services.EditVisitInput) (*models.Visit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	vs, ok := v.visits[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	vs.Title = in.Title
	vs.VisitDate = in.VisitDate
	v.visits[id] = vs
	return &vs, nil
}

func (v visitBackend) Delete(_ context.Context, id uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.visits, id)
	return nil
}

func (b *backend) deps() Deps {
	return Deps{
		Plans:   b,
		Targets: targetBackend{b},
		Visits:  visitBackend{b},
	}
}

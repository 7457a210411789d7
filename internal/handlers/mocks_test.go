package handlers

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/services"
	"github.com/stwalsh4118/sitetrack/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockFloorPlanService is a mock implementation of services.FloorPlanService for testing
type MockFloorPlanService struct {
	mock.Mock
}

func (m *MockFloorPlanService) List(ctx context.Context, projectID uuid.UUID) ([]models.FloorPlan, error) {
	args := m.Called(ctx, projectID)
	plans, _ := args.Get(0).([]models.FloorPlan)
	return plans, args.Error(1)
}

func (m *MockFloorPlanService) Get(ctx context.Context, id uuid.UUID) (*models.FloorPlan, error) {
	args := m.Called(ctx, id)
	plan, _ := args.Get(0).(*models.FloorPlan)
	return plan, args.Error(1)
}

func (m *MockFloorPlanService) Upload(ctx context.Context, in services.UploadFloorPlanInput) (*models.FloorPlan, error) {
	// Drain the part so tests can assert on what was streamed.
	body, _ := io.ReadAll(in.File.Body)
	in.File.Body = nil
	args := m.Called(ctx, in, string(body))
	plan, _ := args.Get(0).(*models.FloorPlan)
	return plan, args.Error(1)
}

func (m *MockFloorPlanService) Rename(ctx context.Context, id uuid.UUID, title string) (*models.FloorPlan, error) {
	args := m.Called(ctx, id, title)
	plan, _ := args.Get(0).(*models.FloorPlan)
	return plan, args.Error(1)
}

func (m *MockFloorPlanService) ReplaceImage(ctx context.Context, id uuid.UUID, file storage.Object) (*models.FloorPlan, error) {
	args := m.Called(ctx, id, file.Name)
	plan, _ := args.Get(0).(*models.FloorPlan)
	return plan, args.Error(1)
}

func (m *MockFloorPlanService) AttachModel(ctx context.Context, id uuid.UUID, file storage.Object) (*models.FloorPlan, error) {
	args := m.Called(ctx, id, file.Name, file.ContentType)
	plan, _ := args.Get(0).(*models.FloorPlan)
	return plan, args.Error(1)
}

func (m *MockFloorPlanService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockAuditService is a mock implementation of services.AuditService for testing
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Record(ctx context.Context, action models.AuditAction, details string) {
	m.Called(ctx, action, details)
}

func (m *MockAuditService) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]models.AuditEntry)
	return entries, args.Error(1)
}

func (m *MockAuditService) Close() {}

// memoryBackend serves floor plans, targets and visits from memory for the
// session endpoints.
type memoryBackend struct {
	mu      sync.Mutex
	plans   []models.FloorPlan
	targets map[uuid.UUID]models.Target
	visits  map[uuid.UUID]models.Visit
	// photos records the part names of every created visit, by visit ID.
	photos map[uuid.UUID][]string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		targets: make(map[uuid.UUID]models.Target),
		visits:  make(map[uuid.UUID]models.Visit),
		photos:  make(map[uuid.UUID][]string),
	}
}

func (b *memoryBackend) addPlan(projectID uuid.UUID, title string) models.FloorPlan {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := models.FloorPlan{ID: uuid.New(), ProjectID: projectID, Title: title}
	b.plans = append(b.plans, p)
	return p
}

func (b *memoryBackend) List(_ context.Context, projectID uuid.UUID) ([]models.FloorPlan, error) {
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

func (b *memoryBackend) Get(_ context.Context, id uuid.UUID) (*models.FloorPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.plans {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, services.ErrNotFound
}

type memoryTargets struct{ *memoryBackend }

func (t memoryTargets) ListByFloorPlan(_ context.Context, planID uuid.UUID) ([]models.Target, error) {
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

func (t memoryTargets) Create(_ context.Context, in services.NewTargetInput) (*models.Target, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tg := models.Target{ID: uuid.New(), ProjectID: in.ProjectID, FloorPlanID: in.FloorPlanID, Name: in.Name, CoordX: in.X, CoordY: in.Y}
	t.targets[tg.ID] = tg
	return &tg, nil
}

func (t memoryTargets) Move(_ context.Context, id uuid.UUID, p models.PlanPoint) (*models.Target, error) {
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

func (t memoryTargets) Rename(_ context.Context, id uuid.UUID, name string) (*models.Target, error) {
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

func (t memoryTargets) Delete(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.targets, id)
	return nil
}

type memoryVisits struct{ *memoryBackend }

func (v memoryVisits) ListByTarget(_ context.Context, targetID uuid.UUID) ([]models.Visit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []models.Visit
	for _, vs := range v.visits {
		if vs.TargetID == targetID {
			out = append(out, vs)
		}
	}
	return out, nil
}

func (v memoryVisits) Create(_ context.Context, in services.NewVisitInput) (*models.Visit, error) {
	if len(in.Photos) == 0 {
		return nil, &services.ValidationError{Fields: map[string]string{"photos": "at least one photo is required"}}
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	vs := models.Visit{ID: uuid.New(), TargetID: in.TargetID, Title: in.Title, VisitDate: in.VisitDate}
	var names []string
	for i, p := range in.Photos {
		names = append(names, p.Name)
		url := "memory://objects/visitas/" + p.Name
		if i == 0 {
			vs.MediaURL = url
			continue
		}
		vs.Photos = append(vs.Photos, models.VisitPhoto{ID: uuid.New(), VisitID: vs.ID, PhotoURL: url, Position: i - 1})
	}
	v.visits[vs.ID] = vs
	v.photos[vs.ID] = names
	return &vs, nil
}

func (v memoryVisits) Update(_ context.Context, id uuid.UUID, in services.EditVisitInput) (*models.Visit, error) {
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

func (v memoryVisits) Delete(_ context.Context, id uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.visits, id)
	return nil
}

// MockTargetService is a mock implementation of services.TargetService for testing
type MockTargetService struct {
	mock.Mock
}

func (m *MockTargetService) ListByFloorPlan(ctx context.Context, floorPlanID uuid.UUID) ([]models.Target, error) {
	args := m.Called(ctx, floorPlanID)
	targets, _ := args.Get(0).([]models.Target)
	return targets, args.Error(1)
}

func (m *MockTargetService) Get(ctx context.Context, id uuid.UUID) (*models.Target, error) {
	args := m.Called(ctx, id)
	target, _ := args.Get(0).(*models.Target)
	return target, args.Error(1)
}

func (m *MockTargetService) Create(ctx context.Context, in services.NewTargetInput) (*models.Target, error) {
	args := m.Called(ctx, in)
	target, _ := args.Get(0).(*models.Target)
	return target, args.Error(1)
}

func (m *MockTargetService) Move(ctx context.Context, id uuid.UUID, point models.PlanPoint) (*models.Target, error) {
	args := m.Called(ctx, id, point)
	target, _ := args.Get(0).(*models.Target)
	return target, args.Error(1)
}

func (m *MockTargetService) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Target, error) {
	args := m.Called(ctx, id, name)
	target, _ := args.Get(0).(*models.Target)
	return target, args.Error(1)
}

func (m *MockTargetService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockVisitService is a mock implementation of services.VisitService for testing
type MockVisitService struct {
	mock.Mock
}

func (m *MockVisitService) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.Visit, error) {
	args := m.Called(ctx, targetID)
	visits, _ := args.Get(0).([]models.Visit)
	return visits, args.Error(1)
}

func (m *MockVisitService) Create(ctx context.Context, in services.NewVisitInput) (*models.Visit, error) {
	args := m.Called(ctx, in)
	visit, _ := args.Get(0).(*models.Visit)
	return visit, args.Error(1)
}

func (m *MockVisitService) Update(ctx context.Context, id uuid.UUID, in services.EditVisitInput) (*models.Visit, error) {
	args := m.Called(ctx, id, in)
	visit, _ := args.Get(0).(*models.Visit)
	return visit, args.Error(1)
}

func (m *MockVisitService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

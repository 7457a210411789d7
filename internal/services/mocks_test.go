package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/repository"
)

// MockFloorPlanRepository is a mock implementation of FloorPlanRepository for testing
type MockFloorPlanRepository struct {
	mock.Mock
}

func (m *MockFloorPlanRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.FloorPlan, error) {
	args := m.Called(ctx, projectID)
	plans, _ := args.Get(0).([]models.FloorPlan)
	return plans, args.Error(1)
}

func (m *MockFloorPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.FloorPlan, error) {
	args := m.Called(ctx, id)
	plan, _ := args.Get(0).(*models.FloorPlan)
	return plan, args.Error(1)
}

func (m *MockFloorPlanRepository) Create(ctx context.Context, plan *models.FloorPlan) error {
	args := m.Called(ctx, plan)
	if args.Error(0) == nil {
		plan.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockFloorPlanRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*models.FloorPlan, error) {
	args := m.Called(ctx, id, title)
	plan, _ := args.Get(0).(*models.FloorPlan)
	return plan, args.Error(1)
}

func (m *MockFloorPlanRepository) UpdateImage(ctx context.Context, id uuid.UUID, imageURL, fileName string) (*models.FloorPlan, error) {
	args := m.Called(ctx, id, imageURL, fileName)
	plan, _ := args.Get(0).(*models.FloorPlan)
	return plan, args.Error(1)
}

func (m *MockFloorPlanRepository) UpdateModel(ctx context.Context, id uuid.UUID, modelURL *string) (*models.FloorPlan, error) {
	args := m.Called(ctx, id, modelURL)
	plan, _ := args.Get(0).(*models.FloorPlan)
	return plan, args.Error(1)
}

func (m *MockFloorPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockTargetRepository is a mock implementation of TargetRepository for testing
type MockTargetRepository struct {
	mock.Mock
}

func (m *MockTargetRepository) ListByFloorPlan(ctx context.Context, floorPlanID uuid.UUID) ([]models.Target, error) {
	args := m.Called(ctx, floorPlanID)
	targets, _ := args.Get(0).([]models.Target)
	return targets, args.Error(1)
}

func (m *MockTargetRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Target, error) {
	args := m.Called(ctx, id)
	target, _ := args.Get(0).(*models.Target)
	return target, args.Error(1)
}

func (m *MockTargetRepository) Create(ctx context.Context, target *models.Target) error {
	args := m.Called(ctx, target)
	if args.Error(0) == nil {
		target.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockTargetRepository) UpdateCoordinates(ctx context.Context, id uuid.UUID, x, y float64) (*models.Target, error) {
	args := m.Called(ctx, id, x, y)
	target, _ := args.Get(0).(*models.Target)
	return target, args.Error(1)
}

func (m *MockTargetRepository) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Target, error) {
	args := m.Called(ctx, id, name)
	target, _ := args.Get(0).(*models.Target)
	return target, args.Error(1)
}

func (m *MockTargetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockVisitRepository is a mock implementation of VisitRepository for testing
type MockVisitRepository struct {
	mock.Mock
}

func (m *MockVisitRepository) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.Visit, error) {
	args := m.Called(ctx, targetID)
	visits, _ := args.Get(0).([]models.Visit)
	return visits, args.Error(1)
}

func (m *MockVisitRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	args := m.Called(ctx, id)
	visit, _ := args.Get(0).(*models.Visit)
	return visit, args.Error(1)
}

func (m *MockVisitRepository) Create(ctx context.Context, visit *models.Visit) error {
	args := m.Called(ctx, visit)
	if args.Error(0) == nil {
		visit.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockVisitRepository) Update(ctx context.Context, id uuid.UUID, patch repository.VisitUpdate) (*models.Visit, []string, error) {
	args := m.Called(ctx, id, patch)
	visit, _ := args.Get(0).(*models.Visit)
	dropped, _ := args.Get(1).([]string)
	return visit, dropped, args.Error(2)
}

func (m *MockVisitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockAuditRepository is a mock implementation of AuditRepository for testing
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]models.AuditEntry)
	return entries, args.Error(1)
}

// recordingAudit captures audit calls synchronously.
type recordingAudit struct {
	mu      sync.Mutex
	actions []models.AuditAction
}

func (r *recordingAudit) Record(_ context.Context, action models.AuditAction, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *recordingAudit) Recent(context.Context, int) ([]models.AuditEntry, error) { return nil, nil }

func (r *recordingAudit) Close() {}

func (r *recordingAudit) Actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditAction(nil), r.actions...)
}

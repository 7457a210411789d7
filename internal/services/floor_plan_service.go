package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/repository"
	"github.com/stwalsh4118/sitetrack/internal/storage"
)

// UploadFloorPlanInput is a new plan image for a project.
type UploadFloorPlanInput struct {
	ProjectID uuid.UUID      `json:"project_id"`
	Title     string         `json:"title" validate:"notblank,max=200"`
	File      storage.Object `json:"-"`
}

// FloorPlanService defines the business operations on floor plans.
type FloorPlanService interface {
	// List returns the plans of a project; the first one is the default plan.
	List(ctx context.Context, projectID uuid.UUID) ([]models.FloorPlan, error)

	// Get returns ErrNotFound if the plan does not exist.
	Get(ctx context.Context, id uuid.UUID) (*models.FloorPlan, error)

	// Upload stores the image and creates the plan. Returns ErrDuplicateFile
	// if the project already has a plan uploaded from the same file name.
	Upload(ctx context.Context, in UploadFloorPlanInput) (*models.FloorPlan, error)

	Rename(ctx context.Context, id uuid.UUID, title string) (*models.FloorPlan, error)
	ReplaceImage(ctx context.Context, id uuid.UUID, file storage.Object) (*models.FloorPlan, error)

	// AttachModel uploads an IFC model and links it to the plan.
	AttachModel(ctx context.Context, id uuid.UUID, file storage.Object) (*models.FloorPlan, error)

	// Delete removes the plan with its targets and visits.
	Delete(ctx context.Context, id uuid.UUID) error
}

type floorPlanService struct {
	repo  repository.FloorPlanRepository
	store storage.ObjectStore
	keys  *storage.Keys
	audit AuditService
	log   *logger.Logger
}

// NewFloorPlanService creates a new instance of FloorPlanService.
func NewFloorPlanService(
	repo repository.FloorPlanRepository,
	store storage.ObjectStore,
	keys *storage.Keys,
	audit AuditService,
	log *logger.Logger,
) FloorPlanService {
	return &floorPlanService{
		repo:  repo,
		store: store,
		keys:  keys,
		audit: audit,
		log:   log.WithComponent("floor_plan_service"),
	}
}

func (s *floorPlanService) List(ctx context.Context, projectID uuid.UUID) ([]models.FloorPlan, error) {
	plans, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		s.log.Error("Failed to list floor plans", err, map[string]interface{}{
			"project_id": projectID,
		})
		return nil, persistenceErr("list floor plans", err)
	}
	return plans, nil
}

func (s *floorPlanService) Get(ctx context.Context, id uuid.UUID) (*models.FloorPlan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to query floor plan", err, map[string]interface{}{
			"floor_plan_id": id,
		})
		return nil, persistenceErr("query floor plan", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("floor plan %s: %w", id, ErrNotFound)
	}
	return plan, nil
}

func (s *floorPlanService) Upload(ctx context.Context, in UploadFloorPlanInput) (*models.FloorPlan, error) {
	verr := &ValidationError{}
	if in.ProjectID == uuid.Nil {
		verr.add("project_id", "is required")
	}
	validateStruct(in, verr)
	validateFile("file", in.File, verr)
	if err := verr.orNil(); err != nil {
		s.log.Warn("Invalid floor plan upload", map[string]interface{}{
			"project_id": in.ProjectID,
			"error":      err.Error(),
		})
		return nil, err
	}

	existing, err := s.List(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.FileName == in.File.Name {
			s.log.Warn("Duplicate floor plan upload rejected", map[string]interface{}{
				"project_id": in.ProjectID,
				"file_name":  in.File.Name,
			})
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFile, in.File.Name)
		}
	}

	url, key, err := s.upload(ctx, storage.PrefixPlans, in.File)
	if err != nil {
		return nil, err
	}

	plan := &models.FloorPlan{
		ProjectID: in.ProjectID,
		Title:     strings.TrimSpace(in.Title),
		ImageURL:  url,
		FileName:  in.File.Name,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		s.log.Error("Failed to persist floor plan, uploaded image is orphaned", err, map[string]interface{}{
			"project_id": in.ProjectID,
			"key":        key,
		})
		return nil, persistenceErr("create floor plan", err)
	}

	s.log.Info("Floor plan uploaded", map[string]interface{}{
		"floor_plan_id": plan.ID,
		"project_id":    plan.ProjectID,
		"key":           key,
	})
	s.audit.Record(ctx, models.AuditFloorPlanUploaded, fmt.Sprintf("Planta %q enviada", plan.Title))
	return plan, nil
}

func (s *floorPlanService) Rename(ctx context.Context, id uuid.UUID, title string) (*models.FloorPlan, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Fields: map[string]string{"title": "is required"}}
	}

	plan, err := s.repo.UpdateTitle(ctx, id, title)
	if err != nil {
		s.log.Error("Failed to rename floor plan", err, map[string]interface{}{
			"floor_plan_id": id,
		})
		return nil, persistenceErr("rename floor plan", err)
	}

	s.audit.Record(ctx, models.AuditFloorPlanRenamed, fmt.Sprintf("Planta %s renomeada para %q", id, title))
	return plan, nil
}

func (s *floorPlanService) ReplaceImage(ctx context.Context, id uuid.UUID, file storage.Object) (*models.FloorPlan, error) {
	verr := &ValidationError{}
	validateFile("file", file, verr)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	url, key, err := s.upload(ctx, storage.PrefixPlans, file)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.UpdateImage(ctx, id, url, file.Name)
	if err != nil {
		s.log.Error("Failed to update floor plan image, uploaded image is orphaned", err, map[string]interface{}{
			"floor_plan_id": id,
			"key":           key,
		})
		return nil, persistenceErr("replace floor plan image", err)
	}

	s.deleteObjects(ctx, current.ImageURL)
	s.audit.Record(ctx, models.AuditFloorPlanImage, fmt.Sprintf("Imagem da planta %q substituída", plan.Title))
	return plan, nil
}

func (s *floorPlanService) AttachModel(ctx context.Context, id uuid.UUID, file storage.Object) (*models.FloorPlan, error) {
	verr := &ValidationError{}
	validateFile("file", file, verr)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	url, key, err := s.upload(ctx, storage.PrefixModels, file)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.UpdateModel(ctx, id, &url)
	if err != nil {
		s.log.Error("Failed to attach model, uploaded model is orphaned", err, map[string]interface{}{
			"floor_plan_id": id,
			"key":           key,
		})
		return nil, persistenceErr("attach model", err)
	}

	if current.HasModel() {
		s.deleteObjects(ctx, *current.ModelURL)
	}
	s.audit.Record(ctx, models.AuditFloorPlanModel, fmt.Sprintf("Modelo BIM anexado à planta %q", plan.Title))
	return plan, nil
}

func (s *floorPlanService) Delete(ctx context.Context, id uuid.UUID) error {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Error("Failed to delete floor plan", err, map[string]interface{}{
			"floor_plan_id": id,
		})
		return persistenceErr("delete floor plan", err)
	}

	s.log.Info("Floor plan deleted", map[string]interface{}{
		"floor_plan_id": id,
		"project_id":    plan.ProjectID,
	})
	s.audit.Record(ctx, models.AuditFloorPlanDeleted, fmt.Sprintf("Planta %q excluída", plan.Title))
	return nil
}

// upload stores file under a fresh key and returns its public URL and key.
func (s *floorPlanService) upload(ctx context.Context, prefix string, file storage.Object) (string, string, error) {
	key := s.keys.For(prefix, file.Name)
	if err := s.store.Upload(ctx, key, file); err != nil {
		s.log.Error("Failed to upload file", err, map[string]interface{}{
			"key":       key,
			"file_name": file.Name,
		})
		return "", "", fmt.Errorf("%w: %s: %v", ErrUpload, file.Name, err)
	}
	return s.store.PublicURL(key), key, nil
}

func (s *floorPlanService) deleteObjects(ctx context.Context, urls ...string) {
	removeObjects(ctx, s.store, s.log, urls)
}

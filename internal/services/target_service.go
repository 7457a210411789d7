package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/repository"
)

// NewTargetInput places a new named pin on a plan.
type NewTargetInput struct {
	ProjectID   uuid.UUID `json:"project_id"`
	FloorPlanID uuid.UUID `json:"floor_plan_id"`
	Name        string    `json:"name" validate:"notblank,max=120"`
	X           float64   `json:"coord_x" validate:"gte=0,lte=100"`
	Y           float64   `json:"coord_y" validate:"gte=0,lte=100"`
	Z           *float64  `json:"coord_z,omitempty"`
}

// TargetService defines the business operations on pinned targets.
type TargetService interface {
	ListByFloorPlan(ctx context.Context, floorPlanID uuid.UUID) ([]models.Target, error)

	// Get returns ErrNotFound if the target does not exist.
	Get(ctx context.Context, id uuid.UUID) (*models.Target, error)

	Create(ctx context.Context, in NewTargetInput) (*models.Target, error)

	// Move sets new plan coordinates and returns the updated target.
	Move(ctx context.Context, id uuid.UUID, point models.PlanPoint) (*models.Target, error)

	Rename(ctx context.Context, id uuid.UUID, name string) (*models.Target, error)

	// Delete removes the target with its visits.
	Delete(ctx context.Context, id uuid.UUID) error
}

type targetService struct {
	repo  repository.TargetRepository
	audit AuditService
	log   *logger.Logger
}

// NewTargetService creates a new instance of TargetService.
func NewTargetService(repo repository.TargetRepository, audit AuditService, log *logger.Logger) TargetService {
	return &targetService{
		repo:  repo,
		audit: audit,
		log:   log.WithComponent("target_service"),
	}
}

func (s *targetService) ListByFloorPlan(ctx context.Context, floorPlanID uuid.UUID) ([]models.Target, error) {
	targets, err := s.repo.ListByFloorPlan(ctx, floorPlanID)
	if err != nil {
		s.log.Error("Failed to list targets", err, map[string]interface{}{
			"floor_plan_id": floorPlanID,
		})
		return nil, persistenceErr("list targets", err)
	}

	s.log.Debug("Targets loaded", map[string]interface{}{
		"floor_plan_id": floorPlanID,
		"count":         len(targets),
	})
	return targets, nil
}

func (s *targetService) Get(ctx context.Context, id uuid.UUID) (*models.Target, error) {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to query target", err, map[string]interface{}{
			"target_id": id,
		})
		return nil, persistenceErr("query target", err)
	}
	if target == nil {
		return nil, fmt.Errorf("target %s: %w", id, ErrNotFound)
	}
	return target, nil
}

func (s *targetService) Create(ctx context.Context, in NewTargetInput) (*models.Target, error) {
	verr := &ValidationError{}
	if in.ProjectID == uuid.Nil {
		verr.add("project_id", "is required")
	}
	if in.FloorPlanID == uuid.Nil {
		verr.add("floor_plan_id", "is required")
	}
	validateStruct(in, verr)
	if err := verr.orNil(); err != nil {
		s.log.Warn("Invalid target", map[string]interface{}{
			"floor_plan_id": in.FloorPlanID,
			"error":         err.Error(),
		})
		return nil, err
	}

	target := &models.Target{
		ProjectID:   in.ProjectID,
		FloorPlanID: in.FloorPlanID,
		Name:        strings.TrimSpace(in.Name),
		CoordX:      in.X,
		CoordY:      in.Y,
		CoordZ:      in.Z,
	}
	if err := s.repo.Create(ctx, target); err != nil {
		s.log.Error("Failed to create target", err, map[string]interface{}{
			"floor_plan_id": in.FloorPlanID,
			"name":          target.Name,
		})
		return nil, persistenceErr("create target", err)
	}

	s.log.Info("Target created", map[string]interface{}{
		"target_id":     target.ID,
		"floor_plan_id": target.FloorPlanID,
		"point":         target.Point().String(),
	})
	s.audit.Record(ctx, models.AuditTargetCreated, fmt.Sprintf("Alvo %q criado em %s", target.Name, target.Point()))
	return target, nil
}

func (s *targetService) Move(ctx context.Context, id uuid.UUID, point models.PlanPoint) (*models.Target, error) {
	if !point.InBounds() {
		return nil, &ValidationError{Fields: map[string]string{
			"coordinates": fmt.Sprintf("must be within [%g, %g], got %s", models.MinPercent, models.MaxPercent, point),
		}}
	}

	target, err := s.repo.UpdateCoordinates(ctx, id, point.X, point.Y)
	if err != nil {
		s.log.Error("Failed to move target", err, map[string]interface{}{
			"target_id": id,
			"point":     point.String(),
		})
		return nil, persistenceErr("move target", err)
	}

	s.log.Info("Target moved", map[string]interface{}{
		"target_id": id,
		"point":     point.String(),
	})
	s.audit.Record(ctx, models.AuditTargetMoved, fmt.Sprintf("Alvo %q movido para %s", target.Name, point))
	return target, nil
}

func (s *targetService) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Target, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Fields: map[string]string{"name": "is required"}}
	}

	target, err := s.repo.Rename(ctx, id, name)
	if err != nil {
		s.log.Error("Failed to rename target", err, map[string]interface{}{
			"target_id": id,
		})
		return nil, persistenceErr("rename target", err)
	}

	s.audit.Record(ctx, models.AuditTargetRenamed, fmt.Sprintf("Alvo %s renomeado para %q", id, name))
	return target, nil
}

func (s *targetService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Error("Failed to delete target", err, map[string]interface{}{
			"target_id": id,
		})
		return persistenceErr("delete target", err)
	}

	s.log.Info("Target deleted", map[string]interface{}{"target_id": id})
	s.audit.Record(ctx, models.AuditTargetDeleted, fmt.Sprintf("Alvo %s excluído", id))
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/sitetrack/internal/database"
	"github.com/stwalsh4118/sitetrack/internal/models"
)

// FloorPlanRepository defines data access for the floor_plans table.
type FloorPlanRepository interface {
	// ListByProject returns the plans of a project in upload order.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.FloorPlan, error)

	// FindByID returns nil, nil when the plan does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*models.FloorPlan, error)

	// Create inserts plan and fills in its generated ID and timestamps.
	Create(ctx context.Context, plan *models.FloorPlan) error

	UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*models.FloorPlan, error)
	UpdateImage(ctx context.Context, id uuid.UUID, imageURL, fileName string) (*models.FloorPlan, error)
	UpdateModel(ctx context.Context, id uuid.UUID, modelURL *string) (*models.FloorPlan, error)

	// Delete removes the plan; targets and their visits cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}

type floorPlanRepository struct {
	db *database.Database
}

// NewFloorPlanRepository creates a new FloorPlanRepository.
func NewFloorPlanRepository(db *database.Database) FloorPlanRepository {
	return &floorPlanRepository{db: db}
}

const floorPlanColumns = `id, project_id, title, image_url, file_name, model_url, created_at, updated_at`

func scanFloorPlan(row pgx.Row) (*models.FloorPlan, error) {
	var p models.FloorPlan
	err := row.Scan(
		&p.ID,
		&p.ProjectID,
		&p.Title,
		&p.ImageURL,
		&p.FileName,
		&p.ModelURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *floorPlanRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.FloorPlan, error) {
	query := `SELECT ` + floorPlanColumns + `
		FROM floor_plans
		WHERE project_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query floor plans for project %s: %w", projectID, err)
	}
	defer rows.Close()

	plans := []models.FloorPlan{}
	for rows.Next() {
		p, err := scanFloorPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan floor plan row: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating floor plan rows: %w", err)
	}
	return plans, nil
}

func (r *floorPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.FloorPlan, error) {
	query := `SELECT ` + floorPlanColumns + ` FROM floor_plans WHERE id = $1`

	plan, err := scanFloorPlan(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query floor plan %s: %w", id, err)
	}
	return plan, nil
}

func (r *floorPlanRepository) Create(ctx context.Context, plan *models.FloorPlan) error {
	query := `
		INSERT INTO floor_plans (project_id, title, image_url, file_name, model_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		plan.ProjectID,
		plan.Title,
		plan.ImageURL,
		plan.FileName,
		plan.ModelURL,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert floor plan %q: %w", plan.Title, err)
	}
	return nil
}

func (r *floorPlanRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*models.FloorPlan, error) {
	return r.update(ctx, id, `title = $2`, title)
}

func (r *floorPlanRepository) UpdateImage(ctx context.Context, id uuid.UUID, imageURL, fileName string) (*models.FloorPlan, error) {
	return r.update(ctx, id, `image_url = $2, file_name = $3`, imageURL, fileName)
}

func (r *floorPlanRepository) UpdateModel(ctx context.Context, id uuid.UUID, modelURL *string) (*models.FloorPlan, error) {
	return r.update(ctx, id, `model_url = $2`, modelURL)
}

func (r *floorPlanRepository) update(ctx context.Context, id uuid.UUID, set string, args ...any) (*models.FloorPlan, error) {
	query := `UPDATE floor_plans SET ` + set + `, updated_at = now()
		WHERE id = $1
		RETURNING ` + floorPlanColumns

	plan, err := scanFloorPlan(r.db.Pool.QueryRow(ctx, query, append([]any{id}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update floor plan %s: %w", id, err)
	}
	return plan, nil
}

func (r *floorPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM floor_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete floor plan %s: %w", id, err)
	}
	return expectAffected(tag)
}

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

// TargetRepository defines data access for the targets table.
type TargetRepository interface {
	// ListByFloorPlan returns every target pinned on the plan.
	ListByFloorPlan(ctx context.Context, floorPlanID uuid.UUID) ([]models.Target, error)

	// FindByID returns nil, nil when the target does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Target, error)

	// Create inserts target and fills in its generated ID and creation time.
	Create(ctx context.Context, target *models.Target) error

	UpdateCoordinates(ctx context.Context, id uuid.UUID, x, y float64) (*models.Target, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*models.Target, error)

	// Delete removes the target; its visits cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}

type targetRepository struct {
	db *database.Database
}

// NewTargetRepository creates a new TargetRepository.
func NewTargetRepository(db *database.Database) TargetRepository {
	return &targetRepository{db: db}
}

const targetColumns = `id, project_id, floor_plan_id, name, coord_x, coord_y, coord_z, created_at`

func scanTarget(row pgx.Row) (*models.Target, error) {
	var t models.Target
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.FloorPlanID,
		&t.Name,
		&t.CoordX,
		&t.CoordY,
		&t.CoordZ,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *targetRepository) ListByFloorPlan(ctx context.Context, floorPlanID uuid.UUID) ([]models.Target, error) {
	query := `SELECT ` + targetColumns + `
		FROM targets
		WHERE floor_plan_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Pool.Query(ctx, query, floorPlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query targets for floor plan %s: %w", floorPlanID, err)
	}
	defer rows.Close()

	targets := []models.Target{}
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target row: %w", err)
		}
		targets = append(targets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating target rows: %w", err)
	}
	return targets, nil
}

func (r *targetRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets WHERE id = $1`

	target, err := scanTarget(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query target %s: %w", id, err)
	}
	return target, nil
}

func (r *targetRepository) Create(ctx context.Context, target *models.Target) error {
	query := `
		INSERT INTO targets (project_id, floor_plan_id, name, coord_x, coord_y, coord_z)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.Pool.QueryRow(ctx, query,
		target.ProjectID,
		target.FloorPlanID,
		target.Name,
		target.CoordX,
		target.CoordY,
		target.CoordZ,
	).Scan(&target.ID, &target.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert target %q: %w", target.Name, err)
	}
	return nil
}

func (r *targetRepository) UpdateCoordinates(ctx context.Context, id uuid.UUID, x, y float64) (*models.Target, error) {
	query := `UPDATE targets SET coord_x = $2, coord_y = $3
		WHERE id = $1
		RETURNING ` + targetColumns

	target, err := scanTarget(r.db.Pool.QueryRow(ctx, query, id, x, y))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update coordinates of target %s: %w", id, err)
	}
	return target, nil
}

func (r *targetRepository) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Target, error) {
	query := `UPDATE targets SET name = $2
		WHERE id = $1
		RETURNING ` + targetColumns

	target, err := scanTarget(r.db.Pool.QueryRow(ctx, query, id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to rename target %s: %w", id, err)
	}
	return target, nil
}

func (r *targetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM targets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete target %s: %w", id, err)
	}
	return expectAffected(tag)
}

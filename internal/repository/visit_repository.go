package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/sitetrack/internal/database"
	"github.com/stwalsh4118/sitetrack/internal/models"
)

// VisitUpdate is the patch applied by VisitRepository.Update.
// Title, VisitDate and PointCloudURL are always written. When ReplacePhotos
// is set, MediaURL becomes the new cover and Photos fully replaces the
// stored extra photos.
type VisitUpdate struct {
	Title         string
	VisitDate     time.Time
	PointCloudURL *string
	ReplacePhotos bool
	MediaURL      string
	Photos        []string
}

// VisitRepository defines data access for the visits and visit_photos tables.
type VisitRepository interface {
	// ListByTarget returns the visits of a target, most recent visit date
	// first, each with its extra photos in bundle order.
	ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.Visit, error)

	// FindByID returns nil, nil when the visit does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Visit, error)

	// Create inserts the visit row and its extra photos in one transaction.
	Create(ctx context.Context, visit *models.Visit) error

	// Update applies patch in one transaction and returns the updated visit
	// together with the photo URLs that were dropped from the bundle.
	Update(ctx context.Context, id uuid.UUID, patch VisitUpdate) (*models.Visit, []string, error)

	// Delete removes the visit; its photo rows cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}

type visitRepository struct {
	db *database.Database
}

// NewVisitRepository creates a new VisitRepository.
func NewVisitRepository(db *database.Database) VisitRepository {
	return &visitRepository{db: db}
}

const visitColumns = `id, target_id, title, visit_date, media_url, point_cloud_url, created_at`

func scanVisit(row pgx.Row) (*models.Visit, error) {
	var v models.Visit
	err := row.Scan(
		&v.ID,
		&v.TargetID,
		&v.Title,
		&v.VisitDate,
		&v.MediaURL,
		&v.PointCloudURL,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Photos = []models.VisitPhoto{}
	return &v, nil
}

// Ties on visit_date come back newest insertion first, matching where a
// freshly added visit lands in the timeline.
func (r *visitRepository) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.Visit, error) {
	query := `SELECT ` + visitColumns + `
		FROM visits
		WHERE target_id = $1
		ORDER BY visit_date DESC, created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits for target %s: %w", targetID, err)
	}
	defer rows.Close()

	visits := []models.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit row: %w", err)
		}
		visits = append(visits, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visit rows: %w", err)
	}

	if err := r.attachPhotos(ctx, r.db.Pool, visits); err != nil {
		return nil, err
	}
	return visits, nil
}

func (r *visitRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	visit, err := r.findByID(ctx, r.db.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query visit %s: %w", id, err)
	}
	return visit, nil
}

func (r *visitRepository) findByID(ctx context.Context, q querier, id uuid.UUID) (*models.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`

	visit, err := scanVisit(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	visits := []models.Visit{*visit}
	if err := r.attachPhotos(ctx, q, visits); err != nil {
		return nil, err
	}
	return &visits[0], nil
}

// attachPhotos loads the extra photos of every visit in one query.
func (r *visitRepository) attachPhotos(ctx context.Context, q querier, visits []models.Visit) error {
	if len(visits) == 0 {
		return nil
	}

	ids := make([]string, 0, len(visits))
	index := make(map[uuid.UUID]int, len(visits))
	for i, v := range visits {
		ids = append(ids, v.ID.String())
		index[v.ID] = i
	}

	query := `SELECT id, visit_id, photo_url, position, created_at
		FROM visit_photos
		WHERE visit_id = ANY($1::uuid[])
		ORDER BY visit_id, position`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query visit photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.VisitPhoto
		if err := rows.Scan(&p.ID, &p.VisitID, &p.PhotoURL, &p.Position, &p.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan visit photo row: %w", err)
		}
		if i, ok := index[p.VisitID]; ok {
			visits[i].Photos = append(visits[i].Photos, p)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating visit photo rows: %w", err)
	}
	return nil
}

func (r *visitRepository) Create(ctx context.Context, visit *models.Visit) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO visits (target_id, title, visit_date, media_url, point_cloud_url)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`

		err := tx.QueryRow(ctx, query,
			visit.TargetID,
			visit.Title,
			visit.VisitDate,
			visit.MediaURL,
			visit.PointCloudURL,
		).Scan(&visit.ID, &visit.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert visit %q: %w", visit.Title, err)
		}

		urls := make([]string, 0, len(visit.Photos))
		for _, p := range visit.Photos {
			urls = append(urls, p.PhotoURL)
		}
		photos, err := insertPhotos(ctx, tx, visit.ID, urls)
		if err != nil {
			return err
		}
		visit.Photos = photos
		return nil
	})
}

// insertPhotos stores urls as the extra photos of a visit. Positions start
// at 1 because position 0 of the bundle is the cover.
func insertPhotos(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, urls []string) ([]models.VisitPhoto, error) {
	photos := make([]models.VisitPhoto, 0, len(urls))
	for i, url := range urls {
		p := models.VisitPhoto{VisitID: visitID, PhotoURL: url, Position: i + 1}
		err := tx.QueryRow(ctx,
			`INSERT INTO visit_photos (visit_id, photo_url, position)
			 VALUES ($1, $2, $3)
			 RETURNING id, created_at`,
			visitID, url, p.Position,
		).Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert photo %d of visit %s: %w", p.Position, visitID, err)
		}
		photos = append(photos, p)
	}
	return photos, nil
}

func (r *visitRepository) Update(ctx context.Context, id uuid.UUID, patch VisitUpdate) (*models.Visit, []string, error) {
	var (
		updated *models.Visit
		dropped []string
	)

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := r.findByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load visit %s: %w", id, err)
		}

		mediaURL := current.MediaURL
		if patch.ReplacePhotos {
			mediaURL = patch.MediaURL
		}

		_, err = tx.Exec(ctx,
			`UPDATE visits SET title = $2, visit_date = $3, point_cloud_url = $4, media_url = $5
			 WHERE id = $1`,
			id, patch.Title, patch.VisitDate, patch.PointCloudURL, mediaURL,
		)
		if err != nil {
			return fmt.Errorf("failed to update visit %s: %w", id, err)
		}

		if patch.ReplacePhotos {
			if _, err := tx.Exec(ctx, `DELETE FROM visit_photos WHERE visit_id = $1`, id); err != nil {
				return fmt.Errorf("failed to clear photos of visit %s: %w", id, err)
			}
			if _, err := insertPhotos(ctx, tx, id, patch.Photos); err != nil {
				return err
			}
			dropped = droppedURLs(current.Bundle(), append([]string{patch.MediaURL}, patch.Photos...))
		}

		updated, err = r.findByID(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to reload visit %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, dropped, nil
}

// droppedURLs returns the entries of before that are absent from after.
func droppedURLs(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, u := range after {
		keep[u] = struct{}{}
	}
	var dropped []string
	for _, u := range before {
		if _, ok := keep[u]; !ok {
			dropped = append(dropped, u)
		}
	}
	return dropped
}

func (r *visitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete visit %s: %w", id, err)
	}
	return expectAffected(tag)
}

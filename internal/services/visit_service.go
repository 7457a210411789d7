package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/repository"
	"github.com/stwalsh4118/sitetrack/internal/storage"
)

// MaxParallelUploads bounds concurrent object uploads per request.
const MaxParallelUploads = 4

// NewVisitInput is a capture event for a target. Photos[0] becomes the
// cover; the rest form the bundle in order. A point cloud is either an
// uploaded file or an external link, the file wins when both are set.
type NewVisitInput struct {
	TargetID       uuid.UUID        `json:"target_id"`
	Title          string           `json:"title" validate:"notblank,max=200"`
	VisitDate      time.Time        `json:"visit_date"`
	Photos         []storage.Object `json:"-"`
	PointCloudFile *storage.Object  `json:"-"`
	PointCloudURL  string           `json:"point_cloud_url" validate:"omitempty,url"`
}

// EditVisitInput patches a visit. Title, VisitDate and PointCloudURL are
// always written; an empty PointCloudURL clears the link. A non-empty
// Photos replaces the whole bundle with Photos[0] as the new cover.
type EditVisitInput struct {
	Title         string           `json:"title" validate:"notblank,max=200"`
	VisitDate     time.Time        `json:"visit_date"`
	Photos        []storage.Object `json:"-"`
	PointCloudURL string           `json:"point_cloud_url" validate:"omitempty,url"`
}

// VisitService defines the business operations on target visits.
type VisitService interface {
	// ListByTarget returns visits most recent first.
	ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.Visit, error)

	// Create uploads every file, then persists the visit. Returns a
	// ValidationError before any upload, ErrUpload if any transfer fails
	// and ErrPersistence if the row cannot be written. Completed uploads
	// are not rolled back.
	Create(ctx context.Context, in NewVisitInput) (*models.Visit, error)

	// Update applies in and deletes replaced photo objects best-effort.
	Update(ctx context.Context, id uuid.UUID, in EditVisitInput) (*models.Visit, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

type visitService struct {
	repo    repository.VisitRepository
	targets repository.TargetRepository
	store   storage.ObjectStore
	keys    *storage.Keys
	audit   AuditService
	log     *logger.Logger
}

// NewVisitService creates a new instance of VisitService.
func NewVisitService(
	repo repository.VisitRepository,
	targets repository.TargetRepository,
	store storage.ObjectStore,
	keys *storage.Keys,
	audit AuditService,
	log *logger.Logger,
) VisitService {
	return &visitService{
		repo:    repo,
		targets: targets,
		store:   store,
		keys:    keys,
		audit:   audit,
		log:     log.WithComponent("visit_service"),
	}
}

func (s *visitService) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.Visit, error) {
	visits, err := s.repo.ListByTarget(ctx, targetID)
	if err != nil {
		s.log.Error("Failed to list visits", err, map[string]interface{}{
			"target_id": targetID,
		})
		return nil, persistenceErr("list visits", err)
	}

	s.log.Debug("Visits loaded", map[string]interface{}{
		"target_id": targetID,
		"count":     len(visits),
	})
	return visits, nil
}

func (s *visitService) Create(ctx context.Context, in NewVisitInput) (*models.Visit, error) {
	verr := &ValidationError{}
	if in.TargetID == uuid.Nil {
		verr.add("target_id", "is required")
	}
	validateStruct(in, verr)
	if in.VisitDate.IsZero() {
		verr.add("visit_date", "is required")
	}
	if len(in.Photos) == 0 {
		verr.add("photos", "at least one photo is required")
	}
	for i, photo := range in.Photos {
		validateFile(fmt.Sprintf("photos[%d]", i), photo, verr)
	}
	if in.PointCloudFile != nil {
		validateFile("point_cloud_file", *in.PointCloudFile, verr)
	}
	if err := verr.orNil(); err != nil {
		s.log.Warn("Invalid visit", map[string]interface{}{
			"target_id": in.TargetID,
			"error":     err.Error(),
		})
		return nil, err
	}

	target, err := s.targets.FindByID(ctx, in.TargetID)
	if err != nil {
		return nil, persistenceErr("query target", err)
	}
	if target == nil {
		return nil, fmt.Errorf("target %s: %w", in.TargetID, ErrNotFound)
	}

	files := make([]upload, 0, len(in.Photos)+1)
	for _, photo := range in.Photos {
		files = append(files, upload{prefix: storage.PrefixPhotos, obj: photo})
	}
	if in.PointCloudFile != nil {
		files = append(files, upload{prefix: storage.PrefixPointClouds, obj: *in.PointCloudFile})
	}

	urls, keys, err := s.uploadAll(ctx, files)
	if err != nil {
		return nil, err
	}

	visit := &models.Visit{
		TargetID:  in.TargetID,
		Title:     strings.TrimSpace(in.Title),
		VisitDate: dateOnly(in.VisitDate),
		MediaURL:  urls[0],
	}
	for i, url := range urls[1:len(in.Photos)] {
		visit.Photos = append(visit.Photos, models.VisitPhoto{PhotoURL: url, Position: i + 1})
	}
	switch {
	case in.PointCloudFile != nil:
		visit.PointCloudURL = &urls[len(urls)-1]
	case in.PointCloudURL != "":
		link := in.PointCloudURL
		visit.PointCloudURL = &link
	}

	if err := s.repo.Create(ctx, visit); err != nil {
		s.log.Error("Failed to persist visit, uploaded files are orphaned", err, map[string]interface{}{
			"target_id": in.TargetID,
			"keys":      keys,
		})
		return nil, persistenceErr("create visit", err)
	}

	s.log.Info("Visit created", map[string]interface{}{
		"visit_id":  visit.ID,
		"target_id": visit.TargetID,
		"photos":    len(in.Photos),
	})
	s.audit.Record(ctx, models.AuditVisitCreated,
		fmt.Sprintf("Visita %q (%s) adicionada ao alvo %q", visit.Title, visit.VisitDate.Format(time.DateOnly), target.Name))
	return visit, nil
}

func (s *visitService) Update(ctx context.Context, id uuid.UUID, in EditVisitInput) (*models.Visit, error) {
	verr := &ValidationError{}
	validateStruct(in, verr)
	if in.VisitDate.IsZero() {
		verr.add("visit_date", "is required")
	}
	for i, photo := range in.Photos {
		validateFile(fmt.Sprintf("photos[%d]", i), photo, verr)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	patch := repository.VisitUpdate{
		Title:     strings.TrimSpace(in.Title),
		VisitDate: dateOnly(in.VisitDate),
	}
	if in.PointCloudURL != "" {
		link := in.PointCloudURL
		patch.PointCloudURL = &link
	}

	var keys []string
	if len(in.Photos) > 0 {
		files := make([]upload, len(in.Photos))
		for i, photo := range in.Photos {
			files[i] = upload{prefix: storage.PrefixPhotos, obj: photo}
		}
		urls, uploaded, err := s.uploadAll(ctx, files)
		if err != nil {
			return nil, err
		}
		keys = uploaded
		patch.ReplacePhotos = true
		patch.MediaURL = urls[0]
		patch.Photos = urls[1:]
	}

	visit, dropped, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		s.log.Error("Failed to update visit", err, map[string]interface{}{
			"visit_id": id,
			"keys":     keys,
		})
		return nil, persistenceErr("update visit", err)
	}

	removeObjects(ctx, s.store, s.log, dropped)

	s.log.Info("Visit updated", map[string]interface{}{
		"visit_id":        id,
		"photos_replaced": patch.ReplacePhotos,
		"objects_dropped": len(dropped),
	})
	s.audit.Record(ctx, models.AuditVisitEdited, fmt.Sprintf("Visita %q editada", visit.Title))
	return visit, nil
}

func (s *visitService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Error("Failed to delete visit", err, map[string]interface{}{
			"visit_id": id,
		})
		return persistenceErr("delete visit", err)
	}

	s.log.Info("Visit deleted", map[string]interface{}{"visit_id": id})
	s.audit.Record(ctx, models.AuditVisitDeleted, fmt.Sprintf("Visita %s excluída", id))
	return nil
}

type upload struct {
	prefix string
	obj    storage.Object
}

// uploadAll transfers files concurrently and returns their public URLs
// and keys in input order. On failure the keys already written are logged
// as orphans and ErrUpload is returned.
func (s *visitService) uploadAll(ctx context.Context, files []upload) ([]string, []string, error) {
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = s.keys.For(f.prefix, f.obj.Name)
	}
	done := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelUploads)
	for i := range files {
		g.Go(func() error {
			if err := s.store.Upload(gctx, keys[i], files[i].obj); err != nil {
				return fmt.Errorf("%s: %w", files[i].obj.Name, err)
			}
			done[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var orphans []string
		for i, ok := range done {
			if ok {
				orphans = append(orphans, keys[i])
			}
		}
		s.log.Error("Visit upload failed", err, map[string]interface{}{
			"files":   len(files),
			"orphans": orphans,
		})
		return nil, nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	urls := make([]string, len(keys))
	for i, key := range keys {
		urls[i] = s.store.PublicURL(key)
	}
	return urls, keys, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

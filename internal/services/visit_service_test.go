package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/repository"
	"github.com/stwalsh4118/sitetrack/internal/storage"
)

type visitFixture struct {
	visits  *MockVisitRepository
	targets *MockTargetRepository
	store   *storage.MemoryStore
	audit   *recordingAudit
	service VisitService
}

func newVisitFixture() *visitFixture {
	f := &visitFixture{
		visits:  new(MockVisitRepository),
		targets: new(MockTargetRepository),
		store:   storage.NewMemoryStore(testBaseURL),
		audit:   &recordingAudit{},
	}
	f.service = NewVisitService(f.visits, f.targets, f.store, testKeys(), f.audit, logger.NewNop())
	return f
}

func TestCreateVisit_ThreePhotos(t *testing.T) {
	// Arrange
	f := newVisitFixture()
	ctx := context.Background()
	targetID := uuid.New()

	f.targets.On("FindByID", ctx, targetID).Return(&models.Target{ID: targetID, Name: "Sala A"}, nil)
	f.visits.On("Create", ctx, mock.AnythingOfType("*models.Visit")).Return(nil)

	// Act
	visit, err := f.service.Create(ctx, NewVisitInput{
		TargetID:  targetID,
		Title:     "Inicial",
		VisitDate: time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC),
		Photos:    []storage.Object{file("a.jpg", "aaa"), file("b.jpg", "bb"), file("c.jpg", "c")},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/visitas/1714521600000_0001.jpg", visit.MediaURL)
	require.Len(t, visit.Photos, 2)
	assert.Equal(t, testBaseURL+"/visitas/1714521600000_0002.jpg", visit.Photos[0].PhotoURL)
	assert.Equal(t, 1, visit.Photos[0].Position)
	assert.Equal(t, 2, visit.Photos[1].Position)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), visit.VisitDate)
	assert.Nil(t, visit.PointCloudURL)
	assert.Len(t, f.store.Keys(), 3)
	assert.Equal(t, []models.AuditAction{models.AuditVisitCreated}, f.audit.Actions())
	f.visits.AssertExpectations(t)
}

func TestCreateVisit_PointCloudFile(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	targetID := uuid.New()
	cloud := file("scan.e57", "points")

	f.targets.On("FindByID", ctx, targetID).Return(&models.Target{ID: targetID}, nil)
	f.visits.On("Create", ctx, mock.AnythingOfType("*models.Visit")).Return(nil)

	visit, err := f.service.Create(ctx, NewVisitInput{
		TargetID:       targetID,
		Title:          "Scan",
		VisitDate:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Photos:         []storage.Object{file("a.jpg", "a")},
		PointCloudFile: &cloud,
		PointCloudURL:  "https://viewer.example.com/ignored",
	})

	require.NoError(t, err)
	require.NotNil(t, visit.PointCloudURL)
	assert.Equal(t, testBaseURL+"/nuvens/1714521600000_0002.e57", *visit.PointCloudURL)
	assert.Empty(t, visit.Photos)
}

func TestCreateVisit_PointCloudLink(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	targetID := uuid.New()

	f.targets.On("FindByID", ctx, targetID).Return(&models.Target{ID: targetID}, nil)
	f.visits.On("Create", ctx, mock.AnythingOfType("*models.Visit")).Return(nil)

	visit, err := f.service.Create(ctx, NewVisitInput{
		TargetID:      targetID,
		Title:         "Scan",
		VisitDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Photos:        []storage.Object{file("a.jpg", "a")},
		PointCloudURL: "https://viewer.example.com/cloud/42",
	})

	require.NoError(t, err)
	require.NotNil(t, visit.PointCloudURL)
	assert.Equal(t, "https://viewer.example.com/cloud/42", *visit.PointCloudURL)
}

func TestCreateVisit_ValidationBeforeAnyCall(t *testing.T) {
	f := newVisitFixture()

	_, err := f.service.Create(context.Background(), NewVisitInput{
		TargetID: uuid.New(),
		Title:    "   ",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "visit_date")
	assert.Contains(t, verr.Fields, "photos")
	assert.Empty(t, f.store.Keys())
	f.targets.AssertNotCalled(t, "FindByID")
	f.visits.AssertNotCalled(t, "Create")
}

func TestCreateVisit_UnknownTarget(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	targetID := uuid.New()

	f.targets.On("FindByID", ctx, targetID).Return(nil, nil)

	_, err := f.service.Create(ctx, NewVisitInput{
		TargetID:  targetID,
		Title:     "Inicial",
		VisitDate: time.Now(),
		Photos:    []storage.Object{file("a.jpg", "a")},
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.store.Keys())
}

func TestCreateVisit_UploadFailure(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	targetID := uuid.New()
	cloud := file("scan.e57", "points")

	f.targets.On("FindByID", ctx, targetID).Return(&models.Target{ID: targetID}, nil)
	f.store.FailUploads(storage.PrefixPointClouds, errors.New("bucket unreachable"))

	_, err := f.service.Create(ctx, NewVisitInput{
		TargetID:       targetID,
		Title:          "Inicial",
		VisitDate:      time.Now(),
		Photos:         []storage.Object{file("a.jpg", "a")},
		PointCloudFile: &cloud,
	})

	assert.ErrorIs(t, err, ErrUpload)
	f.visits.AssertNotCalled(t, "Create")
	assert.Empty(t, f.audit.Actions())
}

func TestCreateVisit_PersistenceFailureLeavesUploads(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	targetID := uuid.New()

	f.targets.On("FindByID", ctx, targetID).Return(&models.Target{ID: targetID}, nil)
	f.visits.On("Create", ctx, mock.AnythingOfType("*models.Visit")).Return(errors.New("connection reset"))

	_, err := f.service.Create(ctx, NewVisitInput{
		TargetID:  targetID,
		Title:     "Inicial",
		VisitDate: time.Now(),
		Photos:    []storage.Object{file("a.jpg", "a"), file("b.jpg", "b")},
	})

	assert.ErrorIs(t, err, ErrPersistence)
	assert.Len(t, f.store.Keys(), 2, "completed uploads are not rolled back")
	assert.Empty(t, f.audit.Actions())
}

func TestUpdateVisit_ReplacesBundleAndDeletesDroppedObjects(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	id := uuid.New()

	oldKey := "visitas/1_old.jpg"
	require.NoError(t, f.store.Upload(ctx, oldKey, file("old.jpg", "o")))

	updated := &models.Visit{ID: id, Title: "Revisada"}
	f.visits.On("Update", ctx, id, mock.MatchedBy(func(p repository.VisitUpdate) bool {
		return p.ReplacePhotos &&
			p.MediaURL == testBaseURL+"/visitas/1714521600000_0001.jpg" &&
			len(p.Photos) == 1 &&
			p.PointCloudURL == nil &&
			p.Title == "Revisada"
	})).Return(updated, []string{testBaseURL + "/" + oldKey, "https://elsewhere.example.com/x.jpg"}, nil)

	visit, err := f.service.Update(ctx, id, EditVisitInput{
		Title:     " Revisada ",
		VisitDate: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Photos:    []storage.Object{file("n1.jpg", "1"), file("n2.jpg", "2")},
	})

	require.NoError(t, err)
	assert.Equal(t, updated, visit)
	assert.NotContains(t, f.store.Keys(), oldKey)
	assert.Len(t, f.store.Keys(), 2)
	assert.Equal(t, []models.AuditAction{models.AuditVisitEdited}, f.audit.Actions())
	f.visits.AssertExpectations(t)
}

func TestUpdateVisit_KeepsPhotosAndSetsLinkVerbatim(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	id := uuid.New()

	f.visits.On("Update", ctx, id, mock.MatchedBy(func(p repository.VisitUpdate) bool {
		return !p.ReplacePhotos && p.PointCloudURL != nil && *p.PointCloudURL == "https://viewer.example.com/c/1"
	})).Return(&models.Visit{ID: id}, nil, nil)

	_, err := f.service.Update(ctx, id, EditVisitInput{
		Title:         "Inicial",
		VisitDate:     time.Now(),
		PointCloudURL: "https://viewer.example.com/c/1",
	})

	require.NoError(t, err)
	assert.Empty(t, f.store.Keys())
	f.visits.AssertExpectations(t)
}

func TestUpdateVisit_NotFound(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	id := uuid.New()

	f.visits.On("Update", ctx, id, mock.Anything).Return(nil, nil, repository.ErrNotFound)

	_, err := f.service.Update(ctx, id, EditVisitInput{Title: "x", VisitDate: time.Now()})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.audit.Actions())
}

func TestDeleteVisit(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	id := uuid.New()

	f.visits.On("Delete", ctx, id).Return(nil).Once()
	require.NoError(t, f.service.Delete(ctx, id))

	f.visits.On("Delete", ctx, id).Return(repository.ErrNotFound).Once()
	assert.ErrorIs(t, f.service.Delete(ctx, id), ErrNotFound)

	assert.Equal(t, []models.AuditAction{models.AuditVisitDeleted}, f.audit.Actions())
}

func TestListVisits_DatabaseError(t *testing.T) {
	f := newVisitFixture()
	ctx := context.Background()
	targetID := uuid.New()

	f.visits.On("ListByTarget", ctx, targetID).Return(nil, errors.New("timeout"))

	_, err := f.service.ListByTarget(ctx, targetID)
	assert.ErrorIs(t, err, ErrPersistence)
}

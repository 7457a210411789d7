package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
)

func TestAuditRecord_UsesActorAndSurvivesCanceledRequest(t *testing.T) {
	repo := new(MockAuditRepository)
	service := NewAuditService(repo, time.Second, logger.NewNop())

	repo.On("Insert", mock.Anything, mock.MatchedBy(func(e *models.AuditEntry) bool {
		return e.UserEmail == "eng@example.com" && e.Action == models.AuditTargetCreated && e.Details == "Alvo criado"
	})).Return(nil)

	ctx, cancel := context.WithCancel(WithActor(context.Background(), "eng@example.com"))
	service.Record(ctx, models.AuditTargetCreated, "Alvo criado")
	cancel()

	service.Close()
	repo.AssertExpectations(t)
}

func TestAuditRecord_FailureIsSwallowed(t *testing.T) {
	repo := new(MockAuditRepository)
	service := NewAuditService(repo, time.Second, logger.NewNop())

	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("system_logs unavailable"))

	assert.NotPanics(t, func() {
		service.Record(context.Background(), models.AuditVisitDeleted, "x")
		service.Close()
	})
	repo.AssertNumberOfCalls(t, "Insert", 1)
}

func TestAuditRecord_DroppedAfterClose(t *testing.T) {
	repo := new(MockAuditRepository)
	service := NewAuditService(repo, time.Second, logger.NewNop())

	service.Close()
	service.Record(context.Background(), models.AuditVisitDeleted, "x")

	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestActorFrom_Default(t *testing.T) {
	assert.Equal(t, UnknownActor, ActorFrom(context.Background()))
	assert.Equal(t, UnknownActor, ActorFrom(WithActor(context.Background(), "")))
}

func TestAuditRecent_ClampsLimit(t *testing.T) {
	repo := new(MockAuditRepository)
	service := NewAuditService(repo, time.Second, logger.NewNop())
	ctx := context.Background()

	repo.On("ListRecent", ctx, DefaultAuditLimit).Return([]models.AuditEntry{{Action: models.AuditVisitCreated}}, nil)
	repo.On("ListRecent", ctx, MaxAuditLimit).Return([]models.AuditEntry{}, nil)

	entries, err := service.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = service.Recent(ctx, 10000)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "is required", "photos": "at least one photo is required"}}
	assert.Equal(t, "validation failed: photos at least one photo is required; title is required", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrUpload)
}

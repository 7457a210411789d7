package services

import (
	"context"
	"sync"
	"time"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/models"
	"github.com/stwalsh4118/sitetrack/internal/repository"
)

// DefaultAuditLimit is used by Recent when no limit is given.
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// UnknownActor is recorded when no user is attached to the context.
const UnknownActor = "unknown"

type actorKey struct{}

// WithActor attaches the acting user's email to ctx.
func WithActor(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, actorKey{}, email)
}

// ActorFrom returns the acting user's email, or UnknownActor.
func ActorFrom(ctx context.Context) string {
	if email, ok := ctx.Value(actorKey{}).(string); ok && email != "" {
		return email
	}
	return UnknownActor
}

// AuditService records successful mutations in the system log.
type AuditService interface {
	// Record writes an entry in the background. It never blocks on the
	// database and never reports failure to the caller.
	Record(ctx context.Context, action models.AuditAction, details string)

	// Recent returns the newest entries first.
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)

	// Close waits for in-flight writes. Records after Close are dropped.
	Close()
}

type auditService struct {
	repo    repository.AuditRepository
	log     *logger.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAuditService creates a new instance of AuditService.
func NewAuditService(repo repository.AuditRepository, timeout time.Duration, log *logger.Logger) AuditService {
	return &auditService{
		repo:    repo,
		log:     log.WithComponent("audit_service"),
		timeout: timeout,
	}
}

func (s *auditService) Record(ctx context.Context, action models.AuditAction, details string) {
	entry := &models.AuditEntry{
		UserEmail: ActorFrom(ctx),
		Action:    action,
		Details:   details,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Warn("Audit entry dropped after close", map[string]interface{}{
			"action": action,
		})
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	// The request context is usually done before the write lands.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	go func() {
		defer s.wg.Done()
		defer cancel()

		if err := s.repo.Insert(writeCtx, entry); err != nil {
			s.log.Error("Failed to record audit entry", err, map[string]interface{}{
				"action": action,
				"actor":  entry.UserEmail,
			})
		}
	}()
}

func (s *auditService) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}

	entries, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		s.log.Error("Failed to list audit entries", err, map[string]interface{}{
			"limit": limit,
		})
		return nil, persistenceErr("list audit entries", err)
	}
	return entries, nil
}

func (s *auditService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

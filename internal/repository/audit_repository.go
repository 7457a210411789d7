package repository

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/sitetrack/internal/database"
	"github.com/stwalsh4118/sitetrack/internal/models"
)

// AuditRepository defines data access for the system_logs table.
type AuditRepository interface {
	// Insert appends entry and fills in its ID and creation time.
	Insert(ctx context.Context, entry *models.AuditEntry) error

	// ListRecent returns at most limit entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

type auditRepository struct {
	db *database.Database
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.Database) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO system_logs (user_email, action, details)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		entry.UserEmail, string(entry.Action), entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry %s: %w", entry.Action, err)
	}
	return nil
}

func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, user_email, action, details, created_at
		 FROM system_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var action string
		if err := rows.Scan(&e.ID, &e.UserEmail, &action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.Action = models.AuditAction(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}

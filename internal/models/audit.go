package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names the kind of mutation recorded in the audit trail.
type AuditAction string

const (
	AuditFloorPlanUploaded AuditAction = "FLOOR_PLAN_UPLOADED"
	AuditFloorPlanRenamed  AuditAction = "FLOOR_PLAN_RENAMED"
	AuditFloorPlanImage    AuditAction = "FLOOR_PLAN_IMAGE_REPLACED"
	AuditFloorPlanModel    AuditAction = "FLOOR_PLAN_MODEL_ATTACHED"
	AuditFloorPlanDeleted  AuditAction = "FLOOR_PLAN_DELETED"

	AuditTargetCreated AuditAction = "TARGET_CREATED"
	AuditTargetMoved   AuditAction = "TARGET_MOVED"
	AuditTargetRenamed AuditAction = "TARGET_RENAMED"
	AuditTargetDeleted AuditAction = "TARGET_DELETED"

	AuditVisitCreated AuditAction = "VISIT_CREATED"
	AuditVisitEdited  AuditAction = "VISIT_EDITED"
	AuditVisitDeleted AuditAction = "VISIT_DELETED"
)

// AuditEntry is one row of the system_logs table.
type AuditEntry struct {
	ID        uuid.UUID   `json:"id"`
	UserEmail string      `json:"user_email"`
	Action    AuditAction `json:"action"`
	Details   string      `json:"details"`
	CreatedAt time.Time   `json:"created_at"`
}

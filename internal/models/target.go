package models

import (
	"time"

	"github.com/google/uuid"
)

// Target is a named location pinned on a floor plan.
type Target struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	FloorPlanID uuid.UUID `json:"floor_plan_id"`
	Name        string    `json:"name"`
	CoordX      float64   `json:"coord_x"`
	CoordY      float64   `json:"coord_y"`
	CoordZ      *float64  `json:"coord_z,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Point returns the pin position on the plan.
func (t Target) Point() PlanPoint {
	return PlanPoint{X: t.CoordX, Y: t.CoordY}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// FloorPlan is one uploaded 2D plan image of a project.
// Deleting a plan cascades to its targets in the database.
type FloorPlan struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"image_url"`
	// FileName is the original upload name, used to reject duplicate uploads.
	FileName  string    `json:"file_name"`
	ModelURL  *string   `json:"model_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasModel reports whether a BIM/IFC model is attached to the plan.
func (p FloorPlan) HasModel() bool {
	return p.ModelURL != nil && *p.ModelURL != ""
}

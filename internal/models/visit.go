package models

import (
	"time"

	"github.com/google/uuid"
)

// Visit is one dated capture event for a target. MediaURL is the cover
// photo; Photos holds the extra photos of the bundle in insertion order.
type Visit struct {
	ID            uuid.UUID    `json:"id"`
	TargetID      uuid.UUID    `json:"target_id"`
	Title         string       `json:"title"`
	VisitDate     time.Time    `json:"visit_date"`
	MediaURL      string       `json:"media_url"`
	PointCloudURL *string      `json:"point_cloud_url,omitempty"`
	Photos        []VisitPhoto `json:"photos"`
	CreatedAt     time.Time    `json:"created_at"`
}

// VisitPhoto is one extra photo of a visit bundle.
type VisitPhoto struct {
	ID        uuid.UUID `json:"id"`
	VisitID   uuid.UUID `json:"visit_id"`
	PhotoURL  string    `json:"photo_url"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Bundle returns the ordered photo URLs of the visit: the cover first,
// followed by the extra photos.
func (v Visit) Bundle() []string {
	bundle := make([]string, 0, 1+len(v.Photos))
	bundle = append(bundle, v.MediaURL)
	for _, p := range v.Photos {
		bundle = append(bundle, p.PhotoURL)
	}
	return bundle
}

// HasPhoto reports whether url is part of the visit bundle.
func (v Visit) HasPhoto(url string) bool {
	for _, u := range v.Bundle() {
		if u == url {
			return true
		}
	}
	return false
}

// HasPointCloud reports whether a point cloud is linked to the visit.
func (v Visit) HasPointCloud() bool {
	return v.PointCloudURL != nil && *v.PointCloudURL != ""
}

package pins

import "github.com/stwalsh4118/sitetrack/internal/models"

// Pointer is a pointer position in the same coordinate space as Rect,
// usually CSS pixels relative to the viewport.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the bounding rectangle of the displayed plan image.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the rectangle has a drawable area.
func (r Rect) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Contains reports whether p lies on the rectangle, edges included.
func (r Rect) Contains(p Pointer) bool {
	return p.X >= r.Left && p.X <= r.Left+r.Width &&
		p.Y >= r.Top && p.Y <= r.Top+r.Height
}

// MapPointer converts a pointer position into percentages of the rendered
// image. The result does not depend on the rendered size and is not
// clamped: pointers outside rect map outside [0, 100].
func MapPointer(p Pointer, rect Rect) models.PlanPoint {
	return models.PlanPoint{
		X: (p.X - rect.Left) / rect.Width * 100,
		Y: (p.Y - rect.Top) / rect.Height * 100,
	}
}

package models

import "fmt"

// Plan coordinates are percentages of the displayed plan image, so the
// valid range on each axis is [MinPercent, MaxPercent].
const (
	MinPercent = 0.0
	MaxPercent = 100.0
)

// PlanPoint is a position on a floor plan expressed as percentages of the
// image width (X) and height (Y). It is independent of the rendered pixel
// size of the image.
type PlanPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InBounds reports whether the point lies on the plan image.
func (p PlanPoint) InBounds() bool {
	return p.X >= MinPercent && p.X <= MaxPercent &&
		p.Y >= MinPercent && p.Y <= MaxPercent
}

func (p PlanPoint) String() string {
	return fmt.Sprintf("(%.2f%%, %.2f%%)", p.X, p.Y)
}

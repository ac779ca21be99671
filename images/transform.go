package images

import (
	"image"
	"math"
)

// Transform maps mask-local pixel coordinates to page-absolute coordinates.
//
// The mapping is abs = local*Scale + Offset on each axis. A zero scale is
// treated as 1, so the zero value is the identity.
type Transform struct {
	OffsetX, OffsetY float64
	ScaleX, ScaleY   float64
}

// Translation returns a pure offset transform, the common case for a page
// image cropped out of a larger scan.
func Translation(dx, dy float64) Transform {
	return Transform{OffsetX: dx, OffsetY: dy, ScaleX: 1, ScaleY: 1}
}

// Apply returns the converted points, rounded to the nearest integer.
func (t Transform) Apply(pts []image.Point) []image.Point {
	sx, sy := t.ScaleX, t.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Point{
			X: int(math.Round(float64(p.X)*sx + t.OffsetX)),
			Y: int(math.Round(float64(p.Y)*sy + t.OffsetY)),
		}
	}
	return out
}

package utils

import (
	"image"
	"math"
)

// Box is an axis-aligned bounding box in page pixel coordinates.
type Box struct {
	MinX float64 `json:"x1"`
	MinY float64 `json:"y1"`
	MaxX float64 `json:"x2"`
	MaxY float64 `json:"y2"`
}

// NewBox constructs a Box from two corners, ordering them if needed.
func NewBox(x1, y1, x2, y2 float64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// BoxFromCenter builds a box from a center point and its size.
func BoxFromCenter(cx, cy, w, h float64) Box {
	return NewBox(cx-w/2, cy-h/2, cx+w/2, cy+h/2)
}

// Width returns the box width.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the box height.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool { return b.Area() == 0 }

// Intersect returns the overlapping box of b and o (possibly empty).
func (b Box) Intersect(o Box) Box {
	r := Box{
		MinX: math.Max(b.MinX, o.MinX),
		MinY: math.Max(b.MinY, o.MinY),
		MaxX: math.Min(b.MaxX, o.MaxX),
		MaxY: math.Min(b.MaxY, o.MaxY),
	}
	if r.MaxX < r.MinX {
		r.MaxX = r.MinX
	}
	if r.MaxY < r.MinY {
		r.MaxY = r.MinY
	}
	return r
}

// IoU computes intersection-over-union of two boxes.
func (b Box) IoU(o Box) float64 {
	inter := b.Intersect(o).Area()
	if inter == 0 {
		return 0
	}
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Clamp restricts the box to bounds.
func (b Box) Clamp(bounds image.Rectangle) Box {
	minX, maxX := float64(bounds.Min.X), float64(bounds.Max.X)
	minY, maxY := float64(bounds.Min.Y), float64(bounds.Max.Y)
	return Box{
		MinX: clampFloat(b.MinX, minX, maxX),
		MinY: clampFloat(b.MinY, minY, maxY),
		MaxX: clampFloat(b.MaxX, minX, maxX),
		MaxY: clampFloat(b.MaxY, minY, maxY),
	}
}

// Expand grows the box by margin pixels on every side. Negative margins shrink it.
func (b Box) Expand(margin float64) Box {
	return NewBox(b.MinX-margin, b.MinY-margin, b.MaxX+margin, b.MaxY+margin)
}

// Inside reports whether the box lies fully within bounds.
func (b Box) Inside(bounds image.Rectangle) bool {
	return b.MinX >= float64(bounds.Min.X) && b.MinY >= float64(bounds.Min.Y) &&
		b.MaxX <= float64(bounds.Max.X) && b.MaxY <= float64(bounds.Max.Y)
}

// ToRect converts a Box to an image.Rectangle, clamped to image bounds.
func (b Box) ToRect(bounds image.Rectangle) image.Rectangle {
	x1 := clampInt(int(math.Floor(b.MinX)), bounds.Min.X, bounds.Max.X)
	y1 := clampInt(int(math.Floor(b.MinY)), bounds.Min.Y, bounds.Max.Y)
	x2 := clampInt(int(math.Ceil(b.MaxX)), bounds.Min.X, bounds.Max.X)
	y2 := clampInt(int(math.Ceil(b.MaxY)), bounds.Min.Y, bounds.Max.Y)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return image.Rect(x1, y1, x2, y2)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

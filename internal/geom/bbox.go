package geom

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point is a 2D point in page pixel space (origin top-left).
type Point struct {
	X, Y float64
}

// BBox is an axis-aligned rectangle [x1,y1,x2,y2] with x1<=x2 and y1<=y2.
// The zero value is the empty box at the origin.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// NewBBox builds a box from two corners, swapping coordinates as needed.
func NewBBox(x1, y1, x2, y2 float64) BBox {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// FromSlice builds a box from a 4-element slice; anything else is an error.
func FromSlice(v []float64) (BBox, error) {
	if len(v) != 4 {
		return BBox{}, fmt.Errorf("bbox: want 4 coordinates, got %d", len(v))
	}
	return NewBBox(v[0], v[1], v[2], v[3]), nil
}

func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Center returns the center point.
func (b BBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Contains reports whether p lies inside b, edges included.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.X1 && p.X <= b.X2 && p.Y >= b.Y1 && p.Y <= b.Y2
}

// Union returns the smallest box covering both.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X1: math.Min(b.X1, o.X1),
		Y1: math.Min(b.Y1, o.Y1),
		X2: math.Max(b.X2, o.X2),
		Y2: math.Max(b.Y2, o.Y2),
	}
}

// Relative normalizes b by page size, clamped to [0,1]. Unknown page
// dimensions (<=0) yield the zero box.
func (b BBox) Relative(width, height float64) BBox {
	if width <= 0 || height <= 0 {
		return BBox{}
	}
	return BBox{
		X1: clamp01(b.X1 / width),
		Y1: clamp01(b.Y1 / height),
		X2: clamp01(b.X2 / width),
		Y2: clamp01(b.Y2 / height),
	}
}

// Slice returns [x1,y1,x2,y2].
func (b BBox) Slice() []float64 {
	return []float64{b.X1, b.Y1, b.X2, b.Y2}
}

func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

func (b *BBox) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	bb, err := FromSlice(v)
	if err != nil {
		return err
	}
	*b = bb
	return nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

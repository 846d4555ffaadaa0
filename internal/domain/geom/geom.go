// Package geom holds the 2D primitives shared by regions, targets and courses.
package geom

import "math"

// Point is a position in scene or target-local units.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X, Y float64
	W, H float64
}

// NewRect returns the rectangle spanning the two corners in any order.
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X: math.Min(x0, x1),
		Y: math.Min(y0, y1),
		W: math.Abs(x1 - x0),
		H: math.Abs(y1 - y0),
	}
}

// MinX returns the left edge.
func (r Rect) MinX() float64 { return r.X }

// MinY returns the top edge.
func (r Rect) MinY() float64 { return r.Y }

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	return NewRect(
		math.Min(r.X, o.X), math.Min(r.Y, o.Y),
		math.Max(r.MaxX(), o.MaxX()), math.Max(r.MaxY(), o.MaxY()),
	)
}

// Overlap returns the horizontal and vertical overlap lengths of r and o.
func (r Rect) Overlap(o Rect) (float64, float64) {
	w := math.Min(r.MaxX(), o.MaxX()) - math.Max(r.X, o.X)
	h := math.Min(r.MaxY(), o.MaxY()) - math.Max(r.Y, o.Y)
	return math.Max(0, w), math.Max(0, h)
}

// Clamp restricts v to [lo, hi]. When hi < lo, lo wins.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

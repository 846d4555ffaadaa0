// Package course describes shooting courses: a background plus the zones in
// which targets may be placed, expressed on a 640x480 virtual canvas.
package course

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/shootsim/internal/domain/geom"
)

// Virtual canvas the catalog coordinates are authored against.
const (
	VirtualWidth  = 640.0
	VirtualHeight = 480.0
	originOffset  = 10.0
)

// ErrInvalidCourse is returned for courses that cannot be used for layout.
var ErrInvalidCourse = errors.New("invalid course")

// Distance is the perceived distance of a clip area.
type Distance int

const (
	Near Distance = iota
	Medium
	Far
)

func (d Distance) String() string {
	switch d {
	case Near:
		return "near"
	case Medium:
		return "medium"
	case Far:
		return "far"
	default:
		return fmt.Sprintf("distance(%d)", int(d))
	}
}

// ParseDistance accepts near, medium and far in any case.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "near":
		return Near, nil
	case "medium":
		return Medium, nil
	case "far":
		return Far, nil
	}
	return 0, fmt.Errorf("%w: unknown distance %q", ErrInvalidCourse, s)
}

// ScaleRange returns the inclusive scale bounds for d.
func (d Distance) ScaleRange() (float64, float64) {
	switch d {
	case Near:
		return 0.80, 1.00
	case Medium:
		return 0.50, 0.70
	default:
		return 0.20, 0.40
	}
}

// Cover is an occluding object inside a clip area.
type Cover struct {
	geom.Rect
}

// ClipArea is a placement zone on the virtual canvas.
type ClipArea struct {
	Name     string
	Rect     geom.Rect
	Distance Distance
	Cover    *Cover
}

// Course is a named background and its placement zones.
type Course struct {
	Name       string
	Background string
	Areas      []ClipArea
}

// Validate checks the course has usable areas.
func (c Course) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCourse)
	}
	if len(c.Areas) == 0 {
		return fmt.Errorf("%w: %s has no clip areas", ErrInvalidCourse, c.Name)
	}
	for _, a := range c.Areas {
		if a.Rect.W <= 0 || a.Rect.H <= 0 {
			return fmt.Errorf("%w: %s area %q has empty bounds", ErrInvalidCourse, c.Name, a.Name)
		}
	}
	return nil
}

// Scaler converts virtual canvas coordinates into arena coordinates.
type Scaler struct {
	FactorX, FactorY float64
	OffsetX, OffsetY float64
}

// NewScaler derives factors from the arena size.
func NewScaler(arenaWidth, arenaHeight float64) Scaler {
	fx := arenaWidth / VirtualWidth
	fy := arenaHeight / VirtualHeight
	return Scaler{
		FactorX: fx,
		FactorY: fy,
		OffsetX: originOffset * fx,
		OffsetY: originOffset * fy,
	}
}

// Identity leaves coordinates untouched.
func Identity() Scaler {
	return Scaler{FactorX: 1, FactorY: 1}
}

// Rect maps a virtual rectangle into the arena.
func (s Scaler) Rect(r geom.Rect) geom.Rect {
	return geom.Rect{
		X: r.X*s.FactorX + s.OffsetX,
		Y: r.Y*s.FactorY + s.OffsetY,
		W: r.W * s.FactorX,
		H: r.H * s.FactorY,
	}
}

// Area maps a clip area and its cover into the arena.
func (s Scaler) Area(a ClipArea) ClipArea {
	out := ClipArea{Name: a.Name, Rect: s.Rect(a.Rect), Distance: a.Distance}
	if a.Cover != nil {
		out.Cover = &Cover{Rect: s.Rect(a.Cover.Rect)}
	}
	return out
}

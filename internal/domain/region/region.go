// Package region models the tagged geometric shapes that make up a target.
//
// Regions carry data only. Containment is decided by the hit package because
// clipping is applied on top of the shape by the owning target.
package region

import (
	"errors"
	"fmt"

	"github.com/okian/shootsim/internal/domain/geom"
)

// ErrTagNotFound is returned by Tag for keys that are not set.
var ErrTagNotFound = errors.New("tag not found")

// Kind enumerates region shape kinds.
type Kind int

const (
	KindRectangle Kind = iota
	KindEllipse
	KindPolygon
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindRectangle:
		return "rectangle"
	case KindEllipse:
		return "ellipse"
	case KindPolygon:
		return "polygon"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a persisted kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "rectangle":
		return KindRectangle, nil
	case "ellipse":
		return KindEllipse, nil
	case "polygon":
		return KindPolygon, nil
	case "image":
		return KindImage, nil
	}
	return 0, fmt.Errorf("unknown region kind %q", s)
}

// Shape is implemented by every region geometry.
type Shape interface {
	Kind() Kind
	Bounds() geom.Rect
}

// Region is a tagged shape in target-local coordinates.
type Region struct {
	shape Shape
	fill  string
	tags  map[string]string
	clip  *geom.Rect
}

// New creates a region with the given shape and fill and no tags.
func New(shape Shape, fill string) *Region {
	return &Region{shape: shape, fill: fill, tags: map[string]string{}}
}

// Shape returns the region geometry.
func (r *Region) Shape() Shape { return r.shape }

// Kind is shorthand for Shape().Kind().
func (r *Region) Kind() Kind { return r.shape.Kind() }

// Fill returns the fill color, a color name or #rrggbb.
func (r *Region) Fill() string { return r.fill }

// SetFill replaces the fill color.
func (r *Region) SetFill(fill string) { r.fill = fill }

// TagExists reports whether key is present in the current tag map.
func (r *Region) TagExists(key string) bool {
	_, ok := r.tags[key]
	return ok
}

// Tag returns the value stored for key.
func (r *Region) Tag(key string) (string, error) {
	v, ok := r.tags[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTagNotFound, key)
	}
	return v, nil
}

// Tags returns a copy of the tag map.
func (r *Region) Tags() map[string]string {
	out := make(map[string]string, len(r.tags))
	for k, v := range r.tags {
		out[k] = v
	}
	return out
}

// SetTags replaces the whole tag map with a copy of tags.
func (r *Region) SetTags(tags map[string]string) {
	next := make(map[string]string, len(tags))
	for k, v := range tags {
		next[k] = v
	}
	r.tags = next
}

// Clip returns the active clip rectangle, if any.
func (r *Region) Clip() (geom.Rect, bool) {
	if r.clip == nil {
		return geom.Rect{}, false
	}
	return *r.clip, true
}

// SetClip restricts the region to c. A nil clip removes the restriction.
func (r *Region) SetClip(c *geom.Rect) {
	if c == nil {
		r.clip = nil
		return
	}
	cp := *c
	r.clip = &cp
}

// Clone returns a deep copy of the region.
func (r *Region) Clone() *Region {
	c := &Region{shape: cloneShape(r.shape), fill: r.fill}
	c.SetTags(r.tags)
	c.SetClip(r.clip)
	return c
}

func cloneShape(s Shape) Shape {
	if p, ok := s.(Polygon); ok {
		pts := make([]geom.Point, len(p.Points))
		copy(pts, p.Points)
		return Polygon{Points: pts}
	}
	return s
}

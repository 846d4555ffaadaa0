// Package target models a shootable target: an ordered stack of regions
// placed into the scene at an offset and uniform scale.
package target

import (
	"sync/atomic"

	"github.com/okian/shootsim/internal/domain/geom"
	"github.com/okian/shootsim/internal/domain/region"
)

// ID identifies a target for the lifetime of the process.
type ID int64

var lastID atomic.Int64

// NextID hands out a fresh target ID.
func NextID() ID {
	return ID(lastID.Add(1))
}

// Target is an ordered list of regions. The last region is drawn on top and
// wins hit resolution.
type Target struct {
	id       ID
	ref      string
	regions  []*region.Region
	tags     map[string]string
	position geom.Point
	scale    float64
	clip     *geom.Rect
	visible  bool
}

// New creates an empty visible target at the origin with scale 1.
func New(ref string) *Target {
	return &Target{
		id:      NextID(),
		ref:     ref,
		tags:    map[string]string{},
		scale:   1,
		visible: true,
	}
}

// ID returns the stable target identifier.
func (t *Target) ID() ID { return t.id }

// Ref returns the definition reference the target was loaded from.
func (t *Target) Ref() string { return t.ref }

// AddRegion appends r on top of the stack.
func (t *Target) AddRegion(r *region.Region) {
	t.regions = append(t.regions, r)
}

// Regions returns the regions bottom to top. The slice must not be modified.
func (t *Target) Regions() []*region.Region { return t.regions }

// Tags returns a copy of the target level tags.
func (t *Target) Tags() map[string]string {
	out := make(map[string]string, len(t.tags))
	for k, v := range t.tags {
		out[k] = v
	}
	return out
}

// SetTags replaces the target level tags with a copy of tags.
func (t *Target) SetTags(tags map[string]string) {
	next := make(map[string]string, len(tags))
	for k, v := range tags {
		next[k] = v
	}
	t.tags = next
}

// Position returns the scene offset of the target's local origin.
func (t *Target) Position() geom.Point { return t.position }

// SetPosition moves the target.
func (t *Target) SetPosition(x, y float64) {
	t.position = geom.Point{X: x, Y: y}
}

// Scale returns the uniform scale factor.
func (t *Target) Scale() float64 { return t.scale }

// SetScale changes the uniform scale. Non-positive values are ignored.
func (t *Target) SetScale(s float64) {
	if s > 0 {
		t.scale = s
	}
}

// Visible reports whether the target takes part in drawing and hit tests.
func (t *Target) Visible() bool { return t.visible }

// SetVisible shows or hides the target.
func (t *Target) SetVisible(v bool) { t.visible = v }

// Clip returns the group clip in target-local coordinates.
func (t *Target) Clip() (geom.Rect, bool) {
	if t.clip == nil {
		return geom.Rect{}, false
	}
	return *t.clip, true
}

// SetClip sets the group clip. nil removes it.
func (t *Target) SetClip(c *geom.Rect) {
	if c == nil {
		t.clip = nil
		return
	}
	cp := *c
	t.clip = &cp
}

// Bounds is the union of region bounds in target-local coordinates.
func (t *Target) Bounds() geom.Rect {
	var (
		out   geom.Rect
		first = true
	)
	for _, r := range t.regions {
		b := r.Shape().Bounds()
		if first {
			out, first = b, false
			continue
		}
		out = out.Union(b)
	}
	return out
}

// Dimension returns the scaled width and height of the region bounds.
func (t *Target) Dimension() (float64, float64) {
	b := t.Bounds()
	return b.W * t.scale, b.H * t.scale
}

// SceneBounds maps Bounds into scene coordinates.
func (t *Target) SceneBounds() geom.Rect {
	b := t.Bounds()
	return geom.Rect{
		X: t.position.X + b.X*t.scale,
		Y: t.position.Y + b.Y*t.scale,
		W: b.W * t.scale,
		H: b.H * t.scale,
	}
}

// ToLocal converts a scene point into target-local coordinates.
func (t *Target) ToLocal(p geom.Point) geom.Point {
	return geom.Point{
		X: (p.X - t.position.X) / t.scale,
		Y: (p.Y - t.position.Y) / t.scale,
	}
}

// ToScene converts a target-local point into scene coordinates.
func (t *Target) ToScene(p geom.Point) geom.Point {
	return geom.Point{
		X: t.position.X + p.X*t.scale,
		Y: t.position.Y + p.Y*t.scale,
	}
}

// SetFill paints every region with fill.
func (t *Target) SetFill(fill string) {
	for _, r := range t.regions {
		r.SetFill(fill)
	}
}

// Clone returns a deep copy sharing the target's ID.
func (t *Target) Clone() *Target {
	c := &Target{
		id:       t.id,
		ref:      t.ref,
		position: t.position,
		scale:    t.scale,
		visible:  t.visible,
	}
	c.SetTags(t.tags)
	c.SetClip(t.clip)
	c.regions = make([]*region.Region, len(t.regions))
	for i, r := range t.regions {
		c.regions[i] = r.Clone()
	}
	return c
}

// NewInstance returns a deep copy with a fresh ID.
func (t *Target) NewInstance() *Target {
	c := t.Clone()
	c.id = NextID()
	return c
}

// Package hit resolves a scene point to the topmost region of a target.
package hit

import (
	"github.com/okian/shootsim/internal/domain/geom"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/internal/domain/region"
	"github.com/okian/shootsim/internal/domain/target"
)

// Hit is a shot that landed on a region of a target.
type Hit struct {
	Shot   model.Shot
	Target *target.Target
	Region *region.Region
}

// Resolve returns the topmost region of t containing the scene point p.
// Hidden targets and points outside the group clip never hit.
func Resolve(p geom.Point, t *target.Target) (*region.Region, bool) {
	if t == nil || !t.Visible() {
		return nil, false
	}
	local := t.ToLocal(p)
	if clip, ok := t.Clip(); ok && !clip.Contains(local) {
		return nil, false
	}

	regions := t.Regions()
	for i := len(regions) - 1; i >= 0; i-- {
		r := regions[i]
		if clip, ok := r.Clip(); ok && !clip.Contains(local) {
			continue
		}
		if Contains(r.Shape(), local) {
			return r, true
		}
	}
	return nil, false
}

// ResolveScene walks targets topmost first (last in the slice) and returns the
// first hit.
func ResolveScene(s model.Shot, targets []*target.Target) (*Hit, bool) {
	p := s.Point()
	for i := len(targets) - 1; i >= 0; i-- {
		if r, ok := Resolve(p, targets[i]); ok {
			return &Hit{Shot: s, Target: targets[i], Region: r}, true
		}
	}
	return nil, false
}

// Contains tests a target-local point against a shape.
func Contains(s region.Shape, p geom.Point) bool {
	switch sh := s.(type) {
	case region.Rectangle:
		return sh.Bounds().Contains(p)
	case region.Ellipse:
		return ellipseContains(sh, p)
	case region.Polygon:
		return polygonContains(sh.Points, p)
	case region.Image:
		return sh.Bounds().Contains(p)
	}
	return false
}

func ellipseContains(e region.Ellipse, p geom.Point) bool {
	if e.RadiusX <= 0 || e.RadiusY <= 0 {
		return false
	}
	dx := (p.X - e.CenterX) / e.RadiusX
	dy := (p.Y - e.CenterY) / e.RadiusY
	return dx*dx+dy*dy <= 1
}

// polygonContains uses the even-odd rule.
func polygonContains(pts []geom.Point, p geom.Point) bool {
	if len(pts) < 3 {
		return false
	}
	inside := false
	j := len(pts) - 1
	for i := range pts {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

package region

import (
	"math"

	"github.com/okian/shootsim/internal/domain/geom"
)

// Rectangle is an axis-aligned box.
type Rectangle struct {
	X, Y          float64
	Width, Height float64
}

func (Rectangle) Kind() Kind { return KindRectangle }

func (r Rectangle) Bounds() geom.Rect {
	return geom.Rect{X: r.X, Y: r.Y, W: r.Width, H: r.Height}
}

// Ellipse is an axis-aligned ellipse given by center and radii.
type Ellipse struct {
	CenterX, CenterY float64
	RadiusX, RadiusY float64
}

func (Ellipse) Kind() Kind { return KindEllipse }

func (e Ellipse) Bounds() geom.Rect {
	return geom.Rect{
		X: e.CenterX - e.RadiusX,
		Y: e.CenterY - e.RadiusY,
		W: 2 * e.RadiusX,
		H: 2 * e.RadiusY,
	}
}

// Polygon is a closed shape over an ordered vertex list.
type Polygon struct {
	Points []geom.Point
}

func (Polygon) Kind() Kind { return KindPolygon }

func (p Polygon) Bounds() geom.Rect {
	if len(p.Points) == 0 {
		return geom.Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range p.Points {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return geom.NewRect(minX, minY, maxX, maxY)
}

// Image is a bitmap anchored at X,Y and displayed at Width x Height.
type Image struct {
	X, Y          float64
	Width, Height float64
	Source        string
}

func (Image) Kind() Kind { return KindImage }

func (i Image) Bounds() geom.Rect {
	return geom.Rect{X: i.X, Y: i.Y, W: i.Width, H: i.Height}
}

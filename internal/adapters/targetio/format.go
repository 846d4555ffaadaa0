// Package targetio reads and writes target definitions and keeps a catalog
// of loaded definitions for placing targets into the scene.
//
// A definition is a YAML document with a top-level tag map and an ordered
// list of regions. Documents are validated against an embedded JSON Schema
// before they are converted.
package targetio

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/okian/shootsim/internal/domain/geom"
	"github.com/okian/shootsim/internal/domain/region"
	"github.com/okian/shootsim/internal/domain/target"
)

// ImageSizer reports the pixel size of an image referenced by a region.
type ImageSizer func(src string) (width, height int, err error)

type rectDoc struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type regionDoc struct {
	Kind    string         `yaml:"kind"`
	Fill    string         `yaml:"fill,omitempty"`
	Tags    map[string]any `yaml:"tags,omitempty"`
	Clip    *rectDoc       `yaml:"clip,omitempty"`
	X       *float64       `yaml:"x,omitempty"`
	Y       *float64       `yaml:"y,omitempty"`
	Width   *float64       `yaml:"width,omitempty"`
	Height  *float64       `yaml:"height,omitempty"`
	CenterX *float64       `yaml:"center_x,omitempty"`
	CenterY *float64       `yaml:"center_y,omitempty"`
	RadiusX *float64       `yaml:"radius_x,omitempty"`
	RadiusY *float64       `yaml:"radius_y,omitempty"`
	Points  [][2]float64   `yaml:"points,omitempty"`
	Image   string         `yaml:"image,omitempty"`
}

type targetDoc struct {
	Tags    map[string]any `yaml:"tags,omitempty"`
	Regions []regionDoc    `yaml:"regions"`
}

// Unmarshal validates and converts a definition document into a target
// prototype. sizer resolves image dimensions that the document omits and
// may be nil.
func Unmarshal(data []byte, ref string, sizer ImageSizer) (*target.Target, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, ref, err)
	}
	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}

	var doc targetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, ref, err)
	}

	t := target.New(ref)
	t.SetTags(stringTags(doc.Tags))
	for i, rd := range doc.Regions {
		r, err := rd.region(sizer)
		if err != nil {
			return nil, fmt.Errorf("%w: %s region %d: %v", ErrInvalidDefinition, ref, i, err)
		}
		t.AddRegion(r)
	}
	return t, nil
}

func (rd regionDoc) region(sizer ImageSizer) (*region.Region, error) {
	kind, err := region.ParseKind(rd.Kind)
	if err != nil {
		return nil, err
	}

	var shape region.Shape
	switch kind {
	case region.KindRectangle:
		shape = region.Rectangle{X: *rd.X, Y: *rd.Y, Width: *rd.Width, Height: *rd.Height}
	case region.KindEllipse:
		shape = region.Ellipse{CenterX: *rd.CenterX, CenterY: *rd.CenterY, RadiusX: *rd.RadiusX, RadiusY: *rd.RadiusY}
	case region.KindPolygon:
		pts := make([]geom.Point, len(rd.Points))
		for i, p := range rd.Points {
			pts[i] = geom.Point{X: p[0], Y: p[1]}
		}
		shape = region.Polygon{Points: pts}
	case region.KindImage:
		img := region.Image{X: *rd.X, Y: *rd.Y, Source: rd.Image}
		if rd.Width != nil && rd.Height != nil {
			img.Width, img.Height = *rd.Width, *rd.Height
		} else {
			if sizer == nil {
				return nil, fmt.Errorf("image %q has no size", rd.Image)
			}
			w, h, err := sizer(rd.Image)
			if err != nil {
				return nil, fmt.Errorf("image %q: %w", rd.Image, err)
			}
			img.Width, img.Height = float64(w), float64(h)
		}
		shape = img
	}

	fill := rd.Fill
	if fill == "" {
		fill = "black"
	}
	r := region.New(shape, fill)
	r.SetTags(stringTags(rd.Tags))
	if rd.Clip != nil {
		r.SetClip(&geom.Rect{X: rd.Clip.X, Y: rd.Clip.Y, W: rd.Clip.Width, H: rd.Clip.Height})
	}
	return r, nil
}

// stringTags flattens scalar tag values. YAML lets authors write points: 5
// unquoted.
func stringTags(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case int:
			out[k] = strconv.Itoa(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

// Marshal writes t back into the definition format. Only the region data
// and target tags are persisted; placement is runtime state.
func Marshal(t *target.Target) ([]byte, error) {
	doc := targetDoc{Tags: anyTags(t.Tags())}
	for _, r := range t.Regions() {
		rd := regionDoc{Kind: r.Kind().String(), Fill: r.Fill(), Tags: anyTags(r.Tags())}
		if c, ok := r.Clip(); ok {
			rd.Clip = &rectDoc{X: c.X, Y: c.Y, Width: c.W, Height: c.H}
		}
		switch sh := r.Shape().(type) {
		case region.Rectangle:
			rd.X, rd.Y, rd.Width, rd.Height = ptr(sh.X), ptr(sh.Y), ptr(sh.Width), ptr(sh.Height)
		case region.Ellipse:
			rd.CenterX, rd.CenterY = ptr(sh.CenterX), ptr(sh.CenterY)
			rd.RadiusX, rd.RadiusY = ptr(sh.RadiusX), ptr(sh.RadiusY)
		case region.Polygon:
			rd.Points = make([][2]float64, len(sh.Points))
			for i, p := range sh.Points {
				rd.Points[i] = [2]float64{p.X, p.Y}
			}
		case region.Image:
			rd.X, rd.Y, rd.Width, rd.Height = ptr(sh.X), ptr(sh.Y), ptr(sh.Width), ptr(sh.Height)
			rd.Image = sh.Source
		default:
			return nil, fmt.Errorf("%w: unsupported shape %T", ErrInvalidDefinition, sh)
		}
		doc.Regions = append(doc.Regions, rd)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode target: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode target: %w", err)
	}
	return buf.Bytes(), nil
}

func anyTags(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func ptr(v float64) *float64 { return &v }

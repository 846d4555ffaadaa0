package scene

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // background formats
	_ "image/jpeg" // background formats
	_ "image/png"  // background formats
	"math"
	"strconv"
	"strings"

	"github.com/okian/shootsim/internal/domain/geom"
	"github.com/okian/shootsim/internal/domain/hit"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/pkg/logger"
)

const markerRadius = 3

var (
	backdrop = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}
	unknown  = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

var namedColors = map[string]color.RGBA{
	"black":  {A: 0xff},
	"white":  {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	"red":    {R: 0xff, A: 0xff},
	"green":  {G: 0x80, A: 0xff},
	"lime":   {G: 0xff, A: 0xff},
	"blue":   {B: 0xff, A: 0xff},
	"yellow": {R: 0xff, G: 0xff, A: 0xff},
	"orange": {R: 0xff, G: 0xa5, A: 0xff},
	"gray":   {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"grey":   {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"brown":  {R: 0xa5, G: 0x2a, B: 0x2a, A: 0xff},
	"tan":    {R: 0xd2, G: 0xb4, B: 0x8c, A: 0xff},
	"khaki":  {R: 0xf0, G: 0xe6, B: 0x8c, A: 0xff},
	"olive":  {R: 0x80, G: 0x80, A: 0xff},
	"navy":   {B: 0x80, A: 0xff},
}

// ParseColor accepts a color name or #rrggbb.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if len(s) == 7 && s[0] == '#' {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return color.RGBA{}, false
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
	}
	return color.RGBA{}, false
}

func shotColor(c model.ShotColor) color.RGBA {
	switch c {
	case model.ColorGreen:
		return color.RGBA{G: 0xff, A: 0xff}
	case model.ColorInfrared:
		return color.RGBA{R: 0xff, B: 0xff, A: 0xff}
	default:
		return color.RGBA{R: 0xff, A: 0xff}
	}
}

// render draws background, visible targets bottom first, then shot markers.
// Runs on the presenter goroutine.
func (s *Scene) render(ctx context.Context, st *state) *image.RGBA {
	w, h := int(math.Ceil(s.width)), int(math.Ceil(s.height))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: backdrop}, image.Point{}, draw.Src)
	s.drawBackground(ctx, img, st.background)

	for _, t := range st.targets {
		if !t.Visible() {
			continue
		}
		b := t.SceneBounds()
		x0, y0 := max(0, int(math.Floor(b.X))), max(0, int(math.Floor(b.Y)))
		x1, y1 := min(w-1, int(math.Ceil(b.MaxX()))), min(h-1, int(math.Ceil(b.MaxY())))
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				p := geom.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
				r, ok := hit.Resolve(p, t)
				if !ok {
					continue
				}
				c, ok := ParseColor(r.Fill())
				if !ok {
					c = unknown
				}
				img.SetRGBA(x, y, c)
			}
		}
	}

	for _, shot := range st.shots {
		c := shotColor(shot.Color)
		cx, cy := int(math.Round(shot.X)), int(math.Round(shot.Y))
		for dy := -markerRadius; dy <= markerRadius; dy++ {
			for dx := -markerRadius; dx <= markerRadius; dx++ {
				if dx*dx+dy*dy > markerRadius*markerRadius {
					continue
				}
				if image.Pt(cx+dx, cy+dy).In(img.Rect) {
					img.SetRGBA(cx+dx, cy+dy, c)
				}
			}
		}
	}
	return img
}

// drawBackground scales the background image to the scene, nearest
// neighbour. Missing or undecodable backgrounds leave the backdrop.
func (s *Scene) drawBackground(ctx context.Context, img *image.RGBA, ref string) {
	if s.backgrounds == nil || ref == "" {
		return
	}
	f, err := s.backgrounds.Open(strings.TrimPrefix(ref, "/"))
	if err != nil {
		s.log.Debug(ctx, "background not found", logger.String("background", ref))
		return
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		s.log.Warn(ctx, "background not decodable", logger.String("background", ref), logger.Error(err))
		return
	}
	sb := src.Bounds()
	db := img.Bounds()
	if sb.Empty() {
		return
	}
	for y := db.Min.Y; y < db.Max.Y; y++ {
		sy := sb.Min.Y + (y-db.Min.Y)*sb.Dy()/db.Dy()
		for x := db.Min.X; x < db.Max.X; x++ {
			sx := sb.Min.X + (x-db.Min.X)*sb.Dx()/db.Dx()
			img.Set(x, y, src.At(sx, sy))
		}
	}
}

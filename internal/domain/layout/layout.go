// Package layout places randomly chosen targets into the clip areas of a
// course, sized by perceived distance and partially hidden behind cover.
package layout

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/okian/shootsim/internal/domain/course"
	"github.com/okian/shootsim/internal/domain/geom"
	"github.com/okian/shootsim/internal/domain/target"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

// MinVisible is the least amount of a target, in arena units, that stays
// inside its clip area on each axis.
const MinVisible = 25.0

// DontShootFill is painted on every region of a don't-shoot target.
const DontShootFill = "red"

// Factory instantiates target definitions. It returns false when the
// definition cannot be loaded.
type Factory interface {
	Instantiate(ctx context.Context, ref string, x, y float64) (*target.Target, bool)
}

// Placement is one target positioned for a round.
type Placement struct {
	Target    *target.Target
	Area      course.ClipArea
	Scale     float64
	DontShoot bool
}

// Generator lays out rounds for course exercises.
type Generator struct {
	factory         Factory
	refs            []string
	scaler          course.Scaler
	maxTargets      int
	injectDontShoot bool
	newRand         func() *rand.Rand
	log             logger.Logger
}

// New creates a generator that instantiates targets through f.
func New(f Factory, opts ...Option) *Generator {
	g := &Generator{
		factory:    f,
		refs:       course.DefaultTargets(),
		scaler:     course.Identity(),
		maxTargets: 3,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		log: logger.Get().Named("layout"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Layout produces the placements for one round of c. Slots whose definition
// fails to load are skipped.
func (g *Generator) Layout(ctx context.Context, c course.Course) []Placement {
	if len(c.Areas) == 0 {
		return nil
	}
	rng := g.newRand()
	n := 1 + rng.IntN(g.maxTargets)

	out := make([]Placement, 0, n)
	dontShoot := 0
	for i := 0; i < n; i++ {
		ds := false
		if g.injectDontShoot && dontShoot < n-1 {
			ds = rng.IntN(2) == 0
		}

		ref := g.refs[rng.IntN(len(g.refs))]
		t, ok := g.factory.Instantiate(ctx, ref, 0, 0)
		if !ok {
			g.log.Warn(ctx, "skipping layout slot", logger.String("ref", ref))
			metrics.RecordLayoutLoadFailure()
			continue
		}

		area := g.scaler.Area(c.Areas[rng.IntN(len(c.Areas))])
		p := g.place(rng, t, area)
		if ds {
			dontShoot++
			p.DontShoot = true
			t.SetFill(DontShootFill)
			metrics.RecordLayoutPlaced("dont_shoot")
		} else {
			metrics.RecordLayoutPlaced("shoot")
		}
		metrics.RecordLayoutScale(area.Distance.String(), p.Scale)
		out = append(out, p)
	}
	return out
}

func (g *Generator) place(rng *rand.Rand, t *target.Target, area course.ClipArea) Placement {
	scale := DrawScale(rng, area.Distance)
	t.SetScale(scale)
	base := t.Bounds()
	w, h := base.W*scale, base.H*scale

	left := Horizontal(rng, area.Rect, w)
	top := Vertical(rng, area, h)
	t.SetPosition(left-base.X*scale, top-base.Y*scale)

	if area.Cover != nil {
		pos := t.Position()
		t.SetClip(&geom.Rect{
			X: (area.Rect.X - pos.X) / scale,
			Y: (area.Rect.Y - pos.Y) / scale,
			W: area.Rect.W / scale,
			H: area.Rect.H / scale,
		})
	}
	return Placement{Target: t, Area: area, Scale: scale}
}

// DrawScale picks a scale with two decimals from the range of d.
func DrawScale(rng *rand.Rand, d course.Distance) float64 {
	lo, hi := d.ScaleRange()
	loC := int(math.Round(lo * 100))
	steps := int(math.Round(hi*100)) - loC
	return float64(loC+rng.IntN(steps+1)) / 100
}

// Horizontal returns the left edge for a target of width w in area. Wide
// areas keep at least half the target inside, narrow ones MinVisible.
func Horizontal(rng *rand.Rand, area geom.Rect, w float64) float64 {
	visible := MinVisible
	if area.W > w {
		visible = math.Max(w/2, MinVisible)
	}
	return uniform(rng, area.MinX(), area.MaxX()-visible)
}

// Vertical returns the top edge for a target of height h. Behind cover the
// target center sits on the cover's top edge, raised until MinVisible
// emerges.
func Vertical(rng *rand.Rand, area course.ClipArea, h float64) float64 {
	if area.Cover == nil {
		return uniform(rng, area.Rect.MinY(), area.Rect.MaxY()-MinVisible)
	}
	top := area.Cover.Y - h/2
	if area.Cover.Y-top < MinVisible {
		top = area.Cover.Y - MinVisible
	}
	return top
}

// uniform draws from [lo, hi], returning lo when the range is empty.
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return geom.Clamp(lo+rng.Float64()*(hi-lo), lo, hi)
}

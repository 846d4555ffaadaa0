package shotgen

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/shootsim/internal/domain/model"
)

// Generate returns cfg.NumShots distinct shots plus resends of earlier ids at
// cfg.DuplicateRatio. Positions cluster around the arena center the way a
// shooter groups on a target. The same seed yields the same shots.
func Generate(cfg *Config, now time.Time) []model.Shot {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(now.UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	dups := int(float64(cfg.NumShots) * cfg.DuplicateRatio)
	out := make([]model.Shot, 0, cfg.NumShots+dups)
	cx, cy := cfg.Width/2, cfg.Height/2
	sdx, sdy := cfg.Width/8, cfg.Height/8

	for i := 0; i < cfg.NumShots; i++ {
		color := model.ColorRed
		if rng.Float64() < cfg.GreenRatio {
			color = model.ColorGreen
		}
		out = append(out, model.Shot{
			ID:    fmt.Sprintf("gen-%d-%d", seed, i),
			Color: color,
			X:     clamp(cx+rng.NormFloat64()*sdx, 0, cfg.Width),
			Y:     clamp(cy+rng.NormFloat64()*sdy, 0, cfg.Height),
			TS:    now.Add(time.Duration(i) * time.Millisecond),
		})
	}
	for i := 0; i < dups; i++ {
		pos := rng.IntN(len(out))
		out = append(out, out[pos])
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

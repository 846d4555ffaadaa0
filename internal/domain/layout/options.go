package layout

import (
	"math/rand/v2"

	"github.com/okian/shootsim/internal/domain/course"
)

// Option configures a Generator.
type Option func(*Generator)

// WithMaxTargets caps the number of targets placed per round. Values below 1
// are ignored.
func WithMaxTargets(n int) Option {
	return func(g *Generator) {
		if n >= 1 {
			g.maxTargets = n
		}
	}
}

// WithDontShoot enables don't-shoot target injection.
func WithDontShoot(enabled bool) Option {
	return func(g *Generator) {
		g.injectDontShoot = enabled
	}
}

// WithTargets sets the definition refs targets are drawn from.
func WithTargets(refs []string) Option {
	return func(g *Generator) {
		if len(refs) > 0 {
			g.refs = append([]string(nil), refs...)
		}
	}
}

// WithScaler sets the virtual to arena coordinate conversion.
func WithScaler(s course.Scaler) Option {
	return func(g *Generator) {
		g.scaler = s
	}
}

// WithRand replaces the per-round random source factory.
func WithRand(newRand func() *rand.Rand) Option {
	return func(g *Generator) {
		if newRand != nil {
			g.newRand = newRand
		}
	}
}

// SeededRand returns a factory that produces the same sequence every round.
func SeededRand(seed1, seed2 uint64) func() *rand.Rand {
	return func() *rand.Rand {
		return rand.New(rand.NewPCG(seed1, seed2))
	}
}

package exercise

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/shootsim/internal/domain/course"
	"github.com/okian/shootsim/internal/domain/hit"
	"github.com/okian/shootsim/internal/domain/layout"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/internal/domain/target"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

// LayoutState is the course layout lifecycle of an elimination engine.
type LayoutState int

const (
	StateIdle LayoutState = iota
	StateLayoutActive
	StateClosed
)

func (s LayoutState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLayoutActive:
		return "layout_active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// eliminationWithPenalty cycles through courses. A round ends when every
// shoot target took RequiredHits hits or a don't-shoot target was hit, which
// also forfeits the score.
type eliminationWithPenalty struct {
	deps Deps
	cfg  Settings
	log  logger.Logger
	gen  *layout.Generator

	state     LayoutState
	round     int
	score     int
	hits      int
	counters  map[target.ID]int
	dontShoot map[target.ID]struct{}
	placed    []target.ID
	persist   *persister
}

func newEliminationWithPenalty(deps Deps, s Settings) (*eliminationWithPenalty, error) {
	if s.RequiredHits < 1 {
		return nil, fmt.Errorf("%w: required hits must be positive", ErrInvalidSettings)
	}
	if s.MaxTargets < 1 {
		return nil, fmt.Errorf("%w: max targets must be positive", ErrInvalidSettings)
	}
	if deps.Targets == nil {
		return nil, fmt.Errorf("%w: target factory is required", ErrInvalidSettings)
	}
	if len(deps.Courses) == 0 {
		deps.Courses = course.Builtin()
	}

	opts := []layout.Option{
		layout.WithMaxTargets(s.MaxTargets),
		layout.WithDontShoot(s.InjectDontShoot),
		layout.WithTargets(s.TargetRefs),
		layout.WithScaler(course.NewScaler(deps.Arena.Width(), deps.Arena.Height())),
	}
	if s.Rand != nil {
		opts = append(opts, layout.WithRand(s.Rand))
	}

	return &eliminationWithPenalty{
		deps:      deps,
		cfg:       s,
		log:       logger.Get().Named("elimination"),
		gen:       layout.New(deps.Targets, opts...),
		counters:  map[target.ID]int{},
		dontShoot: map[target.ID]struct{}{},
		persist:   newPersister(s.SaveTimeout),
	}, nil
}

func (e *eliminationWithPenalty) Kind() Kind { return KindElimination }

func (e *eliminationWithPenalty) Init(ctx context.Context) error {
	e.deps.Arena.ShowText(ctx, "Score: 0")
	e.startRound(ctx)
	return nil
}

func (e *eliminationWithPenalty) startRound(ctx context.Context) {
	if e.state == StateClosed {
		return
	}
	e.state = StateIdle
	for _, id := range e.placed {
		e.deps.Arena.RemoveTarget(ctx, id)
	}
	e.placed = e.placed[:0]
	clear(e.counters)
	clear(e.dontShoot)
	e.hits = 0

	c := e.deps.Courses[e.round]
	e.deps.Arena.SetBackground(ctx, c.Background)
	for _, p := range e.gen.Layout(ctx, c) {
		id := p.Target.ID()
		e.deps.Arena.AddTarget(ctx, p.Target)
		e.placed = append(e.placed, id)
		if p.DontShoot {
			e.dontShoot[id] = struct{}{}
		} else {
			e.counters[id] = 0
		}
	}
	e.state = StateLayoutActive
	metrics.UpdateRoundIndex(e.round)
	e.log.Debug(ctx, "round started",
		logger.Int("round", e.round),
		logger.String("course", c.Name),
		logger.Int("targets", len(e.counters)),
		logger.Int("dont_shoot", len(e.dontShoot)),
	)
}

func (e *eliminationWithPenalty) ShotListener(ctx context.Context, shot model.Shot, h *hit.Hit) error {
	var (
		err     error
		penalty bool
	)
	if h == nil {
		metrics.RecordMiss(string(KindElimination))
	} else {
		id := h.Target.ID()
		if n, ok := e.counters[id]; ok {
			metrics.RecordHit(string(KindElimination))
			e.hits++
			n++
			if n >= e.cfg.RequiredHits {
				delete(e.counters, id)
				e.deps.Arena.RemoveTarget(ctx, id)
			} else {
				e.counters[id] = n
			}

			var pts int
			pts, _, err = points(h.Region)
			if err != nil {
				reportInvalidPoints(ctx, e.log, err)
			} else {
				e.score += pts
			}
		} else if _, ok := e.dontShoot[id]; ok {
			metrics.RecordHit(string(KindElimination))
			e.hits++
			penalty = true
			e.deps.Speaker.Say(ctx, fmt.Sprintf("Your score was %d", e.score))
			e.score = 0
		}
	}

	metrics.UpdateScore(string(KindElimination), shot.Color.String(), e.score)
	e.deps.Arena.ShowText(ctx, fmt.Sprintf("Score: %d", e.score))

	if len(e.counters) == 0 || penalty {
		reason := "cleared"
		if penalty {
			reason = "dont_shoot"
		}
		e.endRound(ctx, reason)
	}
	return err
}

func (e *eliminationWithPenalty) endRound(ctx context.Context, reason string) {
	metrics.RecordRoundEnd(reason)
	result := model.SessionResult{
		ID:         uuid.NewString(),
		Exercise:   string(KindElimination),
		RedScore:   e.score,
		Hits:       e.hits,
		FinishedAt: e.deps.Now(),
	}
	e.persist.run(ctx, func(ctx context.Context) {
		recordSession(ctx, e.log, e.deps.Sessions, result)
	})
	e.round = (e.round + 1) % len(e.deps.Courses)
	e.startRound(ctx)
}

func (e *eliminationWithPenalty) Reset(ctx context.Context) error {
	e.deps.Arena.ShowText(ctx, "Score: 0")
	e.deps.Arena.ClearShots(ctx)
	e.score = 0
	e.round = 0
	e.startRound(ctx)
	return nil
}

func (e *eliminationWithPenalty) Stats() Stats {
	return Stats{
		Exercise:  KindElimination,
		Hits:      e.hits,
		Score:     e.score,
		Round:     e.round,
		Course:    e.deps.Courses[e.round].Name,
		Remaining: len(e.counters),
		DontShoot: len(e.dontShoot),
		State:     e.state.String(),
	}
}

func (e *eliminationWithPenalty) Close() {
	e.state = StateClosed
	e.persist.wait()
}

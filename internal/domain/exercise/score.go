package exercise

import (
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"

	"github.com/okian/shootsim/internal/domain/hit"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/internal/domain/schedule"
	"github.com/okian/shootsim/internal/domain/target"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

// scoreAccumulation adds region points per shooter color and reports the
// group size. After MaxHits hits it can announce the total and reset itself.
type scoreAccumulation struct {
	deps Deps
	cfg  Settings
	log  logger.Logger

	red, green int
	hits       int
	spread     *Spread

	pending bool
	token   uint64
	timers  []schedule.Timer
	placed  []target.ID
	persist *persister
}

func newScoreAccumulation(deps Deps, s Settings) (*scoreAccumulation, error) {
	if s.MaxHits < 1 {
		return nil, fmt.Errorf("%w: max hits must be positive", ErrInvalidSettings)
	}
	if s.TargetWidthCM <= 0 || s.TrainingScale <= 0 {
		return nil, fmt.Errorf("%w: target width and training scale must be positive", ErrInvalidSettings)
	}
	return &scoreAccumulation{
		deps:   deps,
		cfg:    s,
		log:     logger.Get().Named("score"),
		spread:  NewSpread(),
		persist: newPersister(s.SaveTimeout),
	}, nil
}

func (e *scoreAccumulation) Kind() Kind { return KindScore }

func (e *scoreAccumulation) Init(ctx context.Context) error {
	for _, p := range e.cfg.Placements {
		if e.deps.Targets == nil {
			break
		}
		t, ok := e.deps.Targets.Instantiate(ctx, p.Ref, p.X, p.Y)
		if !ok {
			e.log.Warn(ctx, "target not added", logger.String("ref", p.Ref))
			continue
		}
		e.deps.Arena.AddTarget(ctx, t)
		e.placed = append(e.placed, t.ID())
	}
	e.deps.Arena.ShowText(ctx, e.feedText())
	return nil
}

func (e *scoreAccumulation) ShotListener(ctx context.Context, shot model.Shot, h *hit.Hit) error {
	if h == nil {
		metrics.RecordMiss(string(KindScore))
		return nil
	}
	metrics.RecordHit(string(KindScore))
	e.hits++

	pts, tagged, err := points(h.Region)
	if err != nil {
		reportInvalidPoints(ctx, e.log, err)
	} else if tagged {
		if shot.Color == model.ColorGreen {
			e.green += pts
			metrics.UpdateScore(string(KindScore), "green", e.green)
		} else {
			e.red += pts
			metrics.UpdateScore(string(KindScore), "red", e.red)
		}
	}
	e.deps.Arena.ShowText(ctx, e.feedText())

	bounds := h.Target.SceneBounds()
	e.spread.Add(shot.Point(), bounds.W)
	clock := Clock(bounds.Center(), shot.Point())
	if tagged && err == nil {
		e.deps.Speaker.Say(ctx, fmt.Sprintf("%d %d clock", pts, clock))
	}

	if e.cfg.AutoReset && !e.pending && e.hits >= e.cfg.MaxHits {
		e.startAutoReset(ctx)
	}
	return err
}

func (e *scoreAccumulation) feedText() string {
	switch {
	case e.red > 0 && e.green > 0:
		return fmt.Sprintf("red score: %d\ngreen score: %d", e.red, e.green)
	case e.red > 0:
		return fmt.Sprintf("red score: %d", e.red)
	case e.green > 0:
		return fmt.Sprintf("green score: %d", e.green)
	}
	return "score: 0"
}

func (e *scoreAccumulation) spreadInches() float64 {
	return e.spread.Inches(e.cfg.TargetWidthCM, e.cfg.TrainingScale)
}

// startAutoReset captures the feed and hands the snapshot and session write
// to the background, then announces the total and resets on the scheduler.
// Callbacks from an earlier round are ignored.
func (e *scoreAccumulation) startAutoReset(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	e.pending = true
	metrics.RecordAutoReset()

	red, green, hits := e.red, e.green, e.hits
	spread := e.spreadInches()
	finished := e.deps.Now()

	var img image.Image
	if e.cfg.AutoSave && e.deps.Snapshots != nil {
		img = e.captureFeed(ctx)
	}
	result := model.SessionResult{
		ID:           uuid.NewString(),
		Exercise:     string(KindScore),
		RedScore:     red,
		GreenScore:   green,
		Hits:         hits,
		SpreadInches: spread,
		FinishedAt:   finished,
	}
	name := SnapshotName(finished, red, spread)
	e.persist.run(ctx, func(ctx context.Context) {
		if img != nil {
			result.Snapshot = e.saveSnapshot(ctx, name, img)
		}
		recordSession(ctx, e.log, e.deps.Sessions, result)
	})

	token := e.token
	e.timers = append(e.timers, e.deps.Scheduler.AfterFunc(e.cfg.AnnounceDelay, func() {
		if token != e.token {
			return
		}
		e.deps.Speaker.Say(ctx, fmt.Sprintf("Total score %d, spread %.2f inches, reset in three seconds.", red, spread))
		e.timers = append(e.timers, e.deps.Scheduler.AfterFunc(e.cfg.ResetDelay, func() {
			if token != e.token {
				return
			}
			if err := e.Reset(ctx); err != nil {
				e.log.Error(ctx, "auto reset failed", logger.Error(err))
			}
		}))
	}))
}

// captureFeed renders the feed with every target hidden. A failed capture
// is logged and yields nil.
func (e *scoreAccumulation) captureFeed(ctx context.Context) image.Image {
	arena := e.deps.Arena
	var hidden []target.ID
	for _, t := range arena.Targets(ctx) {
		if t.Visible() {
			arena.SetVisible(ctx, t.ID(), false)
			hidden = append(hidden, t.ID())
		}
	}
	img, err := arena.Capture(ctx)
	for _, id := range hidden {
		arena.SetVisible(ctx, id, true)
	}
	if err != nil {
		metrics.RecordSnapshotError()
		e.log.Error(ctx, "capture feed", logger.Error(err))
		return nil
	}
	return img
}

// saveSnapshot stores a captured feed. Failures are logged and yield an
// empty reference.
func (e *scoreAccumulation) saveSnapshot(ctx context.Context, name string, img image.Image) string {
	ref, err := e.deps.Snapshots.Save(ctx, name, img)
	if err != nil {
		metrics.RecordSnapshotError()
		e.log.Error(ctx, "save feed snapshot", logger.String("name", name), logger.Error(err))
		return ""
	}
	metrics.RecordSnapshotSaved()
	e.log.Info(ctx, "feed snapshot saved", logger.String("ref", ref))
	return ref
}

func (e *scoreAccumulation) Reset(ctx context.Context) error {
	e.cancelTimers()
	e.red, e.green, e.hits = 0, 0, 0
	e.spread.Reset()
	e.deps.Arena.ClearShots(ctx)
	e.deps.Arena.ShowText(ctx, e.feedText())
	metrics.UpdateScore(string(KindScore), "red", 0)
	metrics.UpdateScore(string(KindScore), "green", 0)
	return nil
}

func (e *scoreAccumulation) cancelTimers() {
	e.token++
	e.pending = false
	for _, t := range e.timers {
		t.Stop()
	}
	e.timers = nil
}

func (e *scoreAccumulation) Stats() Stats {
	return Stats{
		Exercise:     KindScore,
		Hits:         e.hits,
		RedScore:     e.red,
		GreenScore:   e.green,
		SpreadInches: e.spreadInches(),
		ResetPending: e.pending,
	}
}

// Close cancels pending callbacks, takes the placed targets off the arena and
// waits for background writes.
func (e *scoreAccumulation) Close() {
	e.cancelTimers()
	ctx := context.Background()
	for _, id := range e.placed {
		e.deps.Arena.RemoveTarget(ctx, id)
	}
	e.placed = nil
	e.persist.wait()
}

func recordSession(ctx context.Context, log logger.Logger, rec SessionRecorder, r model.SessionResult) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, r); err != nil {
		metrics.RecordSessionError()
		log.Error(ctx, "record session", logger.String("exercise", r.Exercise), logger.Error(err))
	}
}

package exercise

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/shootsim/internal/domain/hit"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/internal/domain/schedule"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

// Driver runs one engine. Shots, resets and scheduled callbacks all execute
// under the same lock, so engines need no locking of their own.
type Driver struct {
	mu     sync.Mutex
	engine Engine
	arena  Arena
	log    logger.Logger
	closed bool
}

// lockedScheduler runs callbacks under the driver lock and drops them once
// the driver is closed.
type lockedScheduler struct {
	d     *Driver
	inner schedule.Scheduler
}

func (s lockedScheduler) AfterFunc(dur time.Duration, fn func()) schedule.Timer {
	return s.inner.AfterFunc(dur, func() {
		s.d.mu.Lock()
		defer s.d.mu.Unlock()
		if s.d.closed {
			return
		}
		fn()
	})
}

// NewDriver builds the engine for kind and wraps it.
func NewDriver(kind Kind, deps Deps, s Settings) (*Driver, error) {
	d := &Driver{
		arena: deps.Arena,
		log:   logger.Get().Named("driver"),
	}
	inner := deps.Scheduler
	if inner == nil {
		inner = schedule.NewReal()
	}
	deps.Scheduler = lockedScheduler{d: d, inner: inner}

	engine, err := New(kind, deps, s)
	if err != nil {
		return nil, err
	}
	d.engine = engine
	return d, nil
}

// Start initializes the engine.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.log.Info(ctx, "starting exercise", logger.String("exercise", string(d.engine.Kind())))
	return d.engine.Init(ctx)
}

// HandleShot resolves shot against the arena and feeds it to the engine.
// Invalid points tags are logged and do not fail the call.
func (d *Driver) HandleShot(ctx context.Context, shot model.Shot) error {
	start := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	d.arena.DrawShot(ctx, shot)
	var h *hit.Hit
	if resolved, ok := hit.ResolveScene(shot, d.arena.Targets(ctx)); ok {
		h = resolved
	}

	err := d.engine.ShotListener(ctx, shot, h)
	metrics.RecordShotLatency(float64(time.Since(start).Microseconds()) / 1000)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidPoints):
		d.log.Warn(ctx, "shot scored without points",
			logger.String("shot_id", shot.ID),
			logger.Error(err),
		)
		return nil
	default:
		d.log.Error(ctx, "shot handling failed", logger.String("shot_id", shot.ID), logger.Error(err))
		return err
	}
}

// Reset resets the engine and cancels any pending scheduled reset.
func (d *Driver) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.engine.Reset(ctx)
}

// Stats returns the engine stats.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Stats()
}

// Kind returns the running exercise kind.
func (d *Driver) Kind() Kind {
	return d.engine.Kind()
}

// Close stops the engine. Later calls fail with ErrClosed.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.engine.Close()
}

// Package worker drains the shot queue into the running exercise.
//
// Exactly one worker consumes the queue so shots reach the exercise in
// arrival order.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/shootsim/internal/domain/exercise"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

// Handler consumes one shot at a time.
type Handler interface {
	HandleShot(ctx context.Context, shot model.Shot) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, shot model.Shot) error

// HandleShot calls f.
func (f HandlerFunc) HandleShot(ctx context.Context, shot model.Shot) error {
	return f(ctx, shot)
}

// Queue defines how workers receive shots.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Shot
}

// Worker processes shots from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the current shot to finish.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over an in-process queue.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. It returns when ctx is canceled, Shutdown is
// called, the queue closes, or the handler reports it is closed.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	shots := w.queue.Dequeue(runCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case shot, ok := <-shots:
			if !ok {
				return
			}
			if err := w.process(ctx, shot); err != nil {
				if errors.Is(err, exercise.ErrClosed) {
					w.logger.Info(ctx, "exercise closed, worker stopping")
					return
				}
				w.logger.Error(ctx, "error processing shot", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, shot model.Shot) error {
	if err := w.handler.HandleShot(ctx, shot); err != nil {
		metrics.RecordShotRejected("handler_error")
		return fmt.Errorf("shot %s: %w", shot.ID, err)
	}
	return nil
}

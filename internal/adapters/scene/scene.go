// Package scene is the headless arena the exercises draw into.
//
// All state belongs to one presenter goroutine. Mutations are posted to its
// queue and return immediately; reads that need a result wait for their
// task, so they observe every mutation posted before them.
package scene

import (
	"context"
	"errors"
	"image"
	"io/fs"
	"sync"
	"time"

	"github.com/okian/shootsim/internal/adapters/mq/queue"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/internal/domain/target"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

const (
	defaultWidth    = 640
	defaultHeight   = 480
	defaultBacklog  = 1024
	defaultMaxShots = 256
)

// Sentinel errors.
var (
	ErrClosed = errors.New("scene closed")
	ErrBusy   = errors.New("scene queue full")
)

// Message kinds broadcast to subscribers.
const (
	MessageFeed       = "feed"
	MessageSpeech     = "speech"
	MessageBackground = "background"
)

// Message is one change pushed to subscribers.
type Message struct {
	Type string    `json:"type"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// View is a read-only summary of the scene.
type View struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Background string  `json:"background"`
	Text       string  `json:"text"`
	Targets    int     `json:"targets"`
	Visible    int     `json:"visible_targets"`
	Shots      int     `json:"shots"`
}

// state is owned by the presenter goroutine.
type state struct {
	targets    []*target.Target
	background string
	text       string
	shots      []model.Shot
}

type task func(st *state)

// Scene implements exercise.Arena.
type Scene struct {
	width       float64
	height      float64
	maxShots    int
	backlog     int
	backgrounds fs.FS
	now         func() time.Time
	log         logger.Logger

	tasks *queue.InMemoryQueue[task]
	st    state

	subMu   sync.Mutex
	subs    map[int]chan Message
	nextSub int

	cancel context.CancelFunc
	done   chan struct{}
}

// New starts a scene and its presenter goroutine.
func New(opts ...Option) *Scene {
	s := &Scene{
		width:    defaultWidth,
		height:   defaultHeight,
		maxShots: defaultMaxShots,
		backlog:  defaultBacklog,
		now:      time.Now,
		log:      logger.Get().Named("scene"),
		subs:     make(map[int]chan Message),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tasks = queue.NewInMemoryQueue[task](
		queue.WithCapacity(s.backlog),
		queue.WithName("scene"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.present(ctx)
	return s
}

func (s *Scene) present(ctx context.Context) {
	defer close(s.done)
	for t := range s.tasks.Dequeue(ctx) {
		t(&s.st)
		metrics.RecordSceneTask()
	}
}

// Close stops the presenter after the queued tasks ran and ends every
// subscription.
func (s *Scene) Close() error {
	_ = s.tasks.Close()
	<-s.done
	s.cancel()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	return nil
}

// post queues a mutation.
func (s *Scene) post(ctx context.Context, name string, t task) {
	if s.tasks.Enqueue(context.WithoutCancel(ctx), t) {
		return
	}
	metrics.RecordSceneTaskDropped()
	s.log.Warn(ctx, "scene task dropped", logger.String("task", name), logger.Bool("closed", s.tasks.IsClosed()))
}

// do runs t on the presenter and waits for it.
func (s *Scene) do(ctx context.Context, t task) error {
	finished := make(chan struct{})
	wrapped := func(st *state) {
		defer close(finished)
		t(st)
	}
	if !s.tasks.Enqueue(context.WithoutCancel(ctx), wrapped) {
		if s.tasks.IsClosed() {
			return ErrClosed
		}
		metrics.RecordSceneTaskDropped()
		return ErrBusy
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Width returns the scene width.
func (s *Scene) Width() float64 { return s.width }

// Height returns the scene height.
func (s *Scene) Height() float64 { return s.height }

// AddTarget puts a copy of t on top of the scene.
func (s *Scene) AddTarget(ctx context.Context, t *target.Target) {
	if t == nil {
		return
	}
	owned := t.Clone()
	s.post(ctx, "add_target", func(st *state) {
		st.targets = append(st.targets, owned)
		metrics.UpdateSceneTargets(len(st.targets))
	})
}

// RemoveTarget removes the target with id. Unknown ids are ignored.
func (s *Scene) RemoveTarget(ctx context.Context, id target.ID) {
	s.post(ctx, "remove_target", func(st *state) {
		kept := st.targets[:0]
		for _, t := range st.targets {
			if t.ID() != id {
				kept = append(kept, t)
			}
		}
		clear(st.targets[len(kept):])
		st.targets = kept
		metrics.UpdateSceneTargets(len(st.targets))
	})
}

// SetVisible shows or hides the target with id.
func (s *Scene) SetVisible(ctx context.Context, id target.ID, visible bool) {
	s.post(ctx, "set_visible", func(st *state) {
		for _, t := range st.targets {
			if t.ID() == id {
				t.SetVisible(visible)
			}
		}
	})
}

// Targets returns copies of the scene targets, bottom first. The copies keep
// their ids.
func (s *Scene) Targets(ctx context.Context) []*target.Target {
	var out []*target.Target
	err := s.do(ctx, func(st *state) {
		out = make([]*target.Target, len(st.targets))
		for i, t := range st.targets {
			out[i] = t.Clone()
		}
	})
	if err != nil {
		s.log.Warn(ctx, "targets unavailable", logger.Error(err))
		return nil
	}
	return out
}

// SetBackground replaces the background image reference.
func (s *Scene) SetBackground(ctx context.Context, path string) {
	s.post(ctx, "set_background", func(st *state) {
		st.background = path
	})
	s.Publish(MessageBackground, path)
}

// ShowText replaces the feed text and broadcasts it.
func (s *Scene) ShowText(ctx context.Context, text string) {
	s.post(ctx, "show_text", func(st *state) {
		st.text = text
	})
	s.Publish(MessageFeed, text)
}

// DrawShot adds a shot marker. The oldest markers are dropped past the
// configured limit.
func (s *Scene) DrawShot(ctx context.Context, shot model.Shot) {
	s.post(ctx, "draw_shot", func(st *state) {
		st.shots = append(st.shots, shot)
		if over := len(st.shots) - s.maxShots; over > 0 {
			st.shots = append(st.shots[:0], st.shots[over:]...)
		}
	})
}

// ClearShots removes every shot marker.
func (s *Scene) ClearShots(ctx context.Context) {
	s.post(ctx, "clear_shots", func(st *state) {
		st.shots = st.shots[:0]
	})
}

// View summarises the scene.
func (s *Scene) View(ctx context.Context) (View, error) {
	v := View{Width: s.width, Height: s.height}
	err := s.do(ctx, func(st *state) {
		v.Background = st.background
		v.Text = st.text
		v.Targets = len(st.targets)
		v.Shots = len(st.shots)
		for _, t := range st.targets {
			if t.Visible() {
				v.Visible++
			}
		}
	})
	return v, err
}

// Capture renders the scene into an RGBA image.
func (s *Scene) Capture(ctx context.Context) (image.Image, error) {
	var img image.Image
	err := s.do(ctx, func(st *state) {
		img = s.render(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Subscribe returns a channel of scene messages. Slow subscribers miss
// messages rather than block the scene. The returned func ends the
// subscription.
func (s *Scene) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Message, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// Publish broadcasts a message to every subscriber.
func (s *Scene) Publish(kind, text string) {
	msg := Message{Type: kind, Text: text, At: s.now()}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

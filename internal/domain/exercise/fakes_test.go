package exercise_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/internal/domain/region"
	"github.com/okian/shootsim/internal/domain/target"
)

type fakeArena struct {
	mu         sync.Mutex
	targets    []*target.Target
	texts      []string
	background string
	shots      []model.Shot
	captures   [][]bool
	captureErr error
}

func (a *fakeArena) Width() float64  { return 640 }
func (a *fakeArena) Height() float64 { return 480 }

func (a *fakeArena) AddTarget(_ context.Context, t *target.Target) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.targets = append(a.targets, t)
}

func (a *fakeArena) RemoveTarget(_ context.Context, id target.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.targets[:0]
	for _, t := range a.targets {
		if t.ID() != id {
			kept = append(kept, t)
		}
	}
	a.targets = kept
}

func (a *fakeArena) SetVisible(_ context.Context, id target.ID, visible bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.targets {
		if t.ID() == id {
			t.SetVisible(visible)
		}
	}
}

func (a *fakeArena) Targets(context.Context) []*target.Target {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*target.Target(nil), a.targets...)
}

func (a *fakeArena) SetBackground(_ context.Context, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.background = path
}

func (a *fakeArena) ShowText(_ context.Context, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.texts = append(a.texts, text)
}

func (a *fakeArena) DrawShot(_ context.Context, s model.Shot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shots = append(a.shots, s)
}

func (a *fakeArena) ClearShots(context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shots = nil
}

func (a *fakeArena) Capture(context.Context) (image.Image, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	vis := make([]bool, len(a.targets))
	for i, t := range a.targets {
		vis[i] = t.Visible()
	}
	a.captures = append(a.captures, vis)
	if a.captureErr != nil {
		return nil, a.captureErr
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (a *fakeArena) lastText() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.texts) == 0 {
		return ""
	}
	return a.texts[len(a.texts)-1]
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (s *fakeSpeaker) Say(_ context.Context, u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, u)
}

func (s *fakeSpeaker) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

// fakeFactory builds a 100x100 body worth 5 points with a 10 point head
// ellipse centered at (50,50). "bad" refs fail to load and "broken" refs
// carry a non-integer head value.
type fakeFactory struct{}

func (fakeFactory) Instantiate(_ context.Context, ref string, x, y float64) (*target.Target, bool) {
	if ref == "bad" {
		return nil, false
	}
	t := target.New(ref)
	body := region.New(region.Rectangle{Width: 100, Height: 100}, "black")
	body.SetTags(map[string]string{"points": "5"})
	head := region.New(region.Ellipse{CenterX: 50, CenterY: 50, RadiusX: 10, RadiusY: 10}, "white")
	if ref == "broken" {
		head.SetTags(map[string]string{"points": "ten"})
	} else {
		head.SetTags(map[string]string{"points": "10"})
	}
	t.AddRegion(body)
	t.AddRegion(head)
	t.SetPosition(x, y)
	return t, true
}

type fakeSnapshots struct {
	mu    sync.Mutex
	names []string
	err   error
	// gate blocks Save until closed.
	gate chan struct{}
}

func (s *fakeSnapshots) Save(ctx context.Context, name string, _ image.Image) (string, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.names = append(s.names, name)
	return "shootlog/" + name, nil
}

func (s *fakeSnapshots) saved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

type fakeSessions struct {
	mu      sync.Mutex
	results []model.SessionResult
	err     error
}

func (s *fakeSessions) Record(_ context.Context, r model.SessionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, r)
	return nil
}

func (s *fakeSessions) all() []model.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SessionResult(nil), s.results...)
}

func (s *fakeSessions) count() int { return len(s.all()) }

// eventually polls cond until it holds or two seconds pass.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

var errDisk = errors.New("disk full")

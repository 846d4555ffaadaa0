package scene

import (
	"io/fs"
	"time"
)

// Option configures a Scene.
type Option func(*Scene)

// WithSize sets the scene dimensions.
func WithSize(width, height float64) Option {
	return func(s *Scene) {
		if width > 0 && height > 0 {
			s.width = width
			s.height = height
		}
	}
}

// WithBacklog sets how many tasks may wait for the presenter.
func WithBacklog(n int) Option {
	return func(s *Scene) {
		if n > 0 {
			s.backlog = n
		}
	}
}

// WithMaxShots caps the number of shot markers kept.
func WithMaxShots(n int) Option {
	return func(s *Scene) {
		if n > 0 {
			s.maxShots = n
		}
	}
}

// WithBackgrounds resolves background references against fsys for Capture.
func WithBackgrounds(fsys fs.FS) Option {
	return func(s *Scene) {
		s.backgrounds = fsys
	}
}

// WithClock sets the time source for messages.
func WithClock(now func() time.Time) Option {
	return func(s *Scene) {
		if now != nil {
			s.now = now
		}
	}
}

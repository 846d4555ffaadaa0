package speech

import (
	"io"

	"github.com/gopxl/beep"
)

// Option configures a Speaker.
type Option func(*Speaker)

// WithClipsDir enables audio playback from <dir>/<word>.wav clips.
func WithClipsDir(dir string) Option {
	return func(s *Speaker) {
		s.clipsDir = dir
	}
}

// WithOutput sets where silenced utterances are echoed.
func WithOutput(w io.Writer) Option {
	return func(s *Speaker) {
		if w != nil {
			s.out = w
		}
	}
}

// WithPlayer replaces the audio device.
func WithPlayer(p Player) Option {
	return func(s *Speaker) {
		if p != nil {
			s.player = p
		}
	}
}

// WithSampleRate sets the output sample rate.
func WithSampleRate(rate int) Option {
	return func(s *Speaker) {
		if rate > 0 {
			s.rate = beep.SampleRate(rate)
		}
	}
}

// WithListener registers fn to observe every utterance as it is queued.
func WithListener(fn func(utterance string)) Option {
	return func(s *Speaker) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// WithSilenced starts the speaker in log-only mode even when audio works.
func WithSilenced(silenced bool) Option {
	return func(s *Speaker) {
		s.startMuted = silenced
	}
}

// Package speech voices exercise feedback. Utterances are either played as a
// sequence of per-word WAV clips or, when silenced, written to the log and
// an output stream.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	"github.com/okian/shootsim/internal/adapters/mq/queue"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

const (
	defaultSampleRate = beep.SampleRate(44100)
	defaultBacklog    = 32
	resampleQuality   = 4
	closeTimeout      = 5 * time.Second

	modeAudio    = "audio"
	modeSilenced = "silenced"
)

var (
	// ErrNoClips is returned by sequence when none of the words had a clip.
	ErrNoClips = errors.New("no clips for utterance")
	// ErrAudioUnavailable is returned when unsilencing a speaker that has no
	// working audio output.
	ErrAudioUnavailable = errors.New("audio unavailable")
)

// Player plays a stream to completion.
type Player interface {
	Init(rate beep.SampleRate) error
	Play(ctx context.Context, s beep.Streamer) error
}

// devicePlayer plays through the default audio device.
type devicePlayer struct{}

func (devicePlayer) Init(rate beep.SampleRate) error {
	return speaker.Init(rate, rate.N(100*time.Millisecond))
}

func (devicePlayer) Play(ctx context.Context, s beep.Streamer) error {
	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Speaker implements asynchronous spoken feedback.
type Speaker struct {
	clipsDir   string
	out        io.Writer
	player     Player
	rate       beep.SampleRate
	listeners  []func(string)
	log        logger.Logger
	silenced   atomic.Bool
	audioReady bool
	startMuted bool
	utterances *queue.InMemoryQueue[string]

	mu    sync.Mutex
	clips map[string]*beep.Buffer

	cancel context.CancelFunc
	done   chan struct{}
}

// New starts a speaker. Without a clips directory it runs silenced. If the
// audio device cannot be opened the failure is logged once and the speaker
// falls back to silenced mode.
func New(opts ...Option) *Speaker {
	s := &Speaker{
		out:    os.Stdout,
		player: devicePlayer{},
		rate:   defaultSampleRate,
		log:    logger.Get().Named("speech"),
		clips:  make(map[string]*beep.Buffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.utterances = queue.NewInMemoryQueue[string](
		queue.WithCapacity(defaultBacklog),
		queue.WithName("speech"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.clipsDir != "" {
		if err := s.player.Init(s.rate); err != nil {
			s.log.Warn(ctx, "audio unavailable, speech silenced",
				logger.String("clips", s.clipsDir),
				logger.Error(err),
			)
		} else {
			s.audioReady = true
		}
	}
	s.silenced.Store(s.startMuted || !s.audioReady)

	go s.run(ctx)
	return s
}

// Silenced reports whether utterances are only logged.
func (s *Speaker) Silenced() bool {
	return s.silenced.Load()
}

// SetSilenced switches between audio playback and log-only output for
// utterances spoken from now on. Unsilencing fails with ErrAudioUnavailable
// when no audio output was opened.
func (s *Speaker) SetSilenced(silenced bool) error {
	if !silenced && !s.audioReady {
		return ErrAudioUnavailable
	}
	s.silenced.Store(silenced)
	s.log.Info(context.Background(), "speech toggled", logger.Bool("silenced", silenced))
	return nil
}

// Say queues utterance and returns immediately. Utterances that do not fit
// the backlog are dropped.
func (s *Speaker) Say(ctx context.Context, utterance string) {
	for _, l := range s.listeners {
		l(utterance)
	}
	if !s.utterances.Enqueue(context.WithoutCancel(ctx), utterance) {
		s.log.Warn(ctx, "speech backlog full, dropping utterance", logger.String("utterance", utterance))
	}
}

// Close stops the speaker after the current utterance.
func (s *Speaker) Close() error {
	_ = s.utterances.Close()
	select {
	case <-s.done:
	case <-time.After(closeTimeout):
	}
	s.cancel()
	<-s.done
	return nil
}

func (s *Speaker) run(ctx context.Context) {
	defer close(s.done)
	for utterance := range s.utterances.Dequeue(ctx) {
		s.speak(ctx, utterance)
	}
}

func (s *Speaker) speak(ctx context.Context, utterance string) {
	if s.silenced.Load() {
		metrics.RecordUtterance(modeSilenced)
		s.log.Info(ctx, "say", logger.String("utterance", utterance))
		_, _ = fmt.Fprintln(s.out, utterance)
		return
	}

	metrics.RecordUtterance(modeAudio)
	stream, err := s.sequence(ctx, utterance)
	if err != nil {
		s.log.Debug(ctx, "utterance not played",
			logger.String("utterance", utterance),
			logger.Error(err),
		)
		return
	}
	if err := s.player.Play(ctx, stream); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error(ctx, "playback failed", logger.Error(err))
	}
}

// Words splits an utterance into clip names.
func Words(utterance string) []string {
	fields := strings.Fields(strings.ToLower(utterance))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// sequence concatenates the clips of every known word.
func (s *Speaker) sequence(ctx context.Context, utterance string) (beep.Streamer, error) {
	var streams []beep.Streamer
	for _, w := range Words(utterance) {
		buf, err := s.clip(w)
		if err != nil {
			s.log.Debug(ctx, "skipping word", logger.String("word", w), logger.Error(err))
			continue
		}
		streams = append(streams, buf.Streamer(0, buf.Len()))
	}
	if len(streams) == 0 {
		return nil, ErrNoClips
	}
	return beep.Seq(streams...), nil
}

// clip loads and caches <word>.wav resampled to the output rate.
func (s *Speaker) clip(word string) (*beep.Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if buf, ok := s.clips[word]; ok {
		return buf, nil
	}
	if strings.ContainsAny(word, `/\`) {
		return nil, fmt.Errorf("invalid clip name %q", word)
	}

	f, err := os.Open(filepath.Join(s.clipsDir, word+".wav"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stream, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s.wav: %w", word, err)
	}
	defer stream.Close()

	var src beep.Streamer = stream
	if format.SampleRate != s.rate {
		src = beep.Resample(resampleQuality, format.SampleRate, s.rate, stream)
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: s.rate, NumChannels: 2, Precision: 2})
	buf.Append(src)
	s.clips[word] = buf
	return buf, nil
}

package speech

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	. "github.com/smartystreets/goconvey/convey"
)

type fakePlayer struct {
	initErr error

	mu      sync.Mutex
	played  []int
	initted int
}

func (p *fakePlayer) Init(beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initted++
	return p.initErr
}

func (p *fakePlayer) Play(_ context.Context, s beep.Streamer) error {
	total := 0
	buf := make([][2]float64, 64)
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			break
		}
	}
	p.mu.Lock()
	p.played = append(p.played, total)
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) samples() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.played...)
}

func writeClip(t *testing.T, dir, word string, samples int) {
	f, err := os.Create(filepath.Join(dir, word+".wav"))
	if err != nil {
		t.Fatalf("create clip: %v", err)
	}
	defer f.Close()
	format := beep.Format{SampleRate: defaultSampleRate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Silence(samples), format); err != nil {
		t.Fatalf("encode clip: %v", err)
	}
}

func TestWords(t *testing.T) {
	Convey("Given spoken feedback", t, func() {
		So(Words("Total score 15, spread 1.25 inches, reset in three seconds."), ShouldResemble,
			[]string{"total", "score", "15", "spread", "1.25", "inches", "reset", "in", "three", "seconds"})
		So(Words("  10 3 clock "), ShouldResemble, []string{"10", "3", "clock"})
		So(Words(""), ShouldBeEmpty)
	})
}

func TestSilencedSpeaker(t *testing.T) {
	Convey("Given a speaker without clips", t, func() {
		var out bytes.Buffer
		var heard []string
		s := New(WithOutput(&out), WithListener(func(u string) { heard = append(heard, u) }))

		Convey("When feedback is spoken", func() {
			s.Say(context.Background(), "10 3 clock")
			s.Say(context.Background(), "Your score was 20")
			So(s.Close(), ShouldBeNil)

			Convey("Then each utterance is echoed in order", func() {
				So(s.Silenced(), ShouldBeTrue)
				So(out.String(), ShouldEqual, "10 3 clock\nYour score was 20\n")
				So(heard, ShouldResemble, []string{"10 3 clock", "Your score was 20"})
			})
		})
	})
}

func TestClipSpeaker(t *testing.T) {
	Convey("Given a clips directory", t, func() {
		dir := t.TempDir()
		writeClip(t, dir, "one", 100)
		writeClip(t, dir, "two", 200)
		player := &fakePlayer{}
		var out bytes.Buffer

		s := New(WithClipsDir(dir), WithPlayer(player), WithOutput(&out))

		Convey("When an utterance mixes known and unknown words", func() {
			s.Say(context.Background(), "One, two three!")
			s.Say(context.Background(), "two")
			s.Say(context.Background(), "nothing known")
			So(s.Close(), ShouldBeNil)

			Convey("Then known clips play in sequence and unknown words are skipped", func() {
				So(s.Silenced(), ShouldBeFalse)
				So(player.samples(), ShouldResemble, []int{300, 200})
				So(out.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a clip is requested twice", func() {
			first, err1 := s.clip("one")
			second, err2 := s.clip("one")
			_ = s.Close()

			Convey("Then it is decoded once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldPointTo, second)
				So(first.Len(), ShouldEqual, 100)
			})
		})

		Convey("When nothing in the utterance has a clip", func() {
			_, err := s.sequence(context.Background(), "nope")
			_ = s.Close()
			So(errors.Is(err, ErrNoClips), ShouldBeTrue)
		})
	})
}

func TestAudioInitFailure(t *testing.T) {
	Convey("Given an audio device that fails to open", t, func() {
		var out bytes.Buffer
		player := &fakePlayer{initErr: errors.New("no device")}
		s := New(WithClipsDir(t.TempDir()), WithPlayer(player), WithOutput(&out))

		Convey("Then the speaker degrades to silenced mode", func() {
			s.Say(context.Background(), "reset")
			So(s.Close(), ShouldBeNil)
			So(s.Silenced(), ShouldBeTrue)
			So(player.initted, ShouldEqual, 1)
			So(player.samples(), ShouldBeEmpty)
			So(out.String(), ShouldEqual, "reset\n")
		})
	})
}

// lockedBuffer is an output the speaker goroutine and the test share.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestSetSilenced(t *testing.T) {
	Convey("Given a clips speaker started silenced", t, func() {
		dir := t.TempDir()
		writeClip(t, dir, "one", 100)
		writeClip(t, dir, "two", 200)
		player := &fakePlayer{}
		out := &lockedBuffer{}
		s := New(WithClipsDir(dir), WithPlayer(player), WithOutput(out), WithSilenced(true))
		So(s.Silenced(), ShouldBeTrue)

		Convey("When it is unsilenced after one utterance", func() {
			s.Say(context.Background(), "one")
			So(waitFor(func() bool { return strings.Contains(out.String(), "one") }), ShouldBeTrue)
			So(s.SetSilenced(false), ShouldBeNil)
			s.Say(context.Background(), "two")
			So(s.Close(), ShouldBeNil)

			Convey("Then only the later utterance is played", func() {
				So(s.Silenced(), ShouldBeFalse)
				So(out.String(), ShouldEqual, "one\n")
				So(player.samples(), ShouldResemble, []int{200})
			})
		})

		Convey("When it is unsilenced and silenced again", func() {
			So(s.SetSilenced(false), ShouldBeNil)
			s.Say(context.Background(), "one")
			So(waitFor(func() bool { return len(player.samples()) == 1 }), ShouldBeTrue)
			So(s.SetSilenced(true), ShouldBeNil)
			s.Say(context.Background(), "two")
			So(s.Close(), ShouldBeNil)

			Convey("Then the later utterance is only echoed", func() {
				So(s.Silenced(), ShouldBeTrue)
				So(player.samples(), ShouldResemble, []int{100})
				So(out.String(), ShouldEqual, "two\n")
			})
		})
	})

	Convey("Given a speaker without audio", t, func() {
		s := New(WithOutput(&lockedBuffer{}))
		defer s.Close()

		Convey("Then it cannot be unsilenced", func() {
			So(errors.Is(s.SetSilenced(false), ErrAudioUnavailable), ShouldBeTrue)
			So(s.Silenced(), ShouldBeTrue)
			So(s.SetSilenced(true), ShouldBeNil)
		})
	})
}

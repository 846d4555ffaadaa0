package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/okian/shootsim/internal/adapters/speech"
	service "github.com/okian/shootsim/internal/app"
	"github.com/okian/shootsim/internal/config"
	"github.com/okian/shootsim/internal/domain/exercise"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/internal/domain/schedule"
	"github.com/okian/shootsim/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// testConfig places one IPSC target with its top-left corner at 100,100.
func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.SnapshotDir = t.TempDir()
	cfg.Placements = []config.Placement{{Ref: "targets/IPSC.target", X: 100, Y: 100}}
	return cfg
}

func newService(cfg *config.Config, sch schedule.Scheduler) *service.Service {
	return service.New(
		service.WithConfig(cfg),
		service.WithScheduler(sch),
		service.WithSpeechOutput(io.Discard),
	)
}

// alphaShot lands in the A zone of the placed IPSC target.
func alphaShot(id string) model.Shot {
	return model.Shot{ID: id, Color: model.ColorRed, X: 145, Y: 175, TS: time.Now()}
}

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

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then operations report it is not started", func() {
			_, err := svc.Submit(ctx, alphaShot("a"))
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.Reset(ctx), ShouldEqual, service.ErrNotStarted)
			So(svc.SetSpeechSilenced(true), ShouldEqual, service.ErrNotStarted)
			_, err = svc.Sessions(ctx, 10)
			So(err, ShouldEqual, service.ErrNotStarted)
			_, _, err = svc.Subscribe(1)
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.Stats(ctx).Started, ShouldBeFalse)
		})

		Convey("And Stop is a no-op", func() {
			So(func() { svc.Stop() }, ShouldNotPanic)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service with a bad exercise name", t, func() {
		cfg := testConfig(t)
		cfg.Exercise = "darts"
		svc := newService(cfg, schedule.NewManual())

		Convey("Then Start fails", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
		})
	})

	Convey("Given a started service", t, func() {
		svc := newService(testConfig(t), schedule.NewManual())
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("Then it reports the score exercise with its target placed", func() {
			st := svc.Stats(ctx)
			So(st.Started, ShouldBeTrue)
			So(st.Exercise, ShouldEqual, exercise.KindScore)
			So(st.Scene.Targets, ShouldEqual, 1)
			So(st.Scene.Text, ShouldEqual, "score: 0")
			So(st.QueueCapacity, ShouldEqual, 1024)
		})

		Convey("When speech is toggled without clips", func() {
			Convey("Then it stays silenced", func() {
				So(svc.Stats(ctx).SpeechSilenced, ShouldBeTrue)
				So(errors.Is(svc.SetSpeechSilenced(false), speech.ErrAudioUnavailable), ShouldBeTrue)
				So(svc.SetSpeechSilenced(true), ShouldBeNil)
				So(svc.Stats(ctx).SpeechSilenced, ShouldBeTrue)
			})
		})

		Convey("When started twice", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it keeps running", func() {
				So(svc.Stats(ctx).Started, ShouldBeTrue)
			})
		})

		Convey("When stopped", func() {
			svc.Stop()

			Convey("Then shots are refused", func() {
				_, err := svc.Submit(ctx, alphaShot("late"))
				So(err, ShouldEqual, service.ErrNotStarted)
				So(svc.Stats(ctx).Started, ShouldBeFalse)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started score exercise", t, func() {
		svc := newService(testConfig(t), schedule.NewManual())
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When a shot hits the A zone", func() {
			dup, err := svc.Submit(ctx, alphaShot("s1"))
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			Convey("Then the red score counts its points", func() {
				So(eventually(func() bool { return svc.Stats(ctx).Hits == 1 }), ShouldBeTrue)
				st := svc.Stats(ctx)
				So(st.RedScore, ShouldEqual, 5)
				So(st.Scene.Shots, ShouldEqual, 1)
				So(st.Scene.Text, ShouldEqual, "red score: 5")
				So(st.DedupeSize, ShouldEqual, 1)
			})

			Convey("And the same shot again is a duplicate", func() {
				dup, err := svc.Submit(ctx, alphaShot("s1"))
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				So(eventually(func() bool { return svc.Stats(ctx).Hits == 1 }), ShouldBeTrue)
			})

			Convey("And Reset clears the score", func() {
				So(eventually(func() bool { return svc.Stats(ctx).Hits == 1 }), ShouldBeTrue)
				So(svc.Reset(ctx), ShouldBeNil)
				st := svc.Stats(ctx)
				So(st.Hits, ShouldEqual, 0)
				So(st.RedScore, ShouldEqual, 0)
				So(st.Scene.Shots, ShouldEqual, 0)
			})
		})

		Convey("When shots without ids arrive", func() {
			for i := 0; i < 3; i++ {
				dup, err := svc.Submit(ctx, alphaShot(""))
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			}

			Convey("Then each gets its own id", func() {
				So(eventually(func() bool { return svc.Stats(ctx).Hits == 3 }), ShouldBeTrue)
				So(svc.Stats(ctx).DedupeSize, ShouldEqual, 3)
			})
		})

		Convey("When a shot misses", func() {
			_, err := svc.Submit(ctx, model.Shot{ID: "miss", Color: model.ColorGreen, X: 5, Y: 5, TS: time.Now()})
			So(err, ShouldBeNil)

			Convey("Then the marker is drawn but no hit is scored", func() {
				So(eventually(func() bool { return svc.Stats(ctx).Scene.Shots == 1 }), ShouldBeTrue)
				So(svc.Stats(ctx).Hits, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Subscribe(t *testing.T) {
	Convey("Given a subscriber on a started service", t, func() {
		svc := newService(testConfig(t), schedule.NewManual())
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		feed, cancel, err := svc.Subscribe(16)
		So(err, ShouldBeNil)
		defer cancel()

		Convey("When a shot scores", func() {
			_, err := svc.Submit(ctx, alphaShot("sub"))
			So(err, ShouldBeNil)

			Convey("Then the feed text and the spoken feedback are broadcast", func() {
				var texts, speech []string
				timeout := time.After(2 * time.Second)
				for len(texts) == 0 || len(speech) == 0 {
					select {
					case m := <-feed:
						switch m.Type {
						case "feed":
							texts = append(texts, m.Text)
						case "speech":
							speech = append(speech, m.Text)
						}
					case <-timeout:
						So(texts, ShouldNotBeEmpty)
						So(speech, ShouldNotBeEmpty)
						return
					}
				}
				So(texts, ShouldContain, "red score: 5")
				So(speech[0], ShouldStartWith, "5 ")
				So(speech[0], ShouldEndWith, "clock")
			})
		})
	})
}

func TestService_AutoReset(t *testing.T) {
	Convey("Given a score exercise that auto-resets after one hit", t, func() {
		cfg := testConfig(t)
		cfg.AutoReset = true
		cfg.MaxHits = 1
		sch := schedule.NewManual()
		svc := newService(cfg, sch)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When the hit lands", func() {
			_, err := svc.Submit(ctx, alphaShot("only"))
			So(err, ShouldBeNil)
			So(eventually(func() bool { return svc.Stats(ctx).ResetPending }), ShouldBeTrue)

			Convey("Then the session is recorded with its snapshot", func() {
				So(eventually(func() bool { return svc.Stats(ctx).Sessions == 1 }), ShouldBeTrue)
				sessions, err := svc.Sessions(ctx, 10)
				So(err, ShouldBeNil)
				So(len(sessions), ShouldEqual, 1)
				So(sessions[0].Rank, ShouldEqual, 1)
				So(sessions[0].RedScore, ShouldEqual, 5)
				So(sessions[0].Snapshot, ShouldNotBeEmpty)
				So(svc.Stats(ctx).Sessions, ShouldEqual, 1)
			})

			Convey("And the round resets once the delays pass", func() {
				sch.Advance(cfg.AnnounceDelay)
				sch.Advance(cfg.ResetDelay)
				st := svc.Stats(ctx)
				So(st.Hits, ShouldEqual, 0)
				So(st.ResetPending, ShouldBeFalse)
			})
		})
	})
}

package shotgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/shootsim/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func baseConfig() *Config {
	return &Config{
		Transport:      TransportHTTP,
		BaseURL:        "http://localhost:9080",
		NumShots:       200,
		DuplicateRatio: 0.1,
		GreenRatio:     0.25,
		Width:          640,
		Height:         480,
		Seed:           7,
		Workers:        4,
		Timeout:        time.Second,
		DrainTimeout:   time.Second,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := baseConfig()
		now := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
		shots := Generate(cfg, now)

		Convey("Then distinct shots and resends are produced", func() {
			So(len(shots), ShouldEqual, 220)
			ids := map[string]int{}
			for _, s := range shots {
				ids[s.ID]++
			}
			So(len(ids), ShouldEqual, 200)
		})

		Convey("And every shot lies inside the arena", func() {
			for _, s := range shots {
				So(s.X, ShouldBeBetweenOrEqual, 0.0, 640.0)
				So(s.Y, ShouldBeBetweenOrEqual, 0.0, 480.0)
			}
		})

		Convey("And both colors appear", func() {
			green := 0
			for _, s := range shots {
				if s.Color == model.ColorGreen {
					green++
				}
			}
			So(green, ShouldBeGreaterThan, 0)
			So(green, ShouldBeLessThan, len(shots))
		})

		Convey("And the same seed repeats the run", func() {
			So(Generate(cfg, now), ShouldResemble, shots)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given run configs", t, func() {
		Convey("Then a complete http config is valid", func() {
			So(baseConfig().Validate(), ShouldBeNil)
		})

		Convey("And broken configs are rejected", func() {
			mutations := []func(c *Config){
				func(c *Config) { c.NumShots = 0 },
				func(c *Config) { c.Width = 0 },
				func(c *Config) { c.GreenRatio = 2 },
				func(c *Config) { c.Transport = "carrier-pigeon" },
				func(c *Config) { c.BaseURL = "" },
				func(c *Config) { c.Transport = TransportKafka },
			}
			for _, mutate := range mutations {
				c := baseConfig()
				mutate(c)
				So(errors.Is(c.Validate(), ErrInvalidConfig), ShouldBeTrue)
			}
		})
	})
}

// fakeService answers like shootsim: every id is refused once with 429,
// then accepted; resends are duplicates.
type fakeService struct {
	mu       sync.Mutex
	refused  map[string]bool
	accepted map[string]bool
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"started": true, "hits": len(f.accepted), "queue_length": 0})
	})
	mux.HandleFunc("/shots", func(w http.ResponseWriter, r *http.Request) {
		var m model.ShotMessage
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case f.accepted[m.ID]:
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(ack{Status: "duplicate", ID: m.ID, Duplicate: true})
		case !f.refused[m.ID]:
			f.refused[m.ID] = true
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			f.accepted[m.ID] = true
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(ack{Status: "accepted", ID: m.ID})
		}
	})
	return mux
}

type fakePublisher struct {
	batches [][]model.Shot
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, shots ...model.Shot) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]model.Shot(nil), shots...))
	return nil
}

func TestRun(t *testing.T) {
	Convey("Given a service that pushes back once per shot", t, func() {
		svc := &fakeService{refused: map[string]bool{}, accepted: map[string]bool{}}
		srv := httptest.NewServer(svc.handler())
		defer srv.Close()

		cfg := baseConfig()
		cfg.BaseURL = srv.URL
		cfg.NumShots = 50
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "shots.json")

		Convey("When a run submits over HTTP", func() {
			stats, err := Run(context.Background(), cfg, nil)

			Convey("Then every distinct shot is accepted after a retry", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 55)
				So(stats.Submitted, ShouldEqual, 55)
				So(stats.Accepted, ShouldEqual, 50)
				So(stats.Duplicate, ShouldEqual, 5)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Retried, ShouldBeGreaterThanOrEqualTo, 50)
				So(stats.Hits, ShouldEqual, 50)
				So(stats.QueueDrain, ShouldBeTrue)
			})

			Convey("And the shots are saved as wire messages", func() {
				data, err := os.ReadFile(cfg.OutputFile)
				So(err, ShouldBeNil)
				var msgs []model.ShotMessage
				So(json.Unmarshal(data, &msgs), ShouldBeNil)
				So(len(msgs), ShouldEqual, 55)
			})
		})

		Convey("When a run publishes to Kafka", func() {
			cfg.Transport = TransportKafka
			cfg.KafkaBrokers = []string{"localhost:9092"}
			cfg.KafkaTopic = "shots"
			cfg.NumShots = 250
			cfg.DuplicateRatio = 0
			pub := &fakePublisher{}
			stats, err := Run(context.Background(), cfg, pub)

			Convey("Then the shots go out in batches", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 250)
				So(len(pub.batches), ShouldEqual, 3)
				So(len(pub.batches[2]), ShouldEqual, 50)
			})
		})

		Convey("When the publisher fails", func() {
			cfg.Transport = TransportKafka
			cfg.KafkaBrokers = []string{"localhost:9092"}
			cfg.KafkaTopic = "shots"
			stats, err := Run(context.Background(), cfg, &fakePublisher{err: errors.New("broker down")})

			Convey("Then the run reports it", func() {
				So(err, ShouldNotBeNil)
				So(stats.Failed, ShouldEqual, stats.Generated)
			})
		})
	})

	Convey("Given no service", t, func() {
		cfg := baseConfig()
		cfg.BaseURL = "http://127.0.0.1:1"
		_, err := Run(context.Background(), cfg, nil)
		So(err, ShouldNotBeNil)
	})
}

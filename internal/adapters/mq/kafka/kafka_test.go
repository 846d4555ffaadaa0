package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/shootsim/internal/adapters/mq/queue"
	"github.com/okian/shootsim/internal/domain/model"
	kafkago "github.com/segmentio/kafka-go"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeReader serves msgs then returns io.EOF.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return kafkago.Message{}, err
	}
	if len(r.msgs) == 0 {
		return kafkago.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakeSink struct {
	mu      sync.Mutex
	shots   []model.Shot
	seen    map[string]bool
	fullFor int
	err     error
}

func (s *fakeSink) Submit(_ context.Context, shot model.Shot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.fullFor > 0 {
		s.fullFor--
		return false, queue.ErrFull
	}
	if s.seen[shot.ID] {
		return true, nil
	}
	s.seen[shot.ID] = true
	s.shots = append(s.shots, shot)
	return false, nil
}

type fakeWriter struct {
	msgs []kafkago.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func message(offset int64, body string) kafkago.Message {
	return kafkago.Message{Topic: "shots", Partition: 0, Offset: offset, Value: []byte(body)}
}

func TestSource(t *testing.T) {
	Convey("Given a source over a topic", t, func() {
		reader := &fakeReader{}
		sink := &fakeSink{seen: map[string]bool{}}
		src := NewSourceWithReader(reader, sink)
		src.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }

		Convey("When valid, duplicate and malformed messages arrive", func() {
			reader.msgs = []kafkago.Message{
				message(0, `{"id":"a","color":"red","x":1,"y":2}`),
				message(1, `not json`),
				message(2, `{"id":"a","color":"red","x":1,"y":2}`),
				message(3, `{"color":"violet","x":1,"y":2}`),
				message(4, `{"color":"green","x":5,"y":6}`),
			}
			So(src.Run(context.Background()), ShouldBeNil)

			Convey("Then valid shots are submitted once and every offset is committed", func() {
				So(len(sink.shots), ShouldEqual, 2)
				So(sink.shots[0].ID, ShouldEqual, "a")
				So(sink.shots[1].ID, ShouldEqual, "shots-0-4")
				So(sink.shots[1].Color, ShouldEqual, model.ColorGreen)
				So(reader.committed, ShouldResemble, []int64{0, 1, 2, 3, 4})
			})
		})

		Convey("When the queue is briefly full", func() {
			sink.fullFor = 2
			reader.msgs = []kafkago.Message{message(7, `{"id":"b","color":"red","x":1,"y":2}`)}
			So(src.Run(context.Background()), ShouldBeNil)

			Convey("Then the shot is retried until accepted", func() {
				So(len(sink.shots), ShouldEqual, 1)
				So(reader.committed, ShouldResemble, []int64{7})
			})
		})

		Convey("When the queue stays full and the context ends", func() {
			sink.fullFor = 1 << 30
			reader.msgs = []kafkago.Message{message(9, `{"id":"c","color":"red","x":1,"y":2}`)}
			ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
			defer cancel()
			So(src.Run(ctx), ShouldBeNil)

			Convey("Then the message is not committed", func() {
				So(reader.committed, ShouldBeEmpty)
			})
		})

		Convey("When the sink fails", func() {
			sink.err = errors.New("closed")
			reader.msgs = []kafkago.Message{message(1, `{"id":"d","color":"red","x":1,"y":2}`)}
			So(src.Run(context.Background()), ShouldBeNil)

			Convey("Then the message is skipped", func() {
				So(sink.shots, ShouldBeEmpty)
				So(reader.committed, ShouldResemble, []int64{1})
			})
		})

		Convey("When closed", func() {
			So(src.Close(), ShouldBeNil)
			So(reader.closed, ShouldBeTrue)
		})
	})

	Convey("Given an incomplete config", t, func() {
		_, err := NewSource(Config{Topic: "shots"}, &fakeSink{})
		So(err, ShouldNotBeNil)
	})
}

func TestPublisher(t *testing.T) {
	Convey("Given a publisher", t, func() {
		w := &fakeWriter{}
		p := NewPublisherWithWriter(w)
		ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

		Convey("When shots are published", func() {
			err := p.Publish(context.Background(),
				model.Shot{ID: "a", Color: model.ColorRed, X: 1, Y: 2, TS: ts},
				model.Shot{ID: "b", Color: model.ColorGreen, X: 3, Y: 4, TS: ts},
			)

			Convey("Then each is keyed by id and decodes back", func() {
				So(err, ShouldBeNil)
				So(len(w.msgs), ShouldEqual, 2)
				So(string(w.msgs[1].Key), ShouldEqual, "b")
				var m model.ShotMessage
				So(json.Unmarshal(w.msgs[1].Value, &m), ShouldBeNil)
				shot, err := m.Shot(time.Time{})
				So(err, ShouldBeNil)
				So(shot, ShouldResemble, model.Shot{ID: "b", Color: model.ColorGreen, X: 3, Y: 4, TS: ts})
			})
		})
	})
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/okian/shootsim/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

func session(id string, red int, offset time.Duration) model.SessionResult {
	return model.SessionResult{
		ID:           id,
		Exercise:     "score",
		RedScore:     red,
		GreenScore:   red / 2,
		Hits:         5,
		SpreadInches: 1.25,
		Snapshot:     id + ".png",
		FinishedAt:   base.Add(offset),
	}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

var factories = map[string]func(t *testing.T) Store{
	"memory": func(*testing.T) Store { return NewMemoryStore() },
	"sqlite": func(t *testing.T) Store {
		sq, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return sq
	},
}

func TestStores(t *testing.T) {
	for name, open := range factories {
		Convey("Given an empty "+name+" session log", t, func() {
			ctx := context.Background()
			store := open(t)
			Reset(func() { _ = store.Close() })

			Convey("When sessions are recorded", func() {
				So(store.Record(ctx, session("b", 30, time.Minute)), ShouldBeNil)
				So(store.Record(ctx, session("a", 45, 2*time.Minute)), ShouldBeNil)
				So(store.Record(ctx, session("c", 30, 0)), ShouldBeNil)
				So(store.Record(ctx, session("d", 10, 0)), ShouldBeNil)

				Convey("Then TopN orders by red score, then finish time", func() {
					top, err := store.TopN(ctx, 3)
					So(err, ShouldBeNil)
					So(ids(top), ShouldResemble, []string{"a", "c", "b"})
					So(top[0].Rank, ShouldEqual, 1)
					So(top[2].Rank, ShouldEqual, 3)
					So(top[0].Snapshot, ShouldEqual, "a.png")
					So(top[0].FinishedAt.Equal(base.Add(2*time.Minute)), ShouldBeTrue)
					So(store.Count(ctx), ShouldEqual, 4)
				})

				Convey("Then a limit above the count returns everything", func() {
					top, err := store.TopN(ctx, 50)
					So(err, ShouldBeNil)
					So(len(top), ShouldEqual, 4)
				})

				Convey("Then recording an id twice fails", func() {
					err := store.Record(ctx, session("a", 99, 0))
					So(errors.Is(err, ErrDuplicate), ShouldBeTrue)
				})
			})

			Convey("When the limit is not positive", func() {
				_, err := store.TopN(ctx, 0)
				So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
			})

			Convey("When the session has no id", func() {
				err := store.Record(ctx, session("", 1, 0))
				So(errors.Is(err, ErrInvalidSession), ShouldBeTrue)
			})
		})
	}
}

func TestMemoryStoreCapacity(t *testing.T) {
	Convey("Given a memory store keeping three sessions", t, func() {
		ctx := context.Background()
		store := NewMemoryStore(WithCapacity(3))

		for i := 0; i < 10; i++ {
			So(store.Record(ctx, session(fmt.Sprintf("s%d", i), i*10, 0)), ShouldBeNil)
		}

		Convey("Then only the best three remain", func() {
			top, err := store.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(ids(top), ShouldResemble, []string{"s9", "s8", "s7"})
			So(store.Count(ctx), ShouldEqual, 3)
		})

		Convey("Then an evicted id may be recorded again", func() {
			So(store.Record(ctx, session("s0", 1000, 0)), ShouldBeNil)
			top, _ := store.TopN(ctx, 1)
			So(top[0].ID, ShouldEqual, "s0")
		})
	})
}

func TestMemoryStoreOrderingProperty(t *testing.T) {
	Convey("Given many random sessions", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		r := rand.New(rand.NewPCG(7, 11))
		var all []model.SessionResult
		for i := 0; i < 500; i++ {
			s := session(fmt.Sprintf("id-%03d", i), r.IntN(50), time.Duration(r.IntN(20))*time.Second)
			all = append(all, s)
			So(store.Record(ctx, s), ShouldBeNil)
		}
		sort.Slice(all, func(i, j int) bool { return before(&all[i], &all[j]) })

		Convey("Then TopN matches a full sort", func() {
			top, err := store.TopN(ctx, 100)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 100)
			for i := range top {
				So(top[i].ID, ShouldEqual, all[i].ID)
			}
		})
	})
}

func TestMemoryStoreClose(t *testing.T) {
	Convey("Given a closed memory store", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		So(store.Close(), ShouldBeNil)

		Convey("Then it rejects reads and writes", func() {
			So(errors.Is(store.Record(ctx, session("x", 1, 0)), ErrClosed), ShouldBeTrue)
			_, err := store.TopN(ctx, 1)
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
			So(store.Count(ctx), ShouldEqual, 0)
		})
	})
}

func TestOpenSQLite(t *testing.T) {
	Convey("Given SQLite paths", t, func() {
		Convey("Then an empty path is rejected", func() {
			_, err := OpenSQLite("  ")
			So(err, ShouldNotBeNil)
		})

		Convey("Then sessions survive a reopen", func() {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "log.db")
			first, err := OpenSQLite(path)
			So(err, ShouldBeNil)
			So(first.Record(ctx, session("keep", 12, 0)), ShouldBeNil)
			So(first.Close(), ShouldBeNil)

			second, err := OpenSQLite(path)
			So(err, ShouldBeNil)
			defer second.Close()
			So(second.Count(ctx), ShouldEqual, 1)
		})

		Convey("Then the in-memory database works", func() {
			store, err := OpenSQLite(":memory:")
			So(err, ShouldBeNil)
			defer store.Close()
			So(store.Record(context.Background(), session("m", 3, 0)), ShouldBeNil)
			So(store.Count(context.Background()), ShouldEqual, 1)
		})
	})
}

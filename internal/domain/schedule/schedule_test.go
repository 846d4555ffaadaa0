package schedule_test

import (
	"testing"
	"time"

	"github.com/okian/shootsim/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManual(t *testing.T) {
	Convey("Given a manual scheduler", t, func() {
		m := schedule.NewManual()
		var order []string

		m.AfterFunc(2*time.Second, func() { order = append(order, "b") })
		m.AfterFunc(time.Second, func() { order = append(order, "a") })
		stopped := m.AfterFunc(1500*time.Millisecond, func() { order = append(order, "x") })

		Convey("When a timer is stopped and time advances", func() {
			So(stopped.Stop(), ShouldBeTrue)
			So(stopped.Stop(), ShouldBeFalse)
			m.Advance(3 * time.Second)

			Convey("Then live timers fire in deadline order", func() {
				So(order, ShouldResemble, []string{"a", "b"})
				So(m.Pending(), ShouldEqual, 0)
			})
		})

		Convey("When time advances partially", func() {
			m.Advance(time.Second)
			So(order, ShouldResemble, []string{"a"})
			So(m.Pending(), ShouldEqual, 2)
		})

		Convey("When a callback schedules another due in the same window", func() {
			m.AfterFunc(500*time.Millisecond, func() {
				m.AfterFunc(100*time.Millisecond, func() { order = append(order, "chained") })
			})
			m.Advance(700 * time.Millisecond)
			So(order, ShouldResemble, []string{"chained"})
		})
	})
}

func TestReal(t *testing.T) {
	Convey("The real scheduler runs callbacks on the runtime timer", t, func() {
		done := make(chan struct{})
		schedule.NewReal().AfterFunc(time.Millisecond, func() { close(done) })
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("callback did not run")
		}

		tm := schedule.NewReal().AfterFunc(time.Hour, func() {})
		So(tm.Stop(), ShouldBeTrue)
	})
}

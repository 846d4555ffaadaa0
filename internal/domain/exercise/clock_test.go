package exercise_test

import (
	"math"
	"testing"

	"github.com/okian/shootsim/internal/domain/exercise"
	"github.com/okian/shootsim/internal/domain/geom"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClock(t *testing.T) {
	origin := geom.Point{}

	Convey("Given a target centered at the origin", t, func() {
		Convey("Then the four compass points map to quarter hours", func() {
			So(exercise.Clock(origin, geom.Point{X: 10, Y: 0}), ShouldEqual, 3)
			So(exercise.Clock(origin, geom.Point{X: 0, Y: -10}), ShouldEqual, 12)
			So(exercise.Clock(origin, geom.Point{X: -10, Y: 0}), ShouldEqual, 9)
			So(exercise.Clock(origin, geom.Point{X: 0, Y: 10}), ShouldEqual, 6)
		})

		Convey("Then every 30 degree step advances one hour", func() {
			for k := 0; k < 12; k++ {
				rad := float64(k) * 30 * math.Pi / 180
				p := geom.Point{X: 10 * math.Cos(rad), Y: 10 * math.Sin(rad)}
				want := (k + 3) % 12
				if want == 0 {
					want = 12
				}
				So(exercise.Clock(origin, p), ShouldEqual, want)
			}
		})

		Convey("Then sector boundaries sit 15 degrees past each hour", func() {
			at := func(deg float64) geom.Point {
				rad := deg * math.Pi / 180
				return geom.Point{X: 10 * math.Cos(rad), Y: 10 * math.Sin(rad)}
			}
			So(exercise.Clock(origin, at(14)), ShouldEqual, 3)
			So(exercise.Clock(origin, at(16)), ShouldEqual, 4)
			So(exercise.Clock(origin, at(-14)), ShouldEqual, 3)
			So(exercise.Clock(origin, at(-16)), ShouldEqual, 2)
		})

		Convey("Then a shot on the center reads 3 o'clock", func() {
			So(exercise.Clock(origin, origin), ShouldEqual, 3)
		})
	})

	Convey("Given an offset center", t, func() {
		c := geom.Point{X: 290, Y: 250}
		So(exercise.Clock(c, geom.Point{X: 290, Y: 200}), ShouldEqual, 12)
		So(exercise.Clock(c, geom.Point{X: 340, Y: 250}), ShouldEqual, 3)
	})
}

func TestSpread(t *testing.T) {
	Convey("Given a spread tracker", t, func() {
		s := exercise.NewSpread()

		Convey("Then an empty group has no spread", func() {
			So(s.Extent(), ShouldEqual, 0)
			So(s.Inches(18, 5), ShouldEqual, 0)
		})

		Convey("When shots spread further vertically than horizontally", func() {
			s.Add(geom.Point{X: 10, Y: 10}, 100)
			s.Add(geom.Point{X: 14, Y: 40}, 100)

			Convey("Then the vertical extent is used", func() {
				So(s.Extent(), ShouldEqual, 30)
				So(s.Inches(18, 5), ShouldAlmostEqual, 30.0*18/100*5/2.54, 1e-9)
			})
		})

		Convey("When it is reset", func() {
			s.Add(geom.Point{X: 0, Y: 0}, 50)
			s.Add(geom.Point{X: 100, Y: 0}, 50)
			s.Reset()
			s.Add(geom.Point{X: 7, Y: 7}, 50)

			Convey("Then earlier shots are forgotten", func() {
				So(s.Extent(), ShouldEqual, 0)
			})
		})
	})
}

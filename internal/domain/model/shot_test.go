package model_test

import (
	"testing"

	"github.com/okian/shootsim/internal/domain/geom"
	model "github.com/okian/shootsim/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestShotColor(t *testing.T) {
	convey.Convey("Given the shot colors", t, func() {
		convey.Convey("When parsing their names", func() {
			for _, c := range []model.ShotColor{model.ColorRed, model.ColorGreen, model.ColorInfrared} {
				parsed, err := model.ParseShotColor(c.String())
				convey.So(err, convey.ShouldBeNil)
				convey.So(parsed, convey.ShouldEqual, c)
			}
		})

		convey.Convey("When parsing with odd casing and spacing", func() {
			c, err := model.ParseShotColor("  GREEN ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(c, convey.ShouldEqual, model.ColorGreen)
		})

		convey.Convey("When parsing an unknown color", func() {
			_, err := model.ParseShotColor("blue")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("A shot exposes its position", t, func() {
		s := model.Shot{ID: "a", X: 12.5, Y: -3}
		convey.So(s.Point(), convey.ShouldResemble, geom.Point{X: 12.5, Y: -3})
	})
}

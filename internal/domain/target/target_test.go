package target_test

import (
	"testing"

	"github.com/okian/shootsim/internal/domain/geom"
	"github.com/okian/shootsim/internal/domain/region"
	"github.com/okian/shootsim/internal/domain/target"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTargetTransform(t *testing.T) {
	Convey("Given a target with two regions", t, func() {
		tg := target.New("silhouette.target")
		tg.AddRegion(region.New(region.Rectangle{X: 0, Y: 0, Width: 100, Height: 200}, "black"))
		tg.AddRegion(region.New(region.Ellipse{CenterX: 50, CenterY: 50, RadiusX: 20, RadiusY: 20}, "white"))

		Convey("Then bounds cover every region", func() {
			So(tg.Bounds(), ShouldResemble, geom.Rect{X: 0, Y: 0, W: 100, H: 200})
		})

		Convey("When it is moved and scaled", func() {
			tg.SetPosition(10, 20)
			tg.SetScale(0.5)

			Convey("Then scene bounds and dimension follow", func() {
				So(tg.SceneBounds(), ShouldResemble, geom.Rect{X: 10, Y: 20, W: 50, H: 100})
				w, h := tg.Dimension()
				So(w, ShouldEqual, 50)
				So(h, ShouldEqual, 100)
			})

			Convey("Then local and scene transforms are inverse", func() {
				p := geom.Point{X: 35, Y: 45}
				local := tg.ToLocal(p)
				So(local, ShouldResemble, geom.Point{X: 50, Y: 50})
				So(tg.ToScene(local), ShouldResemble, p)
			})
		})

		Convey("When the scale is not positive", func() {
			tg.SetScale(0)
			So(tg.Scale(), ShouldEqual, 1)
		})

		Convey("When it is cloned", func() {
			tg.SetClip(&geom.Rect{X: 0, Y: 0, W: 10, H: 10})
			c := tg.Clone()
			c.SetFill("red")
			c.SetVisible(false)

			Convey("Then the clone keeps the ID but owns its state", func() {
				So(c.ID(), ShouldEqual, tg.ID())
				So(tg.Visible(), ShouldBeTrue)
				So(tg.Regions()[1].Fill(), ShouldEqual, "white")
				So(c.Regions()[0].Fill(), ShouldEqual, "red")
			})
		})

		Convey("When a new instance is made", func() {
			tg.SetClip(&geom.Rect{X: 0, Y: 0, W: 10, H: 10})
			c := tg.NewInstance()
			c.SetFill("red")

			Convey("Then it gets a new ID and its own regions", func() {
				So(c.ID(), ShouldNotEqual, tg.ID())
				So(c.Ref(), ShouldEqual, tg.Ref())
				So(tg.Regions()[0].Fill(), ShouldEqual, "black")
				So(c.Regions()[1].Fill(), ShouldEqual, "red")
				clip, ok := c.Clip()
				So(ok, ShouldBeTrue)
				So(clip.W, ShouldEqual, 10)
			})
		})
	})

	Convey("IDs are unique across targets", t, func() {
		seen := map[target.ID]bool{}
		for i := 0; i < 50; i++ {
			id := target.New("x").ID()
			So(seen[id], ShouldBeFalse)
			seen[id] = true
		}
	})
}

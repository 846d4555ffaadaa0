package course

import "github.com/okian/shootsim/internal/domain/geom"

func area(name string, d Distance, x, y, w, h float64) ClipArea {
	return ClipArea{Name: name, Rect: geom.Rect{X: x, Y: y, W: w, H: h}, Distance: d}
}

func covered(a ClipArea, x, y, w, h float64) ClipArea {
	a.Cover = &Cover{Rect: geom.Rect{X: x, Y: y, W: w, H: h}}
	return a
}

// Builtin returns the courses shipped with the simulator.
func Builtin() []Course {
	return []Course{
		{
			Name:       "oradour",
			Background: "/arena/backgrounds/oradour-sur-glane.gif",
			Areas: []ClipArea{
				covered(area("bigWindow", Medium, 158.5, 101, 37, 87), 158.5, 168, 47, 27),
				area("bottomLeft", Near, 0, 415, 257, 65),
				area("bottomRight", Near, 522, 397, 118, 83),
				covered(area("car", Near, 247, 264, 318, 115), 247, 353, 318, 50),
				covered(area("halfWindow", Medium, 278, 135, 27, 49), 275, 176, 57, 27),
				area("sniper", Far, 409, 201, 31, 45),
			},
		},
		{
			Name:       "parking-lot",
			Background: "/arena/backgrounds/subterranean_parking_lot.gif",
			Areas: []ClipArea{
				area("near", Near, 331, 341, 469, 125),
				area("medium", Medium, 319, 216, 229, 66.5),
				area("far", Far, 289, 148, 116, 42),
			},
		},
	}
}

// DefaultTargets lists the target definitions course exercises draw from.
func DefaultTargets() []string {
	return []string{
		"targets/Swedish_Soldier.target",
		"targets/AQT_Silhouette.target",
		"targets/USPSA.target",
	}
}

package exercise

import (
	"math"

	"github.com/okian/shootsim/internal/domain/geom"
)

// Clock maps the direction from center to shot onto a clock face. Sectors
// are 30 degrees wide, centered on each hour; screen y grows downward so a
// shot straight above the center reads 12.
func Clock(center, shot geom.Point) int {
	angle := math.Atan2(shot.Y-center.Y, shot.X-center.X) * 180 / math.Pi
	if angle < 0 {
		angle += 360
	}
	c := (int((angle+15)/30) + 3) % 12
	if c == 0 {
		c = 12
	}
	return c
}

// Spread tracks the extreme spread of a shot group.
type Spread struct {
	minX, maxX  float64
	minY, maxY  float64
	targetWidth float64
	n           int
}

// NewSpread returns an empty tracker.
func NewSpread() *Spread {
	s := &Spread{}
	s.Reset()
	return s
}

// Reset forgets every shot.
func (s *Spread) Reset() {
	s.minX, s.minY = math.Inf(1), math.Inf(1)
	s.maxX, s.maxY = math.Inf(-1), math.Inf(-1)
	s.targetWidth = 1
	s.n = 0
}

// Add records a shot and the scene width of the target it hit.
func (s *Spread) Add(p geom.Point, targetWidth float64) {
	s.minX = math.Min(s.minX, p.X)
	s.maxX = math.Max(s.maxX, p.X)
	s.minY = math.Min(s.minY, p.Y)
	s.maxY = math.Max(s.maxY, p.Y)
	if targetWidth > 0 {
		s.targetWidth = targetWidth
	}
	s.n++
}

// Extent is the larger of the horizontal and vertical group sizes in scene
// units.
func (s *Spread) Extent() float64 {
	if s.n == 0 {
		return 0
	}
	return math.Max(s.maxX-s.minX, s.maxY-s.minY)
}

// Inches converts the extent to inches on a physical target of widthCM seen
// at trainingScale times its real distance.
func (s *Spread) Inches(widthCM, trainingScale float64) float64 {
	cm := s.Extent() * widthCM / s.targetWidth
	return cm * trainingScale / 2.54
}

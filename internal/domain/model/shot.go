// Package model contains the shot events passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/shootsim/internal/domain/geom"
)

// ShotColor is the laser color reported by the detector.
type ShotColor int

const (
	ColorRed ShotColor = iota
	ColorGreen
	ColorInfrared
)

func (c ShotColor) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	case ColorInfrared:
		return "infrared"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// ParseShotColor accepts red, green and infrared in any case.
func ParseShotColor(s string) (ShotColor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return ColorRed, nil
	case "green":
		return ColorGreen, nil
	case "infrared", "ir":
		return ColorInfrared, nil
	}
	return 0, fmt.Errorf("unknown shot color %q", s)
}

// Shot is a detected laser impact in scene coordinates.
type Shot struct {
	ID    string    // unique id for idempotency
	Color ShotColor // laser color
	X, Y  float64   // scene position
	TS    time.Time // detection time
}

// Point returns the shot position.
func (s Shot) Point() geom.Point {
	return geom.Point{X: s.X, Y: s.Y}
}

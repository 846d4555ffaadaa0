package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidShot is returned for shot messages that cannot be dispatched.
var ErrInvalidShot = errors.New("invalid shot")

// ShotMessage is the JSON shape of a shot on the HTTP and stream intakes.
type ShotMessage struct {
	ID    string   `json:"id,omitempty"`
	Color string   `json:"color"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	TS    string   `json:"ts,omitempty"`
}

// Shot validates m and converts it. A missing timestamp becomes now; a
// missing id stays empty for the caller to assign.
func (m ShotMessage) Shot(now time.Time) (Shot, error) {
	color, err := ParseShotColor(m.Color)
	if err != nil {
		return Shot{}, fmt.Errorf("%w: %w", ErrInvalidShot, err)
	}
	if m.X == nil || m.Y == nil {
		return Shot{}, fmt.Errorf("%w: x and y are required", ErrInvalidShot)
	}
	if !finite(*m.X) || !finite(*m.Y) {
		return Shot{}, fmt.Errorf("%w: coordinates must be finite", ErrInvalidShot)
	}
	ts := now
	if s := strings.TrimSpace(m.TS); s != "" {
		ts, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Shot{}, fmt.Errorf("%w: ts must be RFC3339", ErrInvalidShot)
		}
	}
	return Shot{
		ID:    strings.TrimSpace(m.ID),
		Color: color,
		X:     *m.X,
		Y:     *m.Y,
		TS:    ts,
	}, nil
}

// NewShotMessage is the inverse of ShotMessage.Shot.
func NewShotMessage(s Shot) ShotMessage {
	x, y := s.X, s.Y
	m := ShotMessage{ID: s.ID, Color: s.Color.String(), X: &x, Y: &y}
	if !s.TS.IsZero() {
		m.TS = s.TS.UTC().Format(time.RFC3339Nano)
	}
	return m
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

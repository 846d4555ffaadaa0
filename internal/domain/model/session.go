package model

import "time"

// SessionResult is the outcome of one scored session or elimination round.
type SessionResult struct {
	ID           string    `json:"id"`
	Exercise     string    `json:"exercise"`
	RedScore     int       `json:"red_score"`
	GreenScore   int       `json:"green_score"`
	Hits         int       `json:"hits"`
	SpreadInches float64   `json:"spread_inches"`
	Snapshot     string    `json:"snapshot,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}

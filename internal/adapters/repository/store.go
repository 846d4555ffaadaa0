// Package repository keeps finished session results and ranks them by red
// score.
package repository

import (
	"context"

	"github.com/okian/shootsim/internal/domain/model"
)

// Entry is a ranked session result.
type Entry struct {
	Rank int `json:"rank"`
	model.SessionResult
}

// Store provides read/write access to the session log.
type Store interface {
	// Record appends a finished session. Recording an ID twice fails with
	// ErrDuplicate.
	Record(ctx context.Context, r model.SessionResult) error

	// TopN returns up to n sessions ordered by red score desc, then by
	// finish time asc, then by id.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of sessions kept.
	Count(ctx context.Context) int

	// Close releases resources held by the store.
	Close() error
}

// before reports whether a ranks ahead of b.
func before(a, b *model.SessionResult) bool {
	if a.RedScore != b.RedScore {
		return a.RedScore > b.RedScore
	}
	if !a.FinishedAt.Equal(b.FinishedAt) {
		return a.FinishedAt.Before(b.FinishedAt)
	}
	return a.ID < b.ID
}

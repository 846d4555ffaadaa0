package queue

import "errors"

// Sentinel errors for queue consumers.
var (
	ErrStopped = errors.New("queue consumer stopped")
	ErrFull    = errors.New("queue full")
)

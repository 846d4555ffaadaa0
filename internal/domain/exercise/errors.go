package exercise

import "errors"

var (
	// ErrUnknownExercise is returned by New for an unsupported kind.
	ErrUnknownExercise = errors.New("unknown exercise")

	// ErrInvalidPoints marks a "points" tag that is not an integer. The shot
	// is otherwise handled normally.
	ErrInvalidPoints = errors.New("invalid points tag")

	// ErrInvalidSettings is returned for settings an exercise cannot run with.
	ErrInvalidSettings = errors.New("invalid exercise settings")

	// ErrClosed is returned by a driver after Close.
	ErrClosed = errors.New("exercise closed")
)

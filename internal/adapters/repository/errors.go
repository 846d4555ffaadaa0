package repository

import "errors"

// Sentinel kinds for session log errors.
var (
	ErrInvalidLimit   = errors.New("invalid session limit")
	ErrInvalidSession = errors.New("invalid session result")
	ErrDuplicate      = errors.New("session already recorded")
	ErrClosed         = errors.New("session store closed")
)

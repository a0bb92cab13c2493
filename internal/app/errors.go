package app

import "errors"

var (
	// ErrNotFound indicates an id-addressed record does not exist. It is
	// an expected outcome, surfaced to the caller rather than logged as
	// a failure.
	ErrNotFound = errors.New("record not found")
)

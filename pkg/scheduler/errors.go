package scheduler

import "errors"

// Package-level error variables for unified error handling
var (
	// ErrSourceNotFound indicates an unknown source key
	ErrSourceNotFound = errors.New("source not found")

	// ErrAlreadyRunning indicates a run claim on a source that is
	// already running (single-flight guard)
	ErrAlreadyRunning = errors.New("source is already running")

	// ErrUnknownLevel indicates a frequency level missing from the
	// interval table
	ErrUnknownLevel = errors.New("unknown frequency level")

	// ErrMalformedEntry indicates a legacy schedule line that does not
	// match the fixed grammar
	ErrMalformedEntry = errors.New("malformed schedule line")
)

package metrics

import "errors"

// Package-level error variables for unified error handling
var (
	// ErrUnknownSource indicates a sample or query referenced a source
	// key absent from configuration
	ErrUnknownSource = errors.New("unknown source key")

	// ErrInvalidSample indicates a sample with negative or out-of-range
	// numeric fields
	ErrInvalidSample = errors.New("invalid metrics sample")

	// ErrSampleTooSoon indicates a sample timestamp closer to an
	// existing one than the minimum allowed run interval
	ErrSampleTooSoon = errors.New("sample closer than the minimum run interval")
)

package motion

import "errors"

var (
	// ErrNotFound is returned when no recording exists under a name.
	ErrNotFound = errors.New("motion not found")

	// ErrInvalidName is returned for names that would escape the store.
	ErrInvalidName = errors.New("invalid motion name")

	// ErrInvalidRecording is returned when a recording file is malformed.
	ErrInvalidRecording = errors.New("invalid motion recording")
)

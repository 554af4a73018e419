package gesture

import "errors"

var (
	// ErrDuplicateIntent is returned when a script lists an intent twice.
	ErrDuplicateIntent = errors.New("duplicate intent")

	// ErrEmptyIntent is returned when an entry has no intent name.
	ErrEmptyIntent = errors.New("empty intent name")

	// ErrEmptyGesture is returned when an entry lists a blank gesture id.
	ErrEmptyGesture = errors.New("empty gesture identifier")

	// ErrTerminalMissing is returned when the terminal intent is not scripted.
	ErrTerminalMissing = errors.New("terminal intent not in catalog")
)

package fallback

import "errors"

var (
	// ErrEmptyReply is returned when the model answered with nothing to say.
	ErrEmptyReply = errors.New("fallback reply is empty")

	// ErrNoProvider is returned by New without an inference provider.
	ErrNoProvider = errors.New("fallback requires an inference provider")
)

package performance

import "errors"

var (
	// ErrFinished is returned by Step once the terminal intent was played.
	ErrFinished = errors.New("performance finished")

	// ErrNotStarted is returned by Step before Start succeeded.
	ErrNotStarted = errors.New("performance not started")

	// ErrDetectionFailing is returned once intent detection has failed
	// Config.MaxDetectFailures times in a row.
	ErrDetectionFailing = errors.New("intent detection keeps failing")
)

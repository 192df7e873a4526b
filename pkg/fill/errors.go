package fill

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("fill: aborted")
	// ErrIncomplete is returned when the form still fails validation after the
	// last re-prompt round, or the user declined to fix it.
	ErrIncomplete = errors.New("fill: form incomplete")
)

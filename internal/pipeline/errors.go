package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrNoStreams       = errors.New("no streams configured")
	ErrDuplicateStream = errors.New("duplicate stream index")
	ErrInvalidSettings = errors.New("invalid pipeline settings")
	ErrAlreadyStarted  = errors.New("pipeline already started")
	ErrStopped         = errors.New("pipeline already stopped")
	ErrStreamExhausted = errors.New("stream exhausted")
)

// StreamError reports a failure while setting up one stream.
type StreamError struct {
	Stream int
	Op     string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %d: %s: %v", e.Stream, e.Op, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

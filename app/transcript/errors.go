package transcript

import (
	"errors"
	"fmt"
)

var (
	// ErrVideoUnavailable covers removed, private and geo-blocked videos.
	// Retrying does not help.
	ErrVideoUnavailable = errors.New("video unavailable")
	ErrNoTranscript     = errors.New("no transcript available")
	ErrTooManyRequests  = errors.New("too many requests")
)

type Error struct {
	VideoID string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcript %s: %v", e.VideoID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

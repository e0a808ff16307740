package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTransportUnavailable means there is no usable MIDI transport.
	ErrTransportUnavailable = errors.New("midi transport unavailable")
	// ErrAccessTimeout means the transport did not open in time.
	ErrAccessTimeout = errors.New("midi access timed out")

	// The rest are absorbed inside the pipeline and only logged or counted.
	ErrMalformedFrame = errors.New("malformed frame")
	ErrIgnoredFrame   = errors.New("ignored system frame")
	ErrRateLimited    = errors.New("batch rate limit exceeded")
	ErrBatchOverflow  = errors.New("batch overflow")
)

type InitStatus string

const (
	StatusReady       InitStatus = "ready"
	StatusUnavailable InitStatus = "unavailable"
	StatusTimeout     InitStatus = "timeout"
)

// InitError is what Initialize returns. Status tells callers what to show;
// errors.Is works against the sentinels above.
type InitError struct {
	Status InitStatus
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize (%s): %v", e.Status, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

package framepool

import (
	"fmt"
)

// ErrNoFrameAvailable is returned by TryGetNextFrame if the pool has
// no queued frames. It is expected in normal operation: a notification
// may be delivered after the frame was already taken.
type ErrNoFrameAvailable struct{}

var _ error = ErrNoFrameAvailable{}

func (ErrNoFrameAvailable) Error() string {
	return "no frame is available"
}

type ErrPoolClosed struct{}

var _ error = ErrPoolClosed{}

func (ErrPoolClosed) Error() string {
	return "the frame pool is closed"
}

type ErrSessionClosed struct{}

var _ error = ErrSessionClosed{}

func (ErrSessionClosed) Error() string {
	return "the capture session is closed"
}

type ErrSessionAlreadyStarted struct{}

var _ error = ErrSessionAlreadyStarted{}

func (ErrSessionAlreadyStarted) Error() string {
	return "the capture session is already started"
}

type ErrInvalidPoolParameters struct {
	Reason string
}

var _ error = ErrInvalidPoolParameters{}

func (e ErrInvalidPoolParameters) Error() string {
	return fmt.Sprintf("invalid frame pool parameters: %s", e.Reason)
}

package snapshot

import (
	"fmt"
	"time"
)

type ErrCaptureTimeout struct {
	Timeout time.Duration
}

var _ error = ErrCaptureTimeout{}

func (e ErrCaptureTimeout) Error() string {
	return fmt.Sprintf("no frame arrived within %v", e.Timeout)
}

type ErrInvalidTargetSize struct {
	Width  int
	Height int
}

var _ error = ErrInvalidTargetSize{}

func (e ErrInvalidTargetSize) Error() string {
	return fmt.Sprintf("the target has an invalid size: %dx%d", e.Width, e.Height)
}

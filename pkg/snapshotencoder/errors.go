package snapshotencoder

import (
	"fmt"
)

type ErrEncoding struct {
	Path string
	Err  error
}

var _ error = ErrEncoding{}

func (e ErrEncoding) Error() string {
	return fmt.Sprintf("unable to save the picture to '%s': %v", e.Path, e.Err)
}

func (e ErrEncoding) Unwrap() error {
	return e.Err
}

package commands

import (
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
)

// ErrSelectionAborted is returned when the user quits the window
// selection prompt.
type ErrSelectionAborted struct {
	Reason string
}

var _ error = ErrSelectionAborted{}

func (e ErrSelectionAborted) Error() string {
	if e.Reason == "" {
		return "window selection is aborted"
	}
	return "window selection is aborted: " + e.Reason
}

func (ErrSelectionAborted) Is(target error) bool {
	_, ok := target.(capturetarget.ErrTargetResolution)
	return ok
}

type ErrConfigExists struct {
	Path string
}

var _ error = ErrConfigExists{}

func (e ErrConfigExists) Error() string {
	return "the config file '" + e.Path + "' already exists"
}

package capturetarget

import (
	"fmt"
	"strings"
)

// ErrTargetResolution is the class of all the errors of resolving
// a Selection to a Target; use errors.Is to check for it.
type ErrTargetResolution struct{}

var _ error = ErrTargetResolution{}

func (ErrTargetResolution) Error() string {
	return "unable to resolve the capture target"
}

type ErrInvalidDisplayIndex struct {
	Index int
	Count int
}

var _ error = ErrInvalidDisplayIndex{}

func (e ErrInvalidDisplayIndex) Error() string {
	return fmt.Sprintf("invalid display index %d: expected a value in range [1, %d]", e.Index, e.Count)
}

func (ErrInvalidDisplayIndex) Is(target error) bool {
	_, ok := target.(ErrTargetResolution)
	return ok
}

type ErrNoMatchingWindow struct {
	Query string
}

var _ error = ErrNoMatchingWindow{}

func (e ErrNoMatchingWindow) Error() string {
	return fmt.Sprintf("no window title contains %q", e.Query)
}

func (ErrNoMatchingWindow) Is(target error) bool {
	_, ok := target.(ErrTargetResolution)
	return ok
}

type ErrAmbiguousWindow struct {
	Query      string
	Candidates []Target
}

var _ error = ErrAmbiguousWindow{}

func (e ErrAmbiguousWindow) Error() string {
	names := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		names = append(names, fmt.Sprintf("%q", c.Name))
	}
	return fmt.Sprintf("%d windows match %q: %s", len(e.Candidates), e.Query, strings.Join(names, ", "))
}

func (ErrAmbiguousWindow) Is(target error) bool {
	_, ok := target.(ErrTargetResolution)
	return ok
}

type ErrInvalidSelection struct {
	Reason string
}

var _ error = ErrInvalidSelection{}

func (e ErrInvalidSelection) Error() string {
	return fmt.Sprintf("invalid target selection: %s", e.Reason)
}

func (ErrInvalidSelection) Is(target error) bool {
	_, ok := target.(ErrTargetResolution)
	return ok
}
